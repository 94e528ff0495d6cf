package predictor

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/senatai/backend/internal/metrics"
	"github.com/senatai/backend/internal/storage/models"
	"github.com/senatai/backend/internal/storage/sqlite"
	"github.com/senatai/backend/pkg/logger"
)

// Weighting schemes for aggregating relevant responses. "frequency"
// weights each response by how often its dominant matched keyword has
// been observed in the person's history; "uniform" counts every relevant
// response once.
const (
	WeightFrequency = "frequency"
	WeightUniform   = "uniform"
)

const (
	scaleMidpoint = 3.0
	// Exact neutrality is weak evidence, not absence of evidence.
	neutralConfidenceFloor = 10.0
)

type Options struct {
	MinOverlap int
	Weighting  string
}

func DefaultOptions() Options {
	return Options{
		MinOverlap: 1,
		Weighting:  WeightFrequency,
	}
}

// Evidence is one past answer that contributed to a prediction.
type Evidence struct {
	Question        string   `json:"question"`
	Score           int      `json:"score"`
	MatchedKeywords []string `json:"matched_keywords"`
}

type Prediction struct {
	ID            string     `json:"id"`
	DocumentID    string     `json:"document_id"`
	Label         string     `json:"label"`
	ScoreEstimate float64    `json:"score_estimate"`
	Confidence    float64    `json:"confidence"`
	Evidence      []Evidence `json:"evidence"`
}

type Predictor struct {
	db   *sqlite.Client
	opts Options
}

func NewPredictor(db *sqlite.Client, opts Options) *Predictor {
	if opts.MinOverlap == 0 {
		opts = DefaultOptions()
	}

	return &Predictor{
		db:   db,
		opts: opts,
	}
}

// Predict estimates a person's stance on a document they have never been
// asked about, from their graded reactions to keyword-tagged questions.
// No relevant history yields "Undecided (no data)" at 0% confidence —
// that is a valid answer, never an error.
func (p *Predictor) Predict(senatairID, documentID string) (*Prediction, error) {
	keywords, err := p.db.GetDocumentKeywords(documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document keywords: %w", err)
	}

	targetTerms := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		targetTerms[kw.Term] = true
	}

	responses, err := p.db.GetResponses(senatairID)
	if err != nil {
		return nil, fmt.Errorf("failed to load response history: %w", err)
	}

	// Per-keyword observation counts over the full history, built before
	// aggregation so frequency weighting sees every response.
	observations := make(map[string]int)
	for _, r := range responses {
		if r.IsMeta || r.Score < 1 || r.Score > 5 {
			continue
		}
		for _, kw := range r.MatchedKeywords {
			observations[kw]++
		}
	}

	var weightedSum, totalWeight float64
	var evidence []Evidence

	for _, r := range responses {
		// Check-in answers grade the survey, not the legislation.
		if r.IsMeta {
			continue
		}

		// A corrupt score skips that one response, never the whole person.
		if r.Score < 1 || r.Score > 5 {
			logger.Warn("Skipping response with malformed score",
				zap.String("response_id", r.ID),
				zap.Int("score", r.Score),
			)
			continue
		}

		overlap := intersect(r.MatchedKeywords, targetTerms)
		if len(overlap) < p.opts.MinOverlap {
			continue
		}

		weight := 1.0
		if p.opts.Weighting == WeightFrequency {
			weight = float64(observations[dominantKeyword(overlap, observations)])
			if weight == 0 {
				weight = 1.0
			}
		}

		weightedSum += float64(r.Score) * weight
		totalWeight += weight

		evidence = append(evidence, Evidence{
			Question:        r.QuestionText,
			Score:           r.Score,
			MatchedKeywords: overlap,
		})
	}

	pred := &Prediction{
		ID:         uuid.New().String(),
		DocumentID: documentID,
	}

	if totalWeight == 0 {
		pred.Label = models.LabelUndecided
		pred.ScoreEstimate = scaleMidpoint
		pred.Confidence = 0
		pred.Evidence = []Evidence{}
	} else {
		average := weightedSum / totalWeight
		pred.ScoreEstimate = average
		pred.Label, pred.Confidence = classify(average)
		pred.Evidence = evidence
	}

	record := &models.Prediction{
		ID:            pred.ID,
		SenatairID:    senatairID,
		DocumentID:    documentID,
		Label:         pred.Label,
		ScoreEstimate: pred.ScoreEstimate,
		Confidence:    pred.Confidence,
		Explanation:   fmt.Sprintf("%d relevant responses out of %d", len(pred.Evidence), len(responses)),
		CreatedAt:     time.Now(),
	}
	if err := p.db.InsertPrediction(record); err != nil {
		logger.Warn("Failed to persist prediction", zap.Error(err))
	}

	metrics.PredictionsTotal.WithLabelValues(pred.Label).Inc()
	metrics.PredictionConfidence.Observe(pred.Confidence)

	logger.Info("Stance predicted",
		zap.String("senatair_id", senatairID),
		zap.String("doc_id", documentID),
		zap.String("label", pred.Label),
		zap.Float64("confidence", pred.Confidence),
	)

	return pred, nil
}

// classify maps a 1-5 average to a label and a confidence percentage.
// Confidence grows linearly with distance from the midpoint and
// saturates at the scale extremes.
func classify(average float64) (string, float64) {
	confidence := math.Min(1.0, math.Abs(average-scaleMidpoint)/2.0) * 100

	switch {
	case average > scaleMidpoint:
		return models.LabelSupport, confidence
	case average < scaleMidpoint:
		return models.LabelOppose, confidence
	default:
		return models.LabelNeutral, neutralConfidenceFloor
	}
}

func intersect(keywords []string, target map[string]bool) []string {
	var overlap []string
	for _, kw := range keywords {
		if target[kw] {
			overlap = append(overlap, kw)
		}
	}
	return overlap
}

// dominantKeyword picks the best-attested keyword of an overlap, so
// frequency weighting reflects how well-tested the signal is.
func dominantKeyword(overlap []string, observations map[string]int) string {
	best := ""
	bestCount := -1
	for _, kw := range overlap {
		if observations[kw] > bestCount {
			best = kw
			bestCount = observations[kw]
		}
	}
	return best
}
