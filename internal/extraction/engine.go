package extraction

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/senatai/backend/internal/metrics"
	"github.com/senatai/backend/internal/storage/models"
	"github.com/senatai/backend/internal/storage/sqlite"
	"github.com/senatai/backend/internal/textproc"
	"github.com/senatai/backend/pkg/logger"
)

// Relevance normalization schemes. "simple" divides frequency by a fixed
// per-category divisor; "normalized" additionally accounts for document
// length and prefers medium-length words.
const (
	SchemeSimple     = "simple"
	SchemeNormalized = "normalized"
)

type Options struct {
	MinTextLength         int
	MaxBodySample         int
	MaxNouns              int
	MaxAdjectives         int
	MaxEntities           int
	MinFrequency          int
	MaxNounFrequency      int
	MaxAdjectiveFrequency int
	Scheme                string
	NounDivisor           float64
	AdjectiveDivisor      float64
	EntityRelevance       float64
}

func DefaultOptions() Options {
	return Options{
		MinTextLength:         100,
		MaxBodySample:         6000,
		MaxNouns:              15,
		MaxAdjectives:         8,
		MaxEntities:           6,
		MinFrequency:          2,
		MaxNounFrequency:      20,
		MaxAdjectiveFrequency: 15,
		Scheme:                SchemeSimple,
		NounDivisor:           4,
		AdjectiveDivisor:      4,
		EntityRelevance:       0.6,
	}
}

type Engine struct {
	db         *sqlite.Client
	normalizer *textproc.Normalizer
	opts       Options
}

func NewEngine(db *sqlite.Client, normalizer *textproc.Normalizer, opts Options) *Engine {
	if opts.MinTextLength == 0 {
		opts = DefaultOptions()
	}

	return &Engine{
		db:         db,
		normalizer: normalizer,
		opts:       opts,
	}
}

// Extract produces the weighted keyword set for a document. A document
// whose combined text is below the minimum length yields an empty set;
// that is a policy outcome, not an error. The result is deterministic
// for the same input text.
func (e *Engine) Extract(doc *models.Document) ([]models.Keyword, error) {
	text := strings.TrimSpace(doc.CombinedText(e.opts.MaxBodySample))
	if len(text) < e.opts.MinTextLength {
		logger.Debug("Document too short for extraction",
			zap.String("doc_id", doc.ID),
			zap.Int("length", len(text)),
		)
		return nil, nil
	}

	terms, err := e.normalizer.Terms(text)
	if err != nil {
		return nil, err
	}

	totalWords := len(strings.Fields(text))

	nounCounts := make(map[string]int)
	adjCounts := make(map[string]int)
	var entityOrder []string
	entitySeen := make(map[string]bool)

	for _, t := range terms {
		switch t.Category {
		case models.CategoryNoun:
			nounCounts[t.Text]++
		case models.CategoryAdjective:
			adjCounts[t.Text]++
		case models.CategoryEntity:
			if !entitySeen[t.Text] {
				entitySeen[t.Text] = true
				entityOrder = append(entityOrder, t.Text)
			}
		}
	}

	var keywords []models.Keyword

	for _, c := range rankCounts(nounCounts, e.opts.MaxNouns, e.opts.MinFrequency, e.opts.MaxNounFrequency) {
		keywords = append(keywords, models.Keyword{
			DocumentID: doc.ID,
			Term:       c.term,
			Category:   models.CategoryNoun,
			Frequency:  c.freq,
			Relevance:  e.relevance(c.freq, e.opts.NounDivisor, totalWords, len(c.term)),
		})
	}

	for _, c := range rankCounts(adjCounts, e.opts.MaxAdjectives, e.opts.MinFrequency, e.opts.MaxAdjectiveFrequency) {
		keywords = append(keywords, models.Keyword{
			DocumentID: doc.ID,
			Term:       c.term,
			Category:   models.CategoryAdjective,
			Frequency:  c.freq,
			Relevance:  e.relevance(c.freq, e.opts.AdjectiveDivisor, totalWords, len(c.term)),
		})
	}

	// Named entities are inherently rare: a single occurrence is real
	// signal, so they bypass the minimum-frequency rule and carry a
	// fixed moderate relevance.
	for i, term := range entityOrder {
		if i >= e.opts.MaxEntities {
			break
		}
		keywords = append(keywords, models.Keyword{
			DocumentID: doc.ID,
			Term:       term,
			Category:   models.CategoryEntity,
			Frequency:  1,
			Relevance:  e.opts.EntityRelevance,
		})
	}

	return keywords, nil
}

// ExtractAndStore extracts a document's keyword set and upserts it,
// returning the number of keyword rows written. Re-running it for the
// same document produces the same rows.
func (e *Engine) ExtractAndStore(ctx context.Context, doc *models.Document) (int, error) {
	keywords, err := e.Extract(doc)
	if err != nil {
		return 0, err
	}

	written, err := e.db.UpsertKeywords(ctx, doc.ID, keywords)
	if err != nil {
		return 0, err
	}

	// Stamp the attempt even on a zero-keyword yield, so short documents
	// leave the pending queue instead of being re-tagged forever.
	if err := e.db.MarkDocumentExtracted(doc.ID); err != nil {
		return written, err
	}

	metrics.KeywordsWritten.Add(float64(written))

	logger.Info("Document keywords extracted",
		zap.String("doc_id", doc.ID),
		zap.Int("keywords", written),
	)

	return written, nil
}

// RunBatch continuously extracts keywords for documents that have none,
// one document at a time, checking for cancellation between documents.
// A tagger failure skips the document and moves on.
func (e *Engine) RunBatch(ctx context.Context, batchSize int, idleWait time.Duration) {
	logger.Info("Batch extraction started", zap.Int("batch_size", batchSize))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Batch extraction stopped")
			return
		default:
		}

		docs, err := e.db.DocumentsPendingExtraction(batchSize)
		if err != nil {
			logger.Error("Failed to fetch pending documents", zap.Error(err))
			if !sleepCtx(ctx, idleWait) {
				return
			}
			continue
		}

		if len(docs) == 0 {
			if !sleepCtx(ctx, idleWait) {
				return
			}
			continue
		}

		progressed := 0
		for i := range docs {
			select {
			case <-ctx.Done():
				logger.Info("Batch extraction stopped")
				return
			default:
			}

			doc := docs[i]
			_, err := e.ExtractAndStore(ctx, &doc)
			if err != nil {
				logger.Warn("Skipping document after extraction failure",
					zap.String("doc_id", doc.ID),
					zap.Error(err),
				)
				continue
			}
			progressed++
			metrics.DocumentsExtracted.Inc()
		}

		// A pass that moved nothing out of the pending queue (every
		// document failed) must back off, not spin on the same batch.
		if progressed == 0 {
			if !sleepCtx(ctx, idleWait) {
				return
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

type termCount struct {
	term string
	freq int
}

// rankCounts orders terms by frequency descending (alphabetical on ties,
// which keeps extraction deterministic) and applies the frequency window
// and the per-category cap.
func rankCounts(counts map[string]int, limit, minFreq, maxFreq int) []termCount {
	ranked := make([]termCount, 0, len(counts))
	for term, freq := range counts {
		if freq < minFreq || (maxFreq > 0 && freq > maxFreq) {
			continue
		}
		ranked = append(ranked, termCount{term: term, freq: freq})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].freq != ranked[j].freq {
			return ranked[i].freq > ranked[j].freq
		}
		return ranked[i].term < ranked[j].term
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked
}

func (e *Engine) relevance(freq int, divisor float64, totalWords, wordLength int) float64 {
	switch e.opts.Scheme {
	case SchemeNormalized:
		freqScore := float64(freq) / math.Max(float64(totalWords)*0.01, 10)

		lengthBonus := 1.0
		if wordLength >= 4 && wordLength <= 12 {
			lengthBonus = 1.2
		} else if wordLength > 15 {
			lengthBonus = 0.7
		}

		return round2(math.Min(freqScore*lengthBonus, 1.0))
	default:
		return round2(math.Min(float64(freq)/divisor, 1.0))
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
