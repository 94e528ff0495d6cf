package evaluation

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/senatai/backend/internal/storage/models"
	"github.com/senatai/backend/internal/storage/sqlite"
	"github.com/senatai/backend/pkg/logger"
)

// Auditor tracks how stored predictions hold up against the people they
// were made about: each person can confirm or reject a prediction, and
// the report aggregates agreement per label.
type Auditor struct {
	db *sqlite.Client
}

type LabelReport struct {
	Label         string  `json:"label"`
	Total         int     `json:"total"`
	Agreed        int     `json:"agreed"`
	AgreementRate float64 `json:"agreement_rate"`
	AvgConfidence float64 `json:"avg_confidence"`
}

type Report struct {
	TotalFeedback    int           `json:"total_feedback"`
	OverallAgreement float64       `json:"overall_agreement"`
	ByLabel          []LabelReport `json:"by_label"`
}

func NewAuditor(db *sqlite.Client) *Auditor {
	return &Auditor{db: db}
}

// RecordFeedback stores whether the person agrees with a prediction made
// about them. Only the predicted person's feedback counts.
func (a *Auditor) RecordFeedback(predictionID, senatairID string, agreement bool) error {
	pred, err := a.db.GetPrediction(predictionID)
	if err != nil {
		return fmt.Errorf("failed to load prediction: %w", err)
	}

	if pred.SenatairID != senatairID {
		return fmt.Errorf("prediction %s does not belong to senatair %s", predictionID, senatairID)
	}

	feedback := &models.PredictionFeedback{
		PredictionID: predictionID,
		SenatairID:   senatairID,
		Agreement:    agreement,
		CreatedAt:    time.Now(),
	}

	if err := a.db.InsertPredictionFeedback(feedback); err != nil {
		return err
	}

	logger.Info("Prediction audited",
		zap.String("prediction_id", predictionID),
		zap.String("label", pred.Label),
		zap.Bool("agreement", agreement),
	)

	return nil
}

func (a *Auditor) BuildReport() (*Report, error) {
	outcomes, err := a.db.PredictionOutcomes()
	if err != nil {
		return nil, err
	}

	type acc struct {
		total      int
		agreed     int
		confidence float64
	}
	byLabel := make(map[string]*acc)

	agreedTotal := 0
	for _, o := range outcomes {
		entry, ok := byLabel[o.Label]
		if !ok {
			entry = &acc{}
			byLabel[o.Label] = entry
		}

		entry.total++
		entry.confidence += o.Confidence
		if o.Agreement {
			entry.agreed++
			agreedTotal++
		}
	}

	report := &Report{TotalFeedback: len(outcomes)}
	if len(outcomes) > 0 {
		report.OverallAgreement = float64(agreedTotal) / float64(len(outcomes))
	}

	for _, label := range []string{models.LabelSupport, models.LabelOppose, models.LabelNeutral, models.LabelUndecided} {
		entry, ok := byLabel[label]
		if !ok {
			continue
		}

		report.ByLabel = append(report.ByLabel, LabelReport{
			Label:         label,
			Total:         entry.total,
			Agreed:        entry.agreed,
			AgreementRate: float64(entry.agreed) / float64(entry.total),
			AvgConfidence: entry.confidence / float64(entry.total),
		})
	}

	return report, nil
}
