package evaluation

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senatai/backend/internal/storage/models"
	"github.com/senatai/backend/internal/storage/sqlite"
)

func newTestAuditor(t *testing.T) (*Auditor, *sqlite.Client) {
	t.Helper()

	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())

	return NewAuditor(db), db
}

func seedPrediction(t *testing.T, db *sqlite.Client, id, senatairID, label string, confidence float64) {
	t.Helper()

	now := time.Now()
	require.NoError(t, db.EnsureSenatair(senatairID, 25.0))
	require.NoError(t, db.UpsertDocument(&models.Document{
		ID:        "doc-" + id,
		Title:     "Document",
		Body:      "body",
		CreatedAt: now,
		UpdatedAt: now,
	}))
	require.NoError(t, db.InsertPrediction(&models.Prediction{
		ID:            id,
		SenatairID:    senatairID,
		DocumentID:    "doc-" + id,
		Label:         label,
		ScoreEstimate: 4.0,
		Confidence:    confidence,
		CreatedAt:     now,
	}))
}

func TestRecordFeedback_OnlyPredictedPersonCounts(t *testing.T) {
	a, db := newTestAuditor(t)
	seedPrediction(t, db, "pred-1", "alice", models.LabelSupport, 80.0)

	assert.Error(t, a.RecordFeedback("pred-1", "mallory", true))
	assert.NoError(t, a.RecordFeedback("pred-1", "alice", true))
}

func TestRecordFeedback_UnknownPrediction(t *testing.T) {
	a, _ := newTestAuditor(t)

	assert.Error(t, a.RecordFeedback("missing", "alice", true))
}

func TestBuildReport_AggregatesPerLabel(t *testing.T) {
	a, db := newTestAuditor(t)

	seedPrediction(t, db, "pred-1", "alice", models.LabelSupport, 80.0)
	seedPrediction(t, db, "pred-2", "bob", models.LabelSupport, 60.0)
	seedPrediction(t, db, "pred-3", "carol", models.LabelOppose, 90.0)

	require.NoError(t, a.RecordFeedback("pred-1", "alice", true))
	require.NoError(t, a.RecordFeedback("pred-2", "bob", false))
	require.NoError(t, a.RecordFeedback("pred-3", "carol", true))

	report, err := a.BuildReport()
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalFeedback)
	assert.InDelta(t, 2.0/3.0, report.OverallAgreement, 1e-9)
	require.Len(t, report.ByLabel, 2)

	support := report.ByLabel[0]
	assert.Equal(t, models.LabelSupport, support.Label)
	assert.Equal(t, 2, support.Total)
	assert.Equal(t, 1, support.Agreed)
	assert.InDelta(t, 0.5, support.AgreementRate, 1e-9)
	assert.InDelta(t, 70.0, support.AvgConfidence, 1e-9)

	oppose := report.ByLabel[1]
	assert.Equal(t, models.LabelOppose, oppose.Label)
	assert.Equal(t, 1, oppose.Total)
}

func TestBuildReport_Empty(t *testing.T) {
	a, _ := newTestAuditor(t)

	report, err := a.BuildReport()
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalFeedback)
	assert.Equal(t, 0.0, report.OverallAgreement)
	assert.Empty(t, report.ByLabel)
}
