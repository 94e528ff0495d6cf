package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senatai/backend/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.InitSchema())
	return client
}

func testDocument(id, title string) *models.Document {
	now := time.Now()
	return &models.Document{
		ID:        id,
		Title:     title,
		Summary:   "summary of " + title,
		Body:      "body of " + title,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestUpsertDocument_RoundTrip(t *testing.T) {
	client := newTestClient(t)

	doc := testDocument("doc-1", "Clean Transit Funding")
	require.NoError(t, client.UpsertDocument(doc))

	got, err := client.GetDocument("doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Clean Transit Funding", got.Title)
	assert.Equal(t, doc.Summary, got.Summary)

	// Upserting the same id twice must not duplicate.
	doc.Title = "Clean Transit Funding Act"
	require.NoError(t, client.UpsertDocument(doc))

	got, err = client.GetDocument("doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Clean Transit Funding Act", got.Title)

	docs, err := client.ListRecentDocuments(10)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDocumentsPendingExtraction_StampAndReset(t *testing.T) {
	client := newTestClient(t)

	doc := testDocument("doc-1", "Tiny Bill")
	require.NoError(t, client.UpsertDocument(doc))

	pending, err := client.DocumentsPendingExtraction(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// Stamping an attempt removes the document from the queue even when
	// it produced no keyword rows.
	require.NoError(t, client.MarkDocumentExtracted("doc-1"))

	pending, err = client.DocumentsPendingExtraction(10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// New content re-queues the document for extraction.
	doc.Body = "a freshly amended body"
	require.NoError(t, client.UpsertDocument(doc))

	pending, err = client.DocumentsPendingExtraction(10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestGetDocument_NotFound(t *testing.T) {
	client := newTestClient(t)

	_, err := client.GetDocument("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertKeywords_Idempotent(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.UpsertDocument(testDocument("doc-1", "Housing Bill")))

	keywords := []models.Keyword{
		{DocumentID: "doc-1", Term: "housing", Category: models.CategoryNoun, Frequency: 5, Relevance: 1.0},
		{DocumentID: "doc-1", Term: "affordable", Category: models.CategoryAdjective, Frequency: 3, Relevance: 0.75},
	}

	written, err := client.UpsertKeywords(context.Background(), "doc-1", keywords)
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	// Re-extraction replaces rows in place.
	keywords[0].Frequency = 7
	_, err = client.UpsertKeywords(context.Background(), "doc-1", keywords)
	require.NoError(t, err)

	stored, err := client.GetDocumentKeywords("doc-1")
	require.NoError(t, err)
	require.Len(t, stored, 2)

	byTerm := make(map[string]models.Keyword)
	for _, kw := range stored {
		byTerm[kw.Term] = kw
	}
	assert.Equal(t, 7, byTerm["housing"].Frequency)
	assert.Equal(t, models.CategoryAdjective, byTerm["affordable"].Category)
}

func TestLookupKeywords_RanksByMatchCountFirst(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.UpsertDocument(testDocument("doc-a", "Carbon Emission Act")))
	require.NoError(t, client.UpsertDocument(testDocument("doc-b", "Carbon Tax Act")))

	// doc-a matches two query terms with modest relevance; doc-b matches
	// one term with maximal relevance. Overlap breadth wins.
	_, err := client.UpsertKeywords(ctx, "doc-a", []models.Keyword{
		{DocumentID: "doc-a", Term: "emission", Category: models.CategoryNoun, Frequency: 4, Relevance: 0.5},
		{DocumentID: "doc-a", Term: "carbon", Category: models.CategoryNoun, Frequency: 3, Relevance: 0.3},
	})
	require.NoError(t, err)

	_, err = client.UpsertKeywords(ctx, "doc-b", []models.Keyword{
		{DocumentID: "doc-b", Term: "carbon", Category: models.CategoryNoun, Frequency: 9, Relevance: 1.0},
	})
	require.NoError(t, err)

	matches, err := client.LookupKeywords([]string{"carbon", "emission"}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "doc-a", matches[0].DocumentID)
	assert.Equal(t, 2, matches[0].MatchCount)
	assert.InDelta(t, 0.8, matches[0].TotalRelevance, 1e-9)
	assert.ElementsMatch(t, []string{"carbon", "emission"}, matches[0].MatchedTerms)

	assert.Equal(t, "doc-b", matches[1].DocumentID)
	assert.Equal(t, 1, matches[1].MatchCount)
}

func TestLookupKeywords_NoTerms(t *testing.T) {
	client := newTestClient(t)

	matches, err := client.LookupKeywords(nil, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRecordResponse_RewardAndCounter(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.EnsureSenatair("alice", 25.0))

	flatReward := func(dailyCount int) float64 {
		if dailyCount == 0 {
			return 1.0
		}
		return 0.5
	}

	resp := &models.Response{
		ID:              "resp-1",
		SenatairID:      "alice",
		QuestionText:    "How supportive are you?",
		Score:           4,
		MatchedKeywords: []string{"carbon", "emission"},
		CreatedAt:       time.Now(),
	}

	reward, balance, err := client.RecordResponse(resp, flatReward)
	require.NoError(t, err)
	assert.Equal(t, 1.0, reward)
	assert.InDelta(t, 26.0, balance, 1e-9)

	resp2 := *resp
	resp2.ID = "resp-2"
	reward, balance, err = client.RecordResponse(&resp2, flatReward)
	require.NoError(t, err)
	assert.Equal(t, 0.5, reward)
	assert.InDelta(t, 26.5, balance, 1e-9)

	s, err := client.GetSenatair("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, s.DailyCount)

	responses, err := client.GetResponses("alice")
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, []string{"carbon", "emission"}, responses[0].MatchedKeywords)
}

func TestRecordResponse_CreatesAccountOnDemand(t *testing.T) {
	client := newTestClient(t)

	// Storage-level safety net only: callers are expected to open the
	// account with the starting balance first (the reward scheduler
	// does), so the inline row carries no balance of its own.
	resp := &models.Response{
		ID:           "resp-1",
		SenatairID:   "bob",
		QuestionText: "q",
		Score:        3,
		CreatedAt:    time.Now(),
	}

	reward, balance, err := client.RecordResponse(resp, func(int) float64 { return 1.0 })
	require.NoError(t, err)
	assert.Equal(t, 1.0, reward)
	assert.Equal(t, 1.0, balance)
}

func TestRecordResponse_DailyRollover(t *testing.T) {
	client := newTestClient(t)

	yesterday := time.Now().AddDate(0, 0, -1)
	resp := &models.Response{
		ID:           "resp-old",
		SenatairID:   "carol",
		QuestionText: "q",
		Score:        2,
		CreatedAt:    yesterday,
	}

	countsSeen := []int{}
	record := func(dailyCount int) float64 {
		countsSeen = append(countsSeen, dailyCount)
		return 1.0
	}

	_, _, err := client.RecordResponse(resp, record)
	require.NoError(t, err)

	// A response dated today starts a fresh daily count.
	resp2 := &models.Response{
		ID:           "resp-new",
		SenatairID:   "carol",
		QuestionText: "q",
		Score:        2,
		CreatedAt:    time.Now(),
	}
	_, _, err = client.RecordResponse(resp2, record)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0}, countsSeen)
}

func TestPredictionFeedbackRoundTrip(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, client.UpsertDocument(testDocument("doc-1", "Water Act")))
	require.NoError(t, client.EnsureSenatair("alice", 25.0))

	pred := &models.Prediction{
		ID:            "pred-1",
		SenatairID:    "alice",
		DocumentID:    "doc-1",
		Label:         models.LabelSupport,
		ScoreEstimate: 4.2,
		Confidence:    60.0,
		Explanation:   "3 relevant responses out of 5",
		CreatedAt:     time.Now(),
	}
	require.NoError(t, client.InsertPrediction(pred))

	got, err := client.GetPrediction("pred-1")
	require.NoError(t, err)
	assert.Equal(t, models.LabelSupport, got.Label)
	assert.InDelta(t, 60.0, got.Confidence, 1e-9)

	require.NoError(t, client.InsertPredictionFeedback(&models.PredictionFeedback{
		PredictionID: "pred-1",
		SenatairID:   "alice",
		Agreement:    true,
		CreatedAt:    time.Now(),
	}))

	outcomes, err := client.PredictionOutcomes()
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, models.LabelSupport, outcomes[0].Label)
	assert.True(t, outcomes[0].Agreement)
}
