package matcher

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senatai/backend/internal/storage/models"
	"github.com/senatai/backend/internal/storage/sqlite"
	"github.com/senatai/backend/internal/textproc"
)

func newTestMatcher(t *testing.T) (*Matcher, *sqlite.Client) {
	t.Helper()

	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())

	return NewMatcher(db, textproc.NewNormalizer(), nil, DefaultOptions()), db
}

func seedIndexedDocument(t *testing.T, db *sqlite.Client, id, title string, keywords ...models.Keyword) {
	t.Helper()

	now := time.Now()
	require.NoError(t, db.UpsertDocument(&models.Document{
		ID:        id,
		Title:     title,
		Body:      "body",
		CreatedAt: now,
		UpdatedAt: now,
	}))

	_, err := db.UpsertKeywords(context.Background(), id, keywords)
	require.NoError(t, err)
}

func TestMatch_EmptyTextIsNotAnError(t *testing.T) {
	m, _ := newTestMatcher(t)

	results, terms, err := m.Match(context.Background(), "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, terms)
}

func TestMatch_NoOverlapIsNotAnError(t *testing.T) {
	m, db := newTestMatcher(t)
	seedIndexedDocument(t, db, "doc-1", "Water Act",
		models.Keyword{DocumentID: "doc-1", Term: "water", Category: models.CategoryNoun, Frequency: 5, Relevance: 1.0},
	)

	results, terms, err := m.Match(context.Background(), "I am worried about potholes on my street", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotEmpty(t, terms)
}

func TestMatch_FindsOverlappingDocuments(t *testing.T) {
	m, db := newTestMatcher(t)
	seedIndexedDocument(t, db, "doc-1", "Pothole Repair Fund",
		models.Keyword{DocumentID: "doc-1", Term: "pothole", Category: models.CategoryNoun, Frequency: 4, Relevance: 1.0},
		models.Keyword{DocumentID: "doc-1", Term: "potholes", Category: models.CategoryNoun, Frequency: 4, Relevance: 1.0},
		models.Keyword{DocumentID: "doc-1", Term: "street", Category: models.CategoryNoun, Frequency: 2, Relevance: 0.5},
	)

	results, terms, err := m.Match(context.Background(), "I am worried about potholes on my street", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.NotEmpty(t, terms)

	top := results[0]
	assert.Equal(t, "doc-1", top.Document.ID)
	assert.Equal(t, "Pothole Repair Fund", top.Document.Title)
	assert.GreaterOrEqual(t, top.MatchCount, 1)
	assert.NotEmpty(t, top.MatchedTerms)
}

func TestMatch_RankingIsMonotonic(t *testing.T) {
	m, db := newTestMatcher(t)
	seedIndexedDocument(t, db, "doc-1", "Street Repair",
		models.Keyword{DocumentID: "doc-1", Term: "street", Category: models.CategoryNoun, Frequency: 2, Relevance: 0.5},
	)
	seedIndexedDocument(t, db, "doc-2", "Street and Pothole Repair",
		models.Keyword{DocumentID: "doc-2", Term: "street", Category: models.CategoryNoun, Frequency: 2, Relevance: 0.5},
		models.Keyword{DocumentID: "doc-2", Term: "pothole", Category: models.CategoryNoun, Frequency: 3, Relevance: 0.75},
		models.Keyword{DocumentID: "doc-2", Term: "potholes", Category: models.CategoryNoun, Frequency: 3, Relevance: 0.75},
	)

	results, _, err := m.Match(context.Background(), "I am worried about potholes on my street", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// Broader keyword overlap outranks a narrower one, and the ranking
	// never increases down the list.
	assert.Equal(t, "doc-2", results[0].Document.ID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].MatchCount, results[i].MatchCount)
	}
}

func TestDefaultLimit_FollowsOptions(t *testing.T) {
	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())

	m := NewMatcher(db, textproc.NewNormalizer(), nil, Options{DefaultLimit: 4, CacheTTL: time.Minute})
	assert.Equal(t, 4, m.DefaultLimit())

	m = NewMatcher(db, textproc.NewNormalizer(), nil, DefaultOptions())
	assert.Equal(t, DefaultOptions().DefaultLimit, m.DefaultLimit())
}

func TestMatch_RespectsLimit(t *testing.T) {
	m, db := newTestMatcher(t)
	for _, id := range []string{"doc-1", "doc-2", "doc-3"} {
		seedIndexedDocument(t, db, id, "Street Bill "+id,
			models.Keyword{DocumentID: id, Term: "street", Category: models.CategoryNoun, Frequency: 2, Relevance: 0.5},
		)
	}

	results, _, err := m.Match(context.Background(), "street street street problems", 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(results), 2)
}
