package extraction

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senatai/backend/internal/storage/models"
	"github.com/senatai/backend/internal/storage/sqlite"
	"github.com/senatai/backend/internal/textproc"
)

func newTestEngine(opts Options) *Engine {
	return NewEngine(nil, textproc.NewNormalizer(), opts)
}

func newStoredEngine(t *testing.T) (*Engine, *sqlite.Client) {
	t.Helper()

	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())

	return NewEngine(db, textproc.NewNormalizer(), DefaultOptions()), db
}

func TestExtract_ShortDocumentYieldsNothing(t *testing.T) {
	e := newTestEngine(DefaultOptions())

	keywords, err := e.Extract(&models.Document{ID: "doc-1", Title: "Short"})
	require.NoError(t, err)
	assert.Empty(t, keywords)
}

func TestExtract_RepeatedNounsSurface(t *testing.T) {
	e := newTestEngine(DefaultOptions())

	sentence := "The new regulation requires every factory to report pollution levels. " +
		"Pollution from each factory is measured monthly, and the regulation " +
		"penalizes any factory exceeding its pollution quota under the regulation."
	doc := &models.Document{
		ID:    "doc-1",
		Title: "Factory Pollution Reporting",
		Body:  sentence,
	}

	keywords, err := e.Extract(doc)
	require.NoError(t, err)
	require.NotEmpty(t, keywords)

	terms := make(map[string]models.Keyword)
	for _, kw := range keywords {
		terms[kw.Term] = kw

		assert.Contains(t, []string{
			models.CategoryNoun, models.CategoryAdjective, models.CategoryEntity,
		}, kw.Category)
		assert.Greater(t, kw.Relevance, 0.0)
		assert.LessOrEqual(t, kw.Relevance, 1.0)
		assert.Equal(t, strings.ToLower(kw.Term), kw.Term, "terms are normalized to lowercase")
	}

	assert.Contains(t, terms, "factory")
	assert.Contains(t, terms, "pollution")
	assert.Contains(t, terms, "regulation")
	assert.GreaterOrEqual(t, terms["factory"].Frequency, 3)
}

func TestExtract_Deterministic(t *testing.T) {
	e := newTestEngine(DefaultOptions())

	doc := &models.Document{
		ID:    "doc-1",
		Title: "Transit Budget Proposal",
		Body: "The transit budget allocates funding for transit projects across the " +
			"region. Funding decisions follow the budget committee review, and every " +
			"transit project must justify its funding before the budget is final.",
	}

	first, err := e.Extract(doc)
	require.NoError(t, err)
	second, err := e.Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestExtractAndStore_ShortDocumentLeavesPendingQueue(t *testing.T) {
	e, db := newStoredEngine(t)

	now := time.Now()
	doc := &models.Document{
		ID:        "doc-1",
		Title:     "Tiny",
		Body:      "too short",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.UpsertDocument(doc))

	pending, err := db.DocumentsPendingExtraction(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	written, err := e.ExtractAndStore(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 0, written)

	// A zero-keyword yield is a policy outcome, not unfinished work: the
	// document must not be handed to the batch runner again and again.
	pending, err = db.DocumentsPendingExtraction(10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRelevance_SimpleScheme(t *testing.T) {
	e := newTestEngine(DefaultOptions())

	// freq/divisor capped at 1.0: four occurrences saturate, three score
	// three quarters.
	assert.Equal(t, 1.0, e.relevance(4, 4, 500, 8))
	assert.Equal(t, 0.75, e.relevance(3, 4, 500, 6))
	assert.Equal(t, 0.5, e.relevance(2, 4, 500, 6))
	assert.Equal(t, 1.0, e.relevance(20, 4, 500, 6))
}

func TestRelevance_NormalizedScheme(t *testing.T) {
	opts := DefaultOptions()
	opts.Scheme = SchemeNormalized
	e := newTestEngine(opts)

	// Short documents use the floor of 10 as the divisor; mid-length
	// words get a 1.2 bonus.
	assert.InDelta(t, 0.48, e.relevance(4, 4, 500, 8), 1e-9)

	// Long words are discounted.
	assert.InDelta(t, 0.28, e.relevance(4, 4, 500, 18), 1e-9)

	// Large documents scale the divisor with length.
	assert.InDelta(t, 0.24, e.relevance(4, 4, 2000, 8), 1e-9)

	// Never exceeds 1.0.
	assert.Equal(t, 1.0, e.relevance(50, 4, 500, 8))
}

func TestRankCounts_WindowAndCap(t *testing.T) {
	counts := map[string]int{
		"alpha":   1,  // below the window
		"bravo":   2,
		"charlie": 5,
		"delta":   25, // above the window
		"echo":    5,
	}

	ranked := rankCounts(counts, 2, 2, 20)

	require.Len(t, ranked, 2)
	assert.Equal(t, "charlie", ranked[0].term)
	assert.Equal(t, "echo", ranked[1].term)
}

func TestRankCounts_TiesAreAlphabetical(t *testing.T) {
	counts := map[string]int{"zulu": 3, "alpha": 3, "mike": 3}

	ranked := rankCounts(counts, 10, 2, 20)

	require.Len(t, ranked, 3)
	assert.Equal(t, "alpha", ranked[0].term)
	assert.Equal(t, "mike", ranked[1].term)
	assert.Equal(t, "zulu", ranked[2].term)
}
