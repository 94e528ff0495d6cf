package matcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/senatai/backend/internal/cache/redis"
	"github.com/senatai/backend/internal/metrics"
	"github.com/senatai/backend/internal/storage/models"
	"github.com/senatai/backend/internal/storage/sqlite"
	"github.com/senatai/backend/internal/textproc"
	"github.com/senatai/backend/pkg/circuitbreaker"
	"github.com/senatai/backend/pkg/logger"
	"github.com/senatai/backend/pkg/utils"
)

type Options struct {
	DefaultLimit int
	CacheTTL     time.Duration
}

func DefaultOptions() Options {
	return Options{
		DefaultLimit: 6,
		CacheTTL:     10 * time.Minute,
	}
}

// Result is one ranked document for a free-text concern.
type Result struct {
	Document           models.Document `json:"document"`
	MatchCount         int             `json:"match_count"`
	AggregateRelevance float64         `json:"aggregate_relevance"`
	TotalFrequency     int             `json:"total_frequency"`
	MatchedTerms       []string        `json:"matched_terms"`
}

// Matcher ranks indexed documents against free-text input. The cache is
// optional; when Redis is unavailable the breaker trips and matching
// proceeds uncached.
type Matcher struct {
	db         *sqlite.Client
	normalizer *textproc.Normalizer
	cache      *redis.Client
	breaker    *circuitbreaker.CircuitBreaker
	opts       Options
}

func NewMatcher(db *sqlite.Client, normalizer *textproc.Normalizer, cache *redis.Client, opts Options) *Matcher {
	if opts.DefaultLimit == 0 {
		opts = DefaultOptions()
	}

	return &Matcher{
		db:         db,
		normalizer: normalizer,
		cache:      cache,
		breaker:    circuitbreaker.NewCircuitBreaker("match-cache", circuitbreaker.Config{Logger: logger.Log}),
		opts:       opts,
	}
}

// DefaultLimit is the result cap applied when a caller passes no limit.
func (m *Matcher) DefaultLimit() int {
	return m.opts.DefaultLimit
}

// Match extracts query terms from the free text and returns at most
// limit documents ranked by match_count, then aggregate relevance, then
// raw frequency. An empty result is a valid outcome, not an error; it
// also returns the extracted query terms so callers can tie follow-up
// questions back to them.
func (m *Matcher) Match(ctx context.Context, text string, limit int) ([]Result, []string, error) {
	start := time.Now()

	if limit <= 0 {
		limit = m.opts.DefaultLimit
	}

	terms := m.normalizer.QueryTerms(text)
	if len(terms) == 0 {
		metrics.MatchesTotal.WithLabelValues("empty").Inc()
		return nil, nil, nil
	}

	cacheKey := utils.HashString(fmt.Sprintf("%s|%d", text, limit))

	if cached, ok := m.fromCache(ctx, cacheKey); ok {
		metrics.MatchesTotal.WithLabelValues("cached").Inc()
		return cached, terms, nil
	}

	rows, err := m.db.LookupKeywords(terms, limit)
	if err != nil {
		metrics.MatchesTotal.WithLabelValues("error").Inc()
		return nil, terms, fmt.Errorf("keyword lookup failed: %w", err)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		doc, err := m.db.GetDocument(row.DocumentID)
		if err != nil {
			logger.Warn("Matched document missing", zap.String("doc_id", row.DocumentID), zap.Error(err))
			continue
		}

		results = append(results, Result{
			Document:           *doc,
			MatchCount:         row.MatchCount,
			AggregateRelevance: row.TotalRelevance,
			TotalFrequency:     row.TotalFrequency,
			MatchedTerms:       row.MatchedTerms,
		})
	}

	m.toCache(ctx, cacheKey, results)

	status := "ok"
	if len(results) == 0 {
		status = "empty"
	}
	metrics.MatchesTotal.WithLabelValues(status).Inc()
	metrics.MatchResultsCount.Observe(float64(len(results)))
	metrics.MatchDuration.Observe(time.Since(start).Seconds())

	logger.Info("Concern matched",
		zap.Int("query_terms", len(terms)),
		zap.Int("results", len(results)),
	)

	return results, terms, nil
}

func (m *Matcher) fromCache(ctx context.Context, key string) ([]Result, bool) {
	if m.cache == nil {
		return nil, false
	}

	var results []Result
	found := false

	err := m.breaker.Execute(ctx, func() error {
		var err error
		found, err = m.cache.GetMatches(ctx, key, &results)
		return err
	})
	if err != nil {
		metrics.CacheMisses.WithLabelValues("match").Inc()
		return nil, false
	}

	if found {
		metrics.CacheHits.WithLabelValues("match").Inc()
		return results, true
	}

	metrics.CacheMisses.WithLabelValues("match").Inc()
	return nil, false
}

func (m *Matcher) toCache(ctx context.Context, key string, results []Result) {
	if m.cache == nil {
		return
	}

	err := m.breaker.Execute(ctx, func() error {
		return m.cache.SetMatches(ctx, key, results, m.opts.CacheTTL)
	})
	if err != nil {
		logger.Debug("Match cache write skipped", zap.Error(err))
	}
}
