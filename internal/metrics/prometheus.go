package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "senatai_match_duration_seconds",
			Help:    "Concern matching duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
	)

	MatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "senatai_matches_total",
			Help: "Total match requests processed",
		},
		[]string{"status"},
	)

	MatchResultsCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "senatai_match_results_count",
			Help:    "Number of documents returned per match",
			Buckets: []float64{0, 1, 2, 3, 5, 6, 10},
		},
	)

	PredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "senatai_predictions_total",
			Help: "Total stance predictions produced",
		},
		[]string{"label"},
	)

	PredictionConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "senatai_prediction_confidence",
			Help:    "Confidence of produced predictions in percent",
			Buckets: []float64{0, 10, 25, 50, 75, 90, 100},
		},
	)

	ResponsesRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "senatai_responses_recorded_total",
			Help: "Total graded responses appended to the ledger",
		},
	)

	RewardsGranted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "senatai_policap_granted_total",
			Help: "Total policap granted for responses",
		},
	)

	DocumentsExtracted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "senatai_documents_extracted_total",
			Help: "Total documents processed by keyword extraction",
		},
	)

	KeywordsWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "senatai_keywords_written_total",
			Help: "Total keyword rows upserted",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "senatai_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "senatai_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(MatchDuration)
	prometheus.MustRegister(MatchesTotal)
	prometheus.MustRegister(MatchResultsCount)
	prometheus.MustRegister(PredictionsTotal)
	prometheus.MustRegister(PredictionConfidence)
	prometheus.MustRegister(ResponsesRecorded)
	prometheus.MustRegister(RewardsGranted)
	prometheus.MustRegister(DocumentsExtracted)
	prometheus.MustRegister(KeywordsWritten)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
