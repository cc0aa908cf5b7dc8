// Package metrics provides Prometheus metrics for claimcheck.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysesTotal counts orchestrated claim analyses by outcome.
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimcheck",
			Name:      "analyses_total",
			Help:      "Total number of claim analyses by outcome",
		},
		[]string{"outcome"},
	)

	// AnalysisDuration measures end-to-end analysis duration.
	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "claimcheck",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of claim analyses in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"cached"},
	)

	// CacheLookups counts cache lookups by result.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimcheck",
			Name:      "cache_lookups_total",
			Help:      "Total number of result cache lookups",
		},
		[]string{"layer", "result"},
	)

	// CacheEvictions counts entries removed by expiry sweeps.
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "claimcheck",
			Name:      "cache_expired_deleted_total",
			Help:      "Total number of expired cache entries deleted",
		},
	)

	// CacheMemoryEntries reports items held by the in-process memory layer.
	CacheMemoryEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "claimcheck",
			Name:      "cache_memory_entries",
			Help:      "Number of entries in the in-memory cache layer",
		},
	)

	// SearchPages counts search page requests by provider and status.
	SearchPages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimcheck",
			Name:      "search_pages_total",
			Help:      "Total number of search page requests",
		},
		[]string{"provider", "status"},
	)

	// SourcesRetrieved observes the number of unique sources per retrieval.
	SourcesRetrieved = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "claimcheck",
			Name:      "sources_retrieved",
			Help:      "Distribution of unique sources per retrieval",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 75, 100, 200},
		},
	)

	// LLMCalls counts language model calls by kind and status.
	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimcheck",
			Name:      "llm_calls_total",
			Help:      "Total number of language model calls",
		},
		[]string{"provider", "kind", "status"},
	)

	// LLMTokens counts tokens reported by the provider.
	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimcheck",
			Name:      "llm_tokens_total",
			Help:      "Total number of language model tokens used",
		},
		[]string{"provider", "kind"},
	)

	// HTTPRequests counts API requests by route and status code.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claimcheck",
			Name:      "http_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"route", "code"},
	)
)

// Status returns the status label for an error.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordAnalysis records one orchestrated analysis.
func RecordAnalysis(outcome string, cached bool, seconds float64) {
	AnalysesTotal.WithLabelValues(outcome).Inc()
	label := "false"
	if cached {
		label = "true"
	}
	AnalysisDuration.WithLabelValues(label).Observe(seconds)
}

// RecordCacheLookup records a cache lookup. result is hit, miss or error.
func RecordCacheLookup(layer, result string) {
	CacheLookups.WithLabelValues(layer, result).Inc()
}

// RecordSearchPage records one search page request.
func RecordSearchPage(provider string, err error) {
	SearchPages.WithLabelValues(provider, Status(err)).Inc()
}

// RecordLLMCall records one language model call.
func RecordLLMCall(provider, kind string, tokens int, err error) {
	LLMCalls.WithLabelValues(provider, kind, Status(err)).Inc()
	if tokens > 0 {
		LLMTokens.WithLabelValues(provider, kind).Add(float64(tokens))
	}
}
