package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gheop3s"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

// Screening metrics
var (
	ScreeningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "screenings_total",
			Help:      "Total number of regimens screened against the catalog",
		},
		[]string{"source"}, // "api", "cds-hooks" or "cli"
	)

	ScreeningDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "screening_duration_seconds",
			Help:      "Catalog evaluation time distribution",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		},
	)

	RulesTriggeredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rules_triggered_total",
			Help:      "Total number of times each criterion matched",
		},
		[]string{"rule"},
	)

	CDSFeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cds_feedback_total",
			Help:      "CDS Hooks card feedback by outcome",
		},
		[]string{"outcome"},
	)
)

// Drug reference metrics
var (
	DrugCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drug_cache_lookups_total",
			Help:      "Drug reference cache lookups by result",
		},
		[]string{"result"}, // "hit", "miss" or "error"
	)

	DrugsImported = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drugs_imported_total",
			Help:      "Total number of drug reference rows imported",
		},
	)
)
