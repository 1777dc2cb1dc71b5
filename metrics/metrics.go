package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulescope_searches_total",
			Help: "Total number of catalog searches executed",
		},
		[]string{"mode"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rulescope_search_duration_seconds",
			Help:    "Time taken to filter the catalog for a query",
			Buckets: prometheus.DefBuckets,
		},
	)

	FlowchartsCompiled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rulescope_flowcharts_compiled_total",
			Help: "Total number of Mermaid flowcharts compiled",
		},
	)

	DetectionParses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rulescope_detection_parses_total",
			Help: "Total number of detection block parses",
		},
		[]string{"result"},
	)

	IndexRules = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rulescope_index_rules",
			Help: "Number of rules in the loaded index",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rulescope_active_sessions",
			Help: "Number of live UI sessions",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rulescope_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)
