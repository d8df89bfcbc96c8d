// Package observability provides Prometheus metrics for the application.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Run metrics
	RunsStarted   prometheus.Counter
	RunsCompleted prometheus.Counter
	RunsFailed    prometheus.Counter
	RunRetries    prometheus.Counter
	RunDuration   prometheus.Histogram

	// Item metrics
	ItemsStarted   prometheus.Counter
	ItemsCompleted prometheus.Counter
	ItemsFailed    prometheus.Counter
	ItemsSkipped   prometheus.Counter

	// Capture metrics
	CapturedURLs prometheus.Counter
	SkippedURLs  prometheus.Counter

	// Fetch metrics
	FetchAttempts *prometheus.CounterVec
	FetchRetries  prometheus.Counter

	// Merge metrics
	MergesTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := NewWith(reg)
	m.registry = reg

	return m
}

// NewWith creates and registers all application metrics on reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RunsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vodgrab",
			Subsystem: "runs",
			Name:      "started_total",
			Help:      "Total number of runs started",
		}),
		RunsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vodgrab",
			Subsystem: "runs",
			Name:      "completed_total",
			Help:      "Total number of runs completed successfully",
		}),
		RunsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vodgrab",
			Subsystem: "runs",
			Name:      "failed_total",
			Help:      "Total number of runs that failed",
		}),
		RunRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vodgrab",
			Subsystem: "runs",
			Name:      "retries_total",
			Help:      "Total number of run-level retries after infrastructure failures",
		}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vodgrab",
			Subsystem: "runs",
			Name:      "duration_seconds",
			Help:      "Histogram of run duration in seconds",
			Buckets:   []float64{10, 30, 60, 300, 600, 1800, 3600},
		}),

		ItemsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vodgrab",
			Subsystem: "items",
			Name:      "started_total",
			Help:      "Total number of items started",
		}),
		ItemsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vodgrab",
			Subsystem: "items",
			Name:      "completed_total",
			Help:      "Total number of items completed successfully",
		}),
		ItemsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vodgrab",
			Subsystem: "items",
			Name:      "failed_total",
			Help:      "Total number of items that failed",
		}),
		ItemsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vodgrab",
			Subsystem: "items",
			Name:      "skipped_total",
			Help:      "Total number of items skipped because they already completed",
		}),

		CapturedURLs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vodgrab",
			Subsystem: "capture",
			Name:      "urls_total",
			Help:      "Total number of stream URLs captured",
		}),
		SkippedURLs: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vodgrab",
			Subsystem: "capture",
			Name:      "skipped_urls_total",
			Help:      "Total number of observed URLs rejected by the capture filter",
		}),

		FetchAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vodgrab",
			Subsystem: "fetch",
			Name:      "attempts_total",
			Help:      "Total number of download attempts",
		}, []string{"status"}),
		FetchRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "vodgrab",
			Subsystem: "fetch",
			Name:      "retries_total",
			Help:      "Total number of download retries after failed attempts",
		}),

		MergesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vodgrab",
			Subsystem: "merge",
			Name:      "total",
			Help:      "Total number of merge operations by outcome",
		}, []string{"outcome"}),
	}
}

// Handler returns the Prometheus HTTP handler for this metrics set.
func (m *Metrics) Handler() http.Handler {
	if m.registry != nil {
		return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	}

	return promhttp.Handler()
}

// RunTimer returns a function to record run duration.
func (m *Metrics) RunTimer() func() {
	start := time.Now()

	return func() {
		m.RunDuration.Observe(time.Since(start).Seconds())
	}
}
