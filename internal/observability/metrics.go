package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "aircraft_tracker"

// Metrics holds the Prometheus counters, histograms, and gauges for the tracker.
type Metrics struct {
	// Provider metrics.
	ProviderRequests *prometheus.CounterVec // labels: outcome={success,auth_failure,provider_error,transport_failure,circuit_open}
	ProviderDuration prometheus.Histogram
	BreakerState     prometheus.Gauge // 0 closed, 1 half-open, 2 open

	// Retry metrics.
	FetchAttempts  prometheus.Counter
	FetchExhausted prometheus.Counter

	// Refresh cycle metrics.
	Refreshes       *prometheus.CounterVec // labels: result={ok,no_data,render_error,rejected}
	RefreshDuration prometheus.Histogram
	SnapshotSize    prometheus.Histogram
}

// NewMetrics creates and registers all tracker metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates tracker metrics and registers them with reg.
func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.ProviderRequests,
		m.ProviderDuration,
		m.BreakerState,
		m.FetchAttempts,
		m.FetchExhausted,
		m.Refreshes,
		m.RefreshDuration,
		m.SnapshotSize,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "OpenSky /states/all requests by outcome.",
		}, []string{"outcome"}),
		ProviderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "OpenSky request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_circuit_state",
			Help:      "Provider circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
		FetchAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Total fetch attempts made by the retry loop.",
		}),
		FetchExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_exhausted_total",
			Help:      "Fetches that failed on every attempt.",
		}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Refresh cycles by result.",
		}, []string{"result"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a complete fetch, build and render cycle.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		SnapshotSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Number of state records per successful fetch.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}
