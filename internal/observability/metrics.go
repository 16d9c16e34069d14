package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_explorer"

// Metrics holds the Prometheus counters, histograms, and gauges for the service.
type Metrics struct {
	// Query façade metrics.
	Queries       *prometheus.CounterVec // labels: outcome={success,error}
	QueryDuration prometheus.Histogram
	DBState       prometheus.Gauge // see duck.State
	InitDuration  prometheus.Histogram

	// Observation ingest metrics.
	MessagesConsumed   prometheus.Counter
	ObservationsLoaded prometheus.Counter
	TransformErrors    prometheus.Counter
	DeadLettered       prometheus.Counter
	PipelineRunning    prometheus.Gauge
	BatchSize          prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Queries,
		m.QueryDuration,
		m.DBState,
		m.InitDuration,
		m.MessagesConsumed,
		m.ObservationsLoaded,
		m.TransformErrors,
		m.DeadLettered,
		m.PipelineRunning,
		m.BatchSize,
		m.GeocodeRequests,
		m.GeocodeCache,
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
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "SQL statements executed against the embedded database, by outcome.",
		}, []string{"outcome"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Wall-clock duration of a query including result normalization.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		DBState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_state",
			Help:      "Database lifecycle state: 0 unstarted, 1 initializing, 2 ready, 3 failed, 4 closed.",
		}),
		InitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "init_duration_seconds",
			Help:      "Duration of database initialization, including data file download.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Total observation messages read from the source topic.",
		}),
		ObservationsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_loaded_total",
			Help:      "Total observations appended to the weather table.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total observation messages that failed validation.",
		}),
		DeadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dead_lettered_total",
			Help:      "Total invalid messages published to the dead-letter topic.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the ingest pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
	}
}
