package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "healthmap"

// Metrics holds the Prometheus counters, histograms, and gauges for scoring,
// correlation, and event publishing.
type Metrics struct {
	AssessmentsScored *prometheus.CounterVec // labels: priority
	SignalsRecorded   *prometheus.CounterVec // labels: level

	CorrelationRuns     prometheus.Counter
	CorrelationDuration prometheus.Histogram
	AreasByRiskLevel    *prometheus.GaugeVec // labels: level

	EventsPublished *prometheus.CounterVec // labels: type
	PublishErrors   prometheus.Counter
	SweepRunning    prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.AssessmentsScored,
		m.SignalsRecorded,
		m.CorrelationRuns,
		m.CorrelationDuration,
		m.AreasByRiskLevel,
		m.EventsPublished,
		m.PublishErrors,
		m.SweepRunning,
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
		AssessmentsScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_scored_total",
			Help:      "Assessments scored on create or update, by resulting priority.",
		}, []string{"priority"}),
		SignalsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signals_recorded_total",
			Help:      "Health signals stored, by signal level.",
		}, []string{"level"}),
		CorrelationRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "correlation_runs_total",
			Help:      "Completed correlation passes.",
		}),
		CorrelationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "correlation_duration_seconds",
			Help:      "Duration of a correlation pass including the storage snapshot.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		AreasByRiskLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "areas_by_risk_level",
			Help:      "Areas per risk level in the most recent correlation pass.",
		}, []string{"level"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events written to the events topic, by event type.",
		}, []string{"type"}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed event publish attempts.",
		}),
		SweepRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sweep_running",
			Help:      "1 when the scheduled correlation sweep is active, 0 when stopped.",
		}),
	}
}
