package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for pipeline runs.
//
// Registered once per process, all names are prefixed with "pipeline_":
//   - pipeline_runs_total{result} - runs by result ("ok" or "fatal")
//   - pipeline_stage_outcomes_total{stage,outcome} - "ok" or "degraded" per stage
//   - pipeline_events_processed_total - input rows that went through the normalizer
//   - pipeline_duration_seconds{operation} - wall time of load and segmentation
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	StageOutcomesTotal *prometheus.CounterVec
	EventsProcessed    prometheus.Counter
	Duration           *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pipeline_runs_total",
					Help: "Total number of pipeline runs by result",
				},
				[]string{"result"},
			),
			StageOutcomesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "pipeline_stage_outcomes_total",
					Help: "Total number of stage executions by outcome",
				},
				[]string{"stage", "outcome"},
			),
			EventsProcessed: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "pipeline_events_processed_total",
					Help: "Total number of clickstream rows normalized",
				},
			),
			Duration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "pipeline_duration_seconds",
					Help:    "Duration of pipeline operations in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"operation"},
			),
		}
	})
	return globalMetrics
}

func (m *Metrics) RecordRun(result string) {
	m.RunsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordStage(stage, outcome string) {
	m.StageOutcomesTotal.WithLabelValues(stage, outcome).Inc()
}

func (m *Metrics) ObserveDuration(operation string, seconds float64) {
	m.Duration.WithLabelValues(operation).Observe(seconds)
}
