// Package telemetry wires structured logging and Prometheus metrics for the
// core pipeline. Grounded on the teacher's logrus usage (logger.go, wind's
// log.WithError/WithField calls throughout) and rajverma-data-weather-
// platform's pkg/metrics collector for the Prometheus side, which the
// teacher repo does not itself use.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

// Collector is the process-wide metrics registry for the three pipeline
// stages (C3 mesh build, C4 weather bind, C5 route calculation) plus the
// error-kind counters the naverrs taxonomy feeds.
type Collector struct {
	StageDuration  *prometheus.HistogramVec
	StageErrors    *prometheus.CounterVec
	CandidatesRun  prometheus.Counter
	CandidatesFail *prometheus.CounterVec
	MeshVertices   prometheus.Histogram
}

// NewCollector registers the pipeline's metric families under namespace.
func NewCollector(namespace string) *Collector {
	return &Collector{
		StageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of a pipeline stage (mesh, weather, route) in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
		StageErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_errors_total",
				Help:      "Pipeline stage failures by error kind",
			},
			[]string{"stage", "kind"},
		),
		CandidatesRun: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "route_candidates_total",
				Help:      "Total number of departure-time route candidates evaluated",
			},
		),
		CandidatesFail: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "route_candidates_failed_total",
				Help:      "Route candidates omitted from the variant set, by failure kind",
			},
			[]string{"kind"},
		),
		MeshVertices: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mesh_vertices",
				Help:      "Vertex count of built meshes",
				Buckets:   []float64{100, 500, 1000, 5000, 10000, 50000, 100000},
			},
		),
	}
}

// Timer measures a pipeline stage and records it against StageDuration when
// Stop is called.
type Timer struct {
	collector *Collector
	stage     string
	start     time.Time
}

func (c *Collector) StartStage(stage string) *Timer {
	return &Timer{collector: c, stage: stage, start: time.Now()}
}

func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	t.collector.StageDuration.WithLabelValues(t.stage).Observe(d.Seconds())
	return d
}

// RecordStageError records a stage failure under its naverrs Kind string.
func (c *Collector) RecordStageError(stage, kind string) {
	c.StageErrors.WithLabelValues(stage, kind).Inc()
}

// RecordCandidateFailure records an omitted route candidate.
func (c *Collector) RecordCandidateFailure(kind string) {
	c.CandidatesRun.Inc()
	c.CandidatesFail.WithLabelValues(kind).Inc()
}

// RecordCandidateSuccess records a route candidate that produced a variant.
func (c *Collector) RecordCandidateSuccess() {
	c.CandidatesRun.Inc()
}

// Logger returns a field-scoped logger for a pipeline stage, matching the
// teacher's log.WithField/WithError usage throughout wind.go and winds.go.
func Logger(stage string) *log.Entry {
	return log.WithField("stage", stage)
}
