// Package metrics counts what a sweep did and exports the counts in the Prometheus text
// format for the node exporter's textfile collector.
package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const prefix = "benchctl_"

const (
	outcomeLabel     = "outcome"
	benchmarkLabel   = "benchmark"
	destinationLabel = "destination"
)

// Instance outcomes.
const (
	OutcomeSubmitted       = "submitted"
	OutcomeDryRun          = "dry_run"
	OutcomeLocal           = "local"
	OutcomeEvaluationError = "evaluation_error"
	OutcomeSubmissionError = "submission_error"
	OutcomeFailed          = "failed"
)

// Cache write outcomes.
const (
	CacheWritten = "written"
	CacheSkipped = "skipped"
	CacheFailed  = "failed"
)

// Metrics holds the counters of one process on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	instances    *prometheus.CounterVec
	dependencies *prometheus.CounterVec
	cacheWrites  *prometheus.CounterVec
	archives     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		instances: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "instances_total",
				Help: "Run instances processed, by outcome",
			},
			[]string{benchmarkLabel, outcomeLabel},
		),
		dependencies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "dependencies_total",
				Help: "Submissions that had to wait for an earlier job",
			},
			[]string{benchmarkLabel},
		),
		cacheWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "cache_writes_total",
				Help: "Result cache writes, by outcome",
			},
			[]string{outcomeLabel},
		),
		archives: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "archived_runs_total",
				Help: "Run directories moved into an archive",
			},
			[]string{destinationLabel},
		),
	}
	m.registry.MustRegister(m.instances, m.dependencies, m.cacheWrites, m.archives)
	return m
}

func (m *Metrics) RecordInstance(benchmark, outcome string) {
	m.instances.WithLabelValues(benchmark, outcome).Inc()
}

func (m *Metrics) RecordDependency(benchmark string) {
	m.dependencies.WithLabelValues(benchmark).Inc()
}

func (m *Metrics) RecordCacheWrite(outcome string) {
	m.cacheWrites.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordArchive(destination string) {
	m.archives.WithLabelValues(destination).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every counter to path, together with whatever is registered in
// the default registry, such as log message counts. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	gatherers := prometheus.Gatherers{m.registry, prometheus.DefaultGatherer}
	return errors.WithStack(prometheus.WriteToTextfile(path, gatherers))
}
