// Package metrics records lint runs as Prometheus metrics and exports
// them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the run metrics on a private registry, so nothing leaks
// into the global default registry.
type Recorder struct {
	Registry *prometheus.Registry

	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	outputLines *prometheus.CounterVec
	selected    *prometheus.GaugeVec
}

// New returns a Recorder with every metric registered. With process set,
// the standard Go and process collectors are registered too, for
// long-running servers.
func New(process bool) *Recorder {
	reg := prometheus.NewRegistry()
	if process {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	f := promauto.With(reg)
	return &Recorder{
		Registry: reg,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lintbox_runs_total",
			Help: "Lint runs by tool and outcome (clean, findings, skipped, build, engine, unexpected).",
		}, []string{"tool", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lintbox_run_duration_seconds",
			Help:    "Wall time of a lint run, image build included.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17m
		}, []string{"tool"}),
		outputLines: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lintbox_output_lines_total",
			Help: "Lines of tool output relayed.",
		}, []string{"tool"}),
		selected: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lintbox_selected_files",
			Help: "Files selected by the most recent run of a tool.",
		}, []string{"tool"}),
	}
}

// Run is the summary of one run as seen by the Recorder.
type Run struct {
	Tool     string
	Outcome  string
	Files    int
	Lines    int
	Duration time.Duration
}

// Observe records a finished run. A nil Recorder does nothing.
func (r *Recorder) Observe(run Run) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(run.Tool, run.Outcome).Inc()
	r.duration.WithLabelValues(run.Tool).Observe(run.Duration.Seconds())
	r.outputLines.WithLabelValues(run.Tool).Add(float64(run.Lines))
	r.selected.WithLabelValues(run.Tool).Set(float64(run.Files))
}

// WriteTextfile writes every metric to path, atomically, for the
// node-exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
