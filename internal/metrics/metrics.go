// Package metrics exports compile and verify gauges in the Prometheus text
// format, for a node-exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cdcflow"

// Recorder holds the gauges of one CLI invocation on a private registry.
type Recorder struct {
	reg        *prometheus.Registry
	entries    prometheus.Gauge
	repairs    prometheus.Gauge
	violations prometheus.Gauge
	duration   prometheus.Gauge
	success    *prometheus.GaugeVec
}

// NewRecorder returns a Recorder with all gauges registered at zero.
func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "registry_entries",
			Help:      "Number of entries in the SQL registry.",
		}),
		repairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flow_repairs",
			Help:      "Number of repairs applied to the flow document by the last compile.",
		}),
		violations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "violations",
			Help:      "Number of invariant violations found by the last verification.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "compile_duration_seconds",
			Help:      "Wall time of the last compile.",
		}),
		success: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run of the command succeeded, 0 otherwise.",
		}, []string{"command"}),
	}
	r.reg.MustRegister(r.entries, r.repairs, r.violations, r.duration, r.success)
	return r
}

// ObserveCompile records the outcome of a compile.
func (r *Recorder) ObserveCompile(entries, repairs int, elapsed time.Duration) {
	r.entries.Set(float64(entries))
	r.repairs.Set(float64(repairs))
	r.duration.Set(elapsed.Seconds())
}

// ObserveViolations records the violation count of a verification.
func (r *Recorder) ObserveViolations(n int) {
	r.violations.Set(float64(n))
}

// SetSuccess records whether command succeeded.
func (r *Recorder) SetSuccess(command string, ok bool) {
	v := 0.0
	if ok {
		v = 1
	}
	r.success.WithLabelValues(command).Set(v)
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteTextfile writes the gauges to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics file: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("metrics file: %w", err)
	}
	return nil
}
