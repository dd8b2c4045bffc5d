// Package metrics exposes Prometheus collectors for a simulation run.
//
// Each Metrics value owns a private registry so that runs and tests do not
// share counters. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tape"

// Metrics holds the collectors updated by the engine and the paging layer.
type Metrics struct {
	registry *prometheus.Registry

	Steps     prometheus.Counter
	Swaps     *prometheus.CounterVec
	Shifts    prometheus.Counter
	Flushes   prometheus.Counter
	Halts     prometheus.Counter
	FileBytes prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Transitions executed.",
		}),
		Swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "window_swaps_total",
			Help:      "Window swaps by direction of travel.",
		}, []string{"direction"}),
		Shifts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "left_shifts_total",
			Help:      "Times the tape file was shifted right to grow the tape leftward.",
		}),
		Flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Window write-backs to the tape file.",
		}),
		Halts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "halts_total",
			Help:      "Runs that reached a STOP operation.",
		}),
		FileBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "file_bytes",
			Help:      "Current length of the tape file in bytes.",
		}),
	}
	m.registry.MustRegister(m.Steps, m.Swaps, m.Shifts, m.Flushes, m.Halts, m.FileBytes)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Step records one executed transition.
func (m *Metrics) Step() {
	if m == nil {
		return
	}
	m.Steps.Inc()
}

// Swap records a window swap; direction is "left" or "right".
func (m *Metrics) Swap(direction string) {
	if m == nil {
		return
	}
	m.Swaps.WithLabelValues(direction).Inc()
}

// Shift records a leftward growth of the tape file.
func (m *Metrics) Shift() {
	if m == nil {
		return
	}
	m.Shifts.Inc()
}

// Flush records a window write-back and the resulting file length.
func (m *Metrics) Flush(fileBytes int64) {
	if m == nil {
		return
	}
	m.Flushes.Inc()
	m.FileBytes.Set(float64(fileBytes))
}

// FileSize sets the tape file length gauge.
func (m *Metrics) FileSize(fileBytes int64) {
	if m == nil {
		return
	}
	m.FileBytes.Set(float64(fileBytes))
}

// Halt records a normal termination.
func (m *Metrics) Halt() {
	if m == nil {
		return
	}
	m.Halts.Inc()
}

// WriteTextfile writes the collectors to path in the text exposition
// format read by the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
