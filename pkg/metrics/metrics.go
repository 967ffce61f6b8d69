// Package metrics exposes fanview's prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector fanview records to. A nil *Metrics is valid and records nothing.
type Metrics struct {
	fanoutCalls    *prometheus.CounterVec
	targetFailures *prometheus.CounterVec
	fanoutDuration *prometheus.HistogramVec
	zoomPercent    prometheus.Gauge
	stripHeight    prometheus.Gauge
	groupBytes     prometheus.Gauge
	groupProcs     prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fanoutCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fanview_fanout_calls_total",
				Help: "Fan-out calls by operation and result",
			},
			[]string{"op", "result"},
		),
		targetFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fanview_target_failures_total",
				Help: "Per-target failures surfaced by fan-out calls",
			},
			[]string{"op", "target"},
		),
		fanoutDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fanview_fanout_duration_seconds",
				Help:    "Time until a fan-out call returned",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"op"},
		),
		zoomPercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fanview_zoom_percent",
			Help: "Current zoom percentage applied to all targets",
		}),
		stripHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fanview_control_strip_height",
			Help: "Current control strip height in logical pixels",
		}),
		groupBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fanview_process_group_resident_bytes",
			Help: "Resident memory of the host and its renderer processes at the last query",
		}),
		groupProcs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fanview_process_group_members",
			Help: "Processes counted in the last memory query",
		}),
	}
	reg.MustRegister(m.fanoutCalls, m.targetFailures, m.fanoutDuration,
		m.zoomPercent, m.stripHeight, m.groupBytes, m.groupProcs)
	return m
}

// ObserveFanout records the outcome of one fan-out call. failedTarget is empty on success.
func (m *Metrics) ObserveFanout(op string, elapsed time.Duration, failedTarget string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.fanoutCalls.WithLabelValues(op, result).Inc()
	m.fanoutDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	if failedTarget != "" {
		m.targetFailures.WithLabelValues(op, failedTarget).Inc()
	}
}

func (m *Metrics) SetZoom(percent int) {
	if m == nil {
		return
	}
	m.zoomPercent.Set(float64(percent))
}

func (m *Metrics) SetStripHeight(h float64) {
	if m == nil {
		return
	}
	m.stripHeight.Set(h)
}

// SetGroup records the result of a memory query.
func (m *Metrics) SetGroup(bytes uint64, members int) {
	if m == nil {
		return
	}
	m.groupBytes.Set(float64(bytes))
	m.groupProcs.Set(float64(members))
}
