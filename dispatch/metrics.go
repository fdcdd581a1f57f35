// Dispatcher metrics (SPEC_FULL §10.4): ambient observability carried
// regardless of the "persistent state"/"multi-engine orchestration"
// non-goals, which scope features, not instrumentation.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package dispatch

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the dispatcher's prometheus collectors. A nil *Metrics
// is a valid no-op: every method below guards on it so callers can wire
// metrics optionally.
type Metrics struct {
	RequestsInFlight prometheus.Gauge
	FramesIn         prometheus.Counter
	FramesOut        prometheus.Counter
	CallbackRTT      prometheus.Histogram
	StreamsOpen      prometheus.Gauge
	Errors           *prometheus.CounterVec
}

// NewMetrics registers every collector against reg and returns the
// bundle. Pass prometheus.NewRegistry() in tests to avoid colliding with
// the global default registry across test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jsrt", Subsystem: "dispatcher", Name: "requests_in_flight",
			Help: "Number of requests currently awaiting a response.",
		}),
		FramesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jsrt", Subsystem: "dispatcher", Name: "frames_in_total",
			Help: "Total frames read from all connections.",
		}),
		FramesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "jsrt", Subsystem: "dispatcher", Name: "frames_out_total",
			Help: "Total frames written to all connections.",
		}),
		CallbackRTT: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "jsrt", Subsystem: "dispatcher", Name: "callback_round_trip_seconds",
			Help:    "Time from CALLBACK_INVOKE to its CALLBACK_RESPONSE.",
			Buckets: prometheus.DefBuckets,
		}),
		StreamsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jsrt", Subsystem: "dispatcher", Name: "streams_open",
			Help: "Number of stream sinks/sources currently registered.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jsrt", Subsystem: "dispatcher", Name: "errors_total",
			Help: "Errors observed, labeled by numeric error code.",
		}, []string{"code"}),
	}
	reg.MustRegister(m.RequestsInFlight, m.FramesIn, m.FramesOut, m.CallbackRTT, m.StreamsOpen, m.Errors)
	return m
}

func (m *Metrics) incFramesIn() {
	if m != nil {
		m.FramesIn.Inc()
	}
}

func (m *Metrics) incFramesOut() {
	if m != nil {
		m.FramesOut.Inc()
	}
}

func (m *Metrics) requestStarted() {
	if m != nil {
		m.RequestsInFlight.Inc()
	}
}

func (m *Metrics) requestFinished() {
	if m != nil {
		m.RequestsInFlight.Dec()
	}
}

func (m *Metrics) observeError(code int) {
	if m != nil {
		m.Errors.WithLabelValues(strconv.Itoa(code)).Inc()
	}
}
