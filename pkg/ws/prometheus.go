package ws

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics 基于 Prometheus 的监控实现
type PrometheusMetrics struct {
	connected        prometheus.Gauge
	pending          prometheus.Gauge
	calls            *prometheus.CounterVec
	callLatency      *prometheus.HistogramVec
	events           *prometheus.CounterVec
	handlers         *prometheus.CounterVec
	handlerLatency   *prometheus.HistogramVec
	droppedResponses prometheus.Counter
	readErrors       prometheus.Counter
	writeErrors      prometheus.Counter
	invalidMessages  prometheus.Counter
}

// NewPrometheusMetrics 创建并注册指标，namespace 为空时使用 qibot
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) (*PrometheusMetrics, error) {
	if namespace == "" {
		namespace = "qibot"
	}
	m := &PrometheusMetrics{
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "connected",
			Help:      "Connection state (1=connected, 0=not connected)",
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "pending_calls",
			Help:      "Number of calls waiting for a response",
		}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "calls_total",
			Help:      "Total calls by action and outcome",
		}, []string{"action", "outcome"}),
		callLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "call_duration_seconds",
			Help:      "Call round trip latency",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"action"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "events_total",
			Help:      "Total events received by kind",
		}, []string{"event"}),
		handlers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "handlers_total",
			Help:      "Total handler invocations by plugin and result",
		}, []string{"plugin", "result"}),
		handlerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "handler_duration_seconds",
			Help:      "Handler execution time",
			Buckets:   prometheus.DefBuckets,
		}, []string{"plugin"}),
		droppedResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "dropped_responses_total",
			Help:      "Responses without a pending call",
		}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "read_errors_total",
			Help:      "Socket read errors",
		}),
		writeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "write_errors_total",
			Help:      "Socket write errors",
		}),
		invalidMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "unrecognized_frames_total",
			Help:      "Frames that are neither a response nor a known event",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.connected, m.pending, m.calls, m.callLatency, m.events, m.handlers,
		m.handlerLatency, m.droppedResponses, m.readErrors, m.writeErrors, m.invalidMessages,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) SetConnected(connected bool) {
	if connected {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}

func (m *PrometheusMetrics) RecordCall(action, outcome string, duration time.Duration) {
	m.calls.WithLabelValues(action, outcome).Inc()
	m.callLatency.WithLabelValues(action).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) SetPendingCalls(count int) {
	m.pending.Set(float64(count))
}

func (m *PrometheusMetrics) IncrementEventCount(event string) {
	m.events.WithLabelValues(event).Inc()
}

func (m *PrometheusMetrics) RecordHandler(plugin, union string, handled bool, err error, duration time.Duration) {
	result := "skipped"
	switch {
	case err != nil:
		result = "error"
	case handled:
		result = "handled"
	}
	m.handlers.WithLabelValues(plugin, result).Inc()
	m.handlerLatency.WithLabelValues(plugin).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) IncrementDroppedResponses() { m.droppedResponses.Inc() }
func (m *PrometheusMetrics) IncrementReadErrors()       { m.readErrors.Inc() }
func (m *PrometheusMetrics) IncrementWriteErrors()      { m.writeErrors.Inc() }
func (m *PrometheusMetrics) IncrementInvalidMessages()  { m.invalidMessages.Inc() }
