package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServerMetrics provides observability for the connection pipeline.
// Implementations must be safe for concurrent use; the server uses a
// local no-op when nil is supplied.
type ServerMetrics interface {
	// RecordConnectionAccepted counts an accepted connection.
	RecordConnectionAccepted()

	// RecordConnectionClosed counts a closed connection.
	RecordConnectionClosed()

	// SetActiveConnections records the current connection gauge.
	SetActiveConnections(count int32)

	// RecordConnectionRejected counts a connection refused with 503
	// because the worker pool was saturated.
	RecordConnectionRejected()

	// RecordRequest records one completed request with its method
	// token, response status, and total handling duration.
	RecordRequest(method string, status int, duration time.Duration)
}

// serverMetrics is the Prometheus implementation of ServerMetrics.
type serverMetrics struct {
	connsAccepted prometheus.Counter
	connsClosed   prometheus.Counter
	connsRejected prometheus.Counter
	connsActive   prometheus.Gauge
	requests      *prometheus.CounterVec
	requestTime   prometheus.Histogram
}

// NewServerMetrics creates a Prometheus-backed ServerMetrics. Returns
// nil when metrics are disabled, which selects the server's no-op.
func NewServerMetrics() ServerMetrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()
	return &serverMetrics{
		connsAccepted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "staticd_connections_accepted_total",
			Help: "Total number of accepted connections",
		}),
		connsClosed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "staticd_connections_closed_total",
			Help: "Total number of closed connections",
		}),
		connsRejected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "staticd_connections_rejected_total",
			Help: "Total number of connections refused with 503 due to worker saturation",
		}),
		connsActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "staticd_connections_active",
			Help: "Current number of active connections",
		}),
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "staticd_requests_total",
				Help: "Total number of handled requests by method and status",
			},
			[]string{"method", "status"},
		),
		requestTime: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "staticd_request_duration_seconds",
			Help:    "Request handling duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *serverMetrics) RecordConnectionAccepted() { m.connsAccepted.Inc() }
func (m *serverMetrics) RecordConnectionClosed()   { m.connsClosed.Inc() }
func (m *serverMetrics) RecordConnectionRejected() { m.connsRejected.Inc() }

func (m *serverMetrics) SetActiveConnections(count int32) {
	m.connsActive.Set(float64(count))
}

func (m *serverMetrics) RecordRequest(method string, status int, duration time.Duration) {
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestTime.Observe(duration.Seconds())
}
