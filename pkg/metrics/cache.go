package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/staticd-io/staticd/pkg/cache"
)

// cacheMetrics is the Prometheus implementation of cache.Metrics.
type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	coalesced prometheus.Counter
	fetchTime *prometheus.HistogramVec
	entries   prometheus.Gauge
	bytes     prometheus.Gauge
}

// NewCacheMetrics creates a Prometheus-backed cache.Metrics. Returns
// nil when metrics are disabled; the cache substitutes its own no-op.
func NewCacheMetrics() cache.Metrics {
	if !IsEnabled() {
		return nil
	}

	reg := GetRegistry()
	return &cacheMetrics{
		hits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "staticd_cache_hits_total",
			Help: "Total number of cache lookups served from a published entry",
		}),
		misses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "staticd_cache_misses_total",
			Help: "Total number of cache lookups that scheduled a backend fetch",
		}),
		coalesced: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "staticd_cache_coalesced_total",
			Help: "Total number of cache lookups that joined an in-flight fetch",
		}),
		fetchTime: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "staticd_cache_fetch_duration_seconds",
				Help:    "Backend fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		entries: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "staticd_cache_entries",
			Help: "Current number of published cache entries",
		}),
		bytes: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "staticd_cache_bytes",
			Help: "Total payload bytes held by published cache entries",
		}),
	}
}

func (m *cacheMetrics) RecordHit()       { m.hits.Inc() }
func (m *cacheMetrics) RecordMiss()      { m.misses.Inc() }
func (m *cacheMetrics) RecordCoalesced() { m.coalesced.Inc() }

func (m *cacheMetrics) ObserveFetch(duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.fetchTime.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *cacheMetrics) RecordEntry(bytes int) {
	m.entries.Inc()
	m.bytes.Add(float64(bytes))
}
