package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics содержит метрики кэша каталога.
type CacheMetrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
	errors *prometheus.CounterVec

	purgeRuns  *prometheus.CounterVec
	purged     prometheus.Counter
	lastPurged prometheus.Gauge
}

// NewCacheMetrics создаёт метрики в глобальном реестре.
func NewCacheMetrics() *CacheMetrics {
	return NewCacheMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCacheMetricsWithRegisterer создаёт метрики в указанном реестре.
func NewCacheMetricsWithRegisterer(registerer prometheus.Registerer) *CacheMetrics {
	return &CacheMetrics{
		hits: counter(registerer, prometheus.CounterOpts{
			Name: "oms_cache_hits_total",
			Help: "Total number of cache hits",
		}),
		misses: counter(registerer, prometheus.CounterOpts{
			Name: "oms_cache_misses_total",
			Help: "Total number of cache misses",
		}),
		errors: counterVec(registerer, prometheus.CounterOpts{
			Name: "oms_cache_errors_total",
			Help: "Total number of cache backend or codec errors by operation",
		}, "operation"),
		purgeRuns: counterVec(registerer, prometheus.CounterOpts{
			Name: "oms_cache_purge_runs_total",
			Help: "Total number of expired cache entries purge runs grouped by result",
		}, "result"),
		purged: counter(registerer, prometheus.CounterOpts{
			Name: "oms_cache_purged_total",
			Help: "Total number of purged expired cache entries",
		}),
		lastPurged: gauge(registerer, prometheus.GaugeOpts{
			Name: "oms_cache_last_purged",
			Help: "Number of entries purged during the last run",
		}),
	}
}

func (m *CacheMetrics) Hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *CacheMetrics) Miss() {
	if m != nil {
		m.misses.Inc()
	}
}

// Error учитывает ошибку бэкенда или сериализации для операции get/set/delete/decode.
func (m *CacheMetrics) Error(operation string) {
	if m != nil {
		m.errors.WithLabelValues(operation).Inc()
	}
}

// RecordPurge учитывает прогон очистки: result ok или error.
func (m *CacheMetrics) RecordPurge(result string, purged int64) {
	if m == nil {
		return
	}
	m.purgeRuns.WithLabelValues(result).Inc()
	if result == "ok" {
		m.purged.Add(float64(purged))
		m.lastPurged.Set(float64(purged))
	}
}
