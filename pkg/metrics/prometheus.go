package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics глобальный контейнер метрик
type Metrics struct {
	// HTTP метрики
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Бизнес-метрики
	ComputeOperationsTotal *prometheus.CounterVec
	ComputeDuration        *prometheus.HistogramVec
	FlowingSegments        prometheus.Gauge
	BlockedSegments        prometheus.Gauge
	CoveragePercent        prometheus.Gauge
	ServedHouseholds       prometheus.Gauge
	NetworkEntities        *prometheus.GaugeVec
	CacheLookupsTotal      *prometheus.CounterVec

	// Метрики хранилища
	DBQueriesTotal *prometheus.CounterVec

	// Системные метрики
	MemoryUsage *prometheus.GaugeVec
	Goroutines  prometheus.Gauge

	// Информация о сервисе
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics инициализирует метрики
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		// HTTP метрики
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		// Бизнес-метрики
		ComputeOperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "compute_operations_total",
				Help:      "Total number of network compute operations",
			},
			[]string{"operation", "status"},
		),

		ComputeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "compute_duration_seconds",
				Help:      "Duration of network compute operations",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),

		FlowingSegments: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "flowing_segments",
				Help:      "Segments carrying water in the last flow computation",
			},
		),

		BlockedSegments: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "blocked_segments",
				Help:      "Segments blocked by closed valves in the last flow computation",
			},
		),

		CoveragePercent: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "coverage_percent",
				Help:      "Household coverage in the last supply computation",
			},
		),

		ServedHouseholds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "served_households",
				Help:      "Households served in the last supply computation",
			},
		),

		NetworkEntities: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "network_entities",
				Help:      "Entities in the last computed snapshot",
			},
			[]string{"entity"},
		),

		CacheLookupsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_lookups_total",
				Help:      "Compute cache lookups",
			},
			[]string{"kind", "result"},
		),

		// Метрики хранилища
		DBQueriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "db_queries_total",
				Help:      "Repository queries by entity and operation",
			},
			[]string{"entity", "operation", "status"},
		),

		// Системные метрики
		MemoryUsage: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "memory_usage_bytes",
				Help:      "Current memory usage",
			},
			[]string{"type"},
		),

		Goroutines: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "goroutines",
				Help:      "Current number of goroutines",
			},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get возвращает глобальные метрики
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("watergrid", "")
	}
	return defaultMetrics
}

// RecordHTTPRequest записывает метрики HTTP запроса
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCompute записывает метрики операции расчёта
func (m *Metrics) RecordCompute(operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}

	m.ComputeOperationsTotal.WithLabelValues(operation, status).Inc()
	m.ComputeDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordFlowResult записывает итог распространения потока
func (m *Metrics) RecordFlowResult(flowing, blocked int) {
	m.FlowingSegments.Set(float64(flowing))
	m.BlockedSegments.Set(float64(blocked))
}

// RecordSupplyResult записывает итог распределения воды
func (m *Metrics) RecordSupplyResult(coveragePercent float64, servedHouseholds int) {
	m.CoveragePercent.Set(coveragePercent)
	m.ServedHouseholds.Set(float64(servedHouseholds))
}

// RecordNetworkSize записывает размер рассчитанного среза
func (m *Metrics) RecordNetworkSize(tanks, valves, pipelines int) {
	m.NetworkEntities.WithLabelValues("tanks").Set(float64(tanks))
	m.NetworkEntities.WithLabelValues("valves").Set(float64(valves))
	m.NetworkEntities.WithLabelValues("pipelines").Set(float64(pipelines))
}

// RecordCacheLookup записывает попадание или промах кэша расчётов
func (m *Metrics) RecordCacheLookup(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(kind, result).Inc()
}

// RecordDBQuery записывает исход запроса к хранилищу
func (m *Metrics) RecordDBQuery(entity, operation string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.DBQueriesTotal.WithLabelValues(entity, operation, status).Inc()
}

// SetServiceInfo устанавливает информацию о сервисе
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler возвращает HTTP handler для /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
