package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RuntimeCollector отдаёт метрики Go runtime при каждом scrape
type RuntimeCollector struct {
	goroutines  *prometheus.Desc
	heapAlloc   *prometheus.Desc
	heapObjects *prometheus.Desc
	totalAlloc  *prometheus.Desc
	sysBytes    *prometheus.Desc
	gcPause     *prometheus.Desc
	gcRuns      *prometheus.Desc
}

// NewRuntimeCollector создаёт коллектор runtime метрик
func NewRuntimeCollector(namespace, subsystem string) *RuntimeCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, name),
			help, nil, nil,
		)
	}

	return &RuntimeCollector{
		goroutines:  desc("runtime_goroutines", "Number of goroutines"),
		heapAlloc:   desc("runtime_memory_alloc_bytes", "Bytes allocated and still in use"),
		heapObjects: desc("runtime_heap_objects", "Number of allocated heap objects"),
		totalAlloc:  desc("runtime_memory_total_alloc_bytes", "Total bytes allocated (even if freed)"),
		sysBytes:    desc("runtime_memory_sys_bytes", "Bytes obtained from system"),
		gcPause:     desc("runtime_gc_pause_seconds", "Most recent GC pause duration"),
		gcRuns:      desc("runtime_gc_runs_total", "Total number of completed GC cycles"),
	}
}

// Describe implements prometheus.Collector
func (c *RuntimeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.goroutines
	ch <- c.heapAlloc
	ch <- c.heapObjects
	ch <- c.totalAlloc
	ch <- c.sysBytes
	ch <- c.gcPause
	ch <- c.gcRuns
}

// Collect implements prometheus.Collector
func (c *RuntimeCollector) Collect(ch chan<- prometheus.Metric) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	ch <- prometheus.MustNewConstMetric(c.goroutines, prometheus.GaugeValue, float64(runtime.NumGoroutine()))
	ch <- prometheus.MustNewConstMetric(c.heapAlloc, prometheus.GaugeValue, float64(stats.Alloc))
	ch <- prometheus.MustNewConstMetric(c.heapObjects, prometheus.GaugeValue, float64(stats.HeapObjects))
	ch <- prometheus.MustNewConstMetric(c.totalAlloc, prometheus.CounterValue, float64(stats.TotalAlloc))
	ch <- prometheus.MustNewConstMetric(c.sysBytes, prometheus.GaugeValue, float64(stats.Sys))
	ch <- prometheus.MustNewConstMetric(c.gcRuns, prometheus.CounterValue, float64(stats.NumGC))

	if stats.NumGC > 0 {
		last := stats.PauseNs[(stats.NumGC-1)%uint32(len(stats.PauseNs))]
		ch <- prometheus.MustNewConstMetric(c.gcPause, prometheus.GaugeValue, float64(last)/1e9)
	}
}

// RequestTracker считает запросы в обработке по методам
type RequestTracker struct {
	mu       sync.Mutex
	active   map[string]int
	inFlight prometheus.Gauge
}

// NewRequestTracker создаёт трекер активных запросов
func NewRequestTracker(inFlight prometheus.Gauge) *RequestTracker {
	return &RequestTracker{
		active:   make(map[string]int),
		inFlight: inFlight,
	}
}

// Start отмечает начало запроса
func (t *RequestTracker) Start(method string) {
	t.mu.Lock()
	t.active[method]++
	t.mu.Unlock()

	t.inFlight.Inc()
}

// End отмечает завершение запроса. Лишние вызовы игнорируются.
func (t *RequestTracker) End(method string) {
	t.mu.Lock()
	tracked := t.active[method] > 0
	if tracked {
		t.active[method]--
	}
	t.mu.Unlock()

	if tracked {
		t.inFlight.Dec()
	}
}

// Timer измеряет длительность операции для гистограммы
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer создаёт таймер, отсчёт идёт с момента вызова
func NewTimer(histogram *prometheus.HistogramVec, labels ...string) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram.WithLabelValues(labels...),
	}
}

// ObserveDuration записывает длительность и возвращает её
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	t.observer.Observe(duration.Seconds())
	return duration
}
