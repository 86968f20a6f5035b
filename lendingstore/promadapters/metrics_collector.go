// Package promadapters provides a Prometheus adapter for the lendingstore
// metrics interface, for deployments that scrape a /metrics endpoint instead
// of pushing through OpenTelemetry.
package promadapters

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/askard/lendingstore-go/lendingstore"
)

// MetricsCollector implements lendingstore.MetricsCollector on top of
// Prometheus collectors, mapping the interface onto vector types:
//   - RecordDuration -> HistogramVec (seconds)
//   - IncrementCounter -> CounterVec
//   - RecordValue -> GaugeVec
//
// Prometheus requires a fixed label set per metric name; the label keys of the
// first observation of each metric define its schema, later observations must
// use the same keys.
type MetricsCollector struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	histograms map[string]*prometheus.HistogramVec
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
}

// NewMetricsCollector creates a Prometheus metrics collector registering its
// collectors with the given registerer, typically prometheus.DefaultRegisterer.
func NewMetricsCollector(registerer prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		registerer: registerer,
		histograms: make(map[string]*prometheus.HistogramVec),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
	}
}

// RecordDuration observes a duration in seconds on a histogram.
func (m *MetricsCollector) RecordDuration(metricName string, duration time.Duration, labels map[string]string) {
	histogram := m.getOrCreateHistogram(metricName, labelKeys(labels))
	if histogram == nil {
		return
	}

	histogram.With(labels).Observe(duration.Seconds())
}

// IncrementCounter increments a counter by one.
func (m *MetricsCollector) IncrementCounter(metricName string, labels map[string]string) {
	counter := m.getOrCreateCounter(metricName, labelKeys(labels))
	if counter == nil {
		return
	}

	counter.With(labels).Inc()
}

// RecordValue sets a gauge to the given value.
func (m *MetricsCollector) RecordValue(metricName string, value float64, labels map[string]string) {
	gauge := m.getOrCreateGauge(metricName, labelKeys(labels))
	if gauge == nil {
		return
	}

	gauge.With(labels).Set(value)
}

func labelKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

func (m *MetricsCollector) getOrCreateHistogram(name string, keys []string) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if histogram, exists := m.histograms[name]; exists {
		return histogram
	}

	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    "LendingStore operation duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, keys)

	if err := m.registerer.Register(histogram); err != nil {
		return nil
	}

	m.histograms[name] = histogram

	return histogram
}

func (m *MetricsCollector) getOrCreateCounter(name string, keys []string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if counter, exists := m.counters[name]; exists {
		return counter
	}

	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: "LendingStore operation counter",
	}, keys)

	if err := m.registerer.Register(counter); err != nil {
		return nil
	}

	m.counters[name] = counter

	return counter
}

func (m *MetricsCollector) getOrCreateGauge(name string, keys []string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gauge, exists := m.gauges[name]; exists {
		return gauge
	}

	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: "LendingStore current value",
	}, keys)

	if err := m.registerer.Register(gauge); err != nil {
		return nil
	}

	m.gauges[name] = gauge

	return gauge
}

// Ensure MetricsCollector implements lendingstore.MetricsCollector.
var _ lendingstore.MetricsCollector = (*MetricsCollector)(nil)
