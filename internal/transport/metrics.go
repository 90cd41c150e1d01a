// Copyright 2025 Joseph Cumines
//
// Metrics registry for observability

package transport

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metric names exported by the inspector.
const (
	MetricCommandsTotal    = "inspector_commands_total"
	MetricCommandDuration  = "inspector_command_duration_seconds"
	MetricCapturesTotal    = "inspector_captures_total"
	MetricCaptureElements  = "inspector_capture_elements"
	MetricGeneration       = "inspector_generation"
	MetricHTTPRequests     = "inspector_http_requests_total"
	MetricHTTPDuration     = "inspector_http_request_duration_seconds"
	MetricRateLimitedTotal = "inspector_http_rate_limited_total"
)

// MetricsRegistry provides thread-safe metrics collection, exported in
// Prometheus text format.
type MetricsRegistry struct {
	counters   map[string]*counter
	histograms map[string]*histogram
	gauges     map[string]*gauge
	mu         sync.RWMutex
}

// counter represents a monotonically increasing counter with optional labels.
type counter struct {
	values map[string]uint64 // label combo -> count
	mu     sync.RWMutex
}

// histogram represents a distribution of values with predefined buckets.
type histogram struct {
	counts  map[string][]uint64 // label combo -> bucket counts
	sums    map[string]float64  // label combo -> sum of all values
	totals  map[string]uint64   // label combo -> total count
	buckets []float64           // bucket upper bounds
	mu      sync.RWMutex
}

// gauge represents a value that can go up or down.
type gauge struct {
	values map[string]float64
	mu     sync.RWMutex
}

// Default histogram buckets for latencies (in seconds). Input sequences
// include deliberate settle delays, so the tail is long.
var defaultLatencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0,
}

// NewMetricsRegistry creates a registry with the inspector metrics
// registered.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		counters:   make(map[string]*counter),
		histograms: make(map[string]*histogram),
		gauges:     make(map[string]*gauge),
	}

	m.registerCounter(MetricCommandsTotal)
	m.registerCounter(MetricCapturesTotal)
	m.registerCounter(MetricHTTPRequests)
	m.registerCounter(MetricRateLimitedTotal)
	m.registerHistogram(MetricCommandDuration, defaultLatencyBuckets)
	m.registerHistogram(MetricHTTPDuration, defaultLatencyBuckets)
	m.registerGauge(MetricCaptureElements)
	m.registerGauge(MetricGeneration)

	return m
}

func (m *MetricsRegistry) registerCounter(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name] = &counter{values: make(map[string]uint64)}
}

func (m *MetricsRegistry) registerHistogram(name string, buckets []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[name] = &histogram{
		buckets: buckets,
		counts:  make(map[string][]uint64),
		sums:    make(map[string]float64),
		totals:  make(map[string]uint64),
	}
}

func (m *MetricsRegistry) registerGauge(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[name] = &gauge{values: make(map[string]float64)}
}

// IncrementCounter increments a counter by 1 for the given label combination.
// Labels should be formatted as: key1="value1",key2="value2"
func (m *MetricsRegistry) IncrementCounter(name string, labels string) {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if !ok {
		return
	}

	c.mu.Lock()
	c.values[labels]++
	c.mu.Unlock()
}

// ObserveHistogram records a value in a histogram for the given label combination.
func (m *MetricsRegistry) ObserveHistogram(name string, labels string, value float64) {
	m.mu.RLock()
	h, ok := m.histograms[name]
	m.mu.RUnlock()
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.counts[labels]; !exists {
		h.counts[labels] = make([]uint64, len(h.buckets)+1) // +1 for +Inf
	}
	h.sums[labels] += value
	h.totals[labels]++

	// counts are per bucket; WritePrometheus accumulates
	i := sort.SearchFloat64s(h.buckets, value)
	h.counts[labels][i]++
}

// SetGauge sets a gauge to a specific value.
func (m *MetricsRegistry) SetGauge(name string, labels string, value float64) {
	m.mu.RLock()
	g, ok := m.gauges[name]
	m.mu.RUnlock()
	if !ok {
		return
	}

	g.mu.Lock()
	g.values[labels] = value
	g.mu.Unlock()
}

// Counter returns the current value of a counter, for tests and status.
func (m *MetricsRegistry) Counter(name, labels string) uint64 {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[labels]
}

// Gauge returns the current value of a gauge.
func (m *MetricsRegistry) Gauge(name, labels string) float64 {
	m.mu.RLock()
	g, ok := m.gauges[name]
	m.mu.RUnlock()
	if !ok {
		return 0
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.values[labels]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// series formats one sample line, with or without labels.
func series(name, labels, value string) string {
	if labels == "" {
		return fmt.Sprintf("%s %s\n", name, value)
	}
	return fmt.Sprintf("%s{%s} %s\n", name, labels, value)
}

// WritePrometheus writes all metrics in Prometheus text format to the
// writer, in a deterministic order.
func (m *MetricsRegistry) WritePrometheus(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string

	for _, name := range sortedKeys(m.counters) {
		c := m.counters[name]
		c.mu.RLock()
		out = append(out, fmt.Sprintf("# TYPE %s counter\n", name))
		for _, l := range sortedKeys(c.values) {
			out = append(out, series(name, l, strconv.FormatUint(c.values[l], 10)))
		}
		c.mu.RUnlock()
	}

	for _, name := range sortedKeys(m.gauges) {
		g := m.gauges[name]
		g.mu.RLock()
		out = append(out, fmt.Sprintf("# TYPE %s gauge\n", name))
		for _, l := range sortedKeys(g.values) {
			out = append(out, series(name, l, fmt.Sprintf("%g", g.values[l])))
		}
		g.mu.RUnlock()
	}

	for _, name := range sortedKeys(m.histograms) {
		h := m.histograms[name]
		h.mu.RLock()
		out = append(out, fmt.Sprintf("# TYPE %s histogram\n", name))
		for _, l := range sortedKeys(h.counts) {
			prefix := ""
			if l != "" {
				prefix = l + ","
			}
			var cumulative uint64
			for i, bound := range h.buckets {
				cumulative += h.counts[l][i]
				out = append(out, fmt.Sprintf("%s_bucket{%sle=\"%g\"} %d\n", name, prefix, bound, cumulative))
			}
			cumulative += h.counts[l][len(h.buckets)]
			out = append(out, fmt.Sprintf("%s_bucket{%sle=\"+Inf\"} %d\n", name, prefix, cumulative))
			out = append(out, series(name+"_sum", l, fmt.Sprintf("%g", h.sums[l])))
			out = append(out, series(name+"_count", l, strconv.FormatUint(h.totals[l], 10)))
		}
		h.mu.RUnlock()
	}

	for _, line := range out {
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RecordCommand records one processed command: verb, outcome kind ("ok" or
// an error kind) and latency.
func (m *MetricsRegistry) RecordCommand(verb, status string, duration time.Duration) {
	m.IncrementCounter(MetricCommandsTotal, fmt.Sprintf(`verb=%q,status=%q`, verb, status))
	m.ObserveHistogram(MetricCommandDuration, fmt.Sprintf(`verb=%q`, verb), duration.Seconds())
}

// RecordCapture records a published snapshot generation.
func (m *MetricsRegistry) RecordCapture(provider string, generation uint64, elements int) {
	m.IncrementCounter(MetricCapturesTotal, fmt.Sprintf(`provider=%q`, provider))
	m.SetGauge(MetricCaptureElements, "", float64(elements))
	m.SetGauge(MetricGeneration, "", float64(generation))
}

// RecordHTTP records one HTTP request by route pattern and status code.
func (m *MetricsRegistry) RecordHTTP(route string, code int, duration time.Duration) {
	m.IncrementCounter(MetricHTTPRequests, fmt.Sprintf(`route=%q,code="%d"`, route, code))
	m.ObserveHistogram(MetricHTTPDuration, fmt.Sprintf(`route=%q`, route), duration.Seconds())
	if code == 429 {
		m.IncrementCounter(MetricRateLimitedTotal, "")
	}
}

// Global metrics registry instance
var defaultMetrics = NewMetricsRegistry()

// DefaultMetrics returns the global metrics registry.
func DefaultMetrics() *MetricsRegistry {
	return defaultMetrics
}
