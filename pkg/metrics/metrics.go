// Package metrics provides metrics collection for webscan and resparse runs.
// It includes a backend-neutral Collector interface and a Prometheus
// implementation that can be exported to a node_exporter textfile.
package metrics

import (
	"sync"
	"time"
)

// =============================================================================
// Metrics Interface
// =============================================================================

// Collector is the interface for collecting and reporting metrics.
// Labels are passed as key/value pairs: "tool", "nuclei", "status", "success".
type Collector interface {
	// Counter operations
	CounterInc(name string, labels ...string)
	CounterAdd(name string, value float64, labels ...string)

	// Gauge operations
	GaugeSet(name string, value float64, labels ...string)
	GaugeInc(name string, labels ...string)
	GaugeDec(name string, labels ...string)

	// Histogram operations
	HistogramObserve(name string, value float64, labels ...string)

	// Reset clears all metrics (for testing)
	Reset()
}

// =============================================================================
// Metric Types
// =============================================================================

// MetricType represents the type of metric.
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// MetricDefinition defines a metric with its metadata.
type MetricDefinition struct {
	Name    string     `json:"name"`
	Type    MetricType `json:"type"`
	Help    string     `json:"help"`
	Labels  []string   `json:"labels,omitempty"`
	Buckets []float64  `json:"buckets,omitempty"` // For histograms
}

// Status label values.
const (
	StatusSuccess     = "success"
	StatusFailed      = "failed"
	StatusUnsupported = "unsupported"
)

// =============================================================================
// Default Metrics
// =============================================================================

var (
	// webscan
	ToolRunsTotal = MetricDefinition{
		Name:   "reconkit_webscan_tool_runs_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of tool invocations",
		Labels: []string{"tool", "status"},
	}
	ToolRunDuration = MetricDefinition{
		Name:    "reconkit_webscan_tool_duration_seconds",
		Type:    MetricTypeHistogram,
		Help:    "Duration of tool invocations in seconds",
		Labels:  []string{"tool"},
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
	}
	ToolsRunning = MetricDefinition{
		Name:   "reconkit_webscan_tools_running",
		Type:   MetricTypeGauge,
		Help:   "Number of tool processes currently running",
		Labels: []string{"tool"},
	}
	ReportBytesTotal = MetricDefinition{
		Name:   "reconkit_webscan_report_bytes_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of bytes written to report files",
		Labels: []string{"tool"},
	}
	LastRunTimestamp = MetricDefinition{
		Name:   "reconkit_last_run_timestamp_seconds",
		Type:   MetricTypeGauge,
		Help:   "Unix time of the last completed run",
		Labels: []string{"command"},
	}

	// resparse
	FilesParsedTotal = MetricDefinition{
		Name:   "reconkit_resparse_files_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of input files processed",
		Labels: []string{"format"},
	}
	RecordsExtractedTotal = MetricDefinition{
		Name:   "reconkit_resparse_records_extracted_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of extraction records produced",
		Labels: []string{},
	}
	RecordsPersistedTotal = MetricDefinition{
		Name:   "reconkit_resparse_records_persisted_total",
		Type:   MetricTypeCounter,
		Help:   "Total number of records written to the database",
		Labels: []string{},
	}
	BatchDuration = MetricDefinition{
		Name:    "reconkit_resparse_batch_duration_seconds",
		Type:    MetricTypeHistogram,
		Help:    "Duration of a parse batch in seconds",
		Labels:  []string{},
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}
)

// Definitions returns every default metric definition.
func Definitions() []MetricDefinition {
	return []MetricDefinition{
		ToolRunsTotal,
		ToolRunDuration,
		ToolsRunning,
		ReportBytesTotal,
		LastRunTimestamp,
		FilesParsedTotal,
		RecordsExtractedTotal,
		RecordsPersistedTotal,
		BatchDuration,
	}
}

// =============================================================================
// NopCollector - No-operation implementation
// =============================================================================

// NopCollector is a no-op metrics collector that discards all metrics.
type NopCollector struct{}

func (c *NopCollector) CounterInc(name string, labels ...string)                      {}
func (c *NopCollector) CounterAdd(name string, value float64, labels ...string)       {}
func (c *NopCollector) GaugeSet(name string, value float64, labels ...string)         {}
func (c *NopCollector) GaugeInc(name string, labels ...string)                        {}
func (c *NopCollector) GaugeDec(name string, labels ...string)                        {}
func (c *NopCollector) HistogramObserve(name string, value float64, labels ...string) {}
func (c *NopCollector) Reset()                                                        {}

// =============================================================================
// InMemoryCollector - Simple in-memory implementation for testing
// =============================================================================

// InMemoryCollector stores metrics in memory for testing purposes.
type InMemoryCollector struct {
	mu         sync.RWMutex
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewInMemoryCollector creates a new in-memory metrics collector.
func NewInMemoryCollector() *InMemoryCollector {
	return &InMemoryCollector{
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (c *InMemoryCollector) key(name string, labels []string) string {
	key := name
	for i := 0; i < len(labels); i += 2 {
		if i+1 < len(labels) {
			key += "," + labels[i] + "=" + labels[i+1]
		}
	}
	return key
}

func (c *InMemoryCollector) CounterInc(name string, labels ...string) {
	c.CounterAdd(name, 1, labels...)
}

func (c *InMemoryCollector) CounterAdd(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[c.key(name, labels)] += value
}

func (c *InMemoryCollector) GaugeSet(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[c.key(name, labels)] = value
}

func (c *InMemoryCollector) GaugeInc(name string, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[c.key(name, labels)]++
}

func (c *InMemoryCollector) GaugeDec(name string, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[c.key(name, labels)]--
}

func (c *InMemoryCollector) HistogramObserve(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.key(name, labels)
	c.histograms[key] = append(c.histograms[key], value)
}

func (c *InMemoryCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters = make(map[string]float64)
	c.gauges = make(map[string]float64)
	c.histograms = make(map[string][]float64)
}

// GetCounter returns the value of a counter.
func (c *InMemoryCollector) GetCounter(name string, labels ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counters[c.key(name, labels)]
}

// GetGauge returns the value of a gauge.
func (c *InMemoryCollector) GetGauge(name string, labels ...string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gauges[c.key(name, labels)]
}

// GetHistogram returns all observations of a histogram.
func (c *InMemoryCollector) GetHistogram(name string, labels ...string) []float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.histograms[c.key(name, labels)]
}

// =============================================================================
// Timer - Helper for timing operations
// =============================================================================

// Timer is a helper for timing operations and recording to histograms.
type Timer struct {
	start     time.Time
	collector Collector
	name      string
	labels    []string
}

// NewTimer creates a new timer that will record to the given histogram.
func NewTimer(collector Collector, name string, labels ...string) *Timer {
	return &Timer{
		start:     time.Now(),
		collector: collector,
		name:      name,
		labels:    labels,
	}
}

// ObserveDuration records the duration since the timer was created.
func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	t.collector.HistogramObserve(t.name, d.Seconds(), t.labels...)
	return d
}

// =============================================================================
// Global Default Collector
// =============================================================================

var defaultCollector Collector = &NopCollector{}
var defaultCollectorMu sync.RWMutex

// SetDefaultCollector sets the global default metrics collector.
func SetDefaultCollector(collector Collector) {
	defaultCollectorMu.Lock()
	defer defaultCollectorMu.Unlock()
	if collector == nil {
		collector = &NopCollector{}
	}
	defaultCollector = collector
}

// GetDefaultCollector returns the global default metrics collector.
func GetDefaultCollector() Collector {
	defaultCollectorMu.RLock()
	defer defaultCollectorMu.RUnlock()
	return defaultCollector
}

var (
	_ Collector = (*NopCollector)(nil)
	_ Collector = (*InMemoryCollector)(nil)
)
