package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCollector(t *testing.T) {
	c := NewInMemoryCollector()

	t.Run("Counter", func(t *testing.T) {
		c.CounterInc("test_counter", "label1", "value1")
		c.CounterInc("test_counter", "label1", "value1")
		c.CounterAdd("test_counter", 5, "label1", "value1")

		assert.Equal(t, float64(7), c.GetCounter("test_counter", "label1", "value1"))
		assert.Zero(t, c.GetCounter("test_counter", "label1", "other"))
	})

	t.Run("Gauge", func(t *testing.T) {
		c.GaugeSet("test_gauge", 42, "label1", "value1")
		assert.Equal(t, float64(42), c.GetGauge("test_gauge", "label1", "value1"))

		c.GaugeInc("test_gauge", "label1", "value1")
		assert.Equal(t, float64(43), c.GetGauge("test_gauge", "label1", "value1"))

		c.GaugeDec("test_gauge", "label1", "value1")
		assert.Equal(t, float64(42), c.GetGauge("test_gauge", "label1", "value1"))
	})

	t.Run("Histogram", func(t *testing.T) {
		c.HistogramObserve("test_histogram", 1.5, "label1", "value1")
		c.HistogramObserve("test_histogram", 2.5, "label1", "value1")
		c.HistogramObserve("test_histogram", 3.5, "label1", "value1")

		assert.Equal(t, []float64{1.5, 2.5, 3.5}, c.GetHistogram("test_histogram", "label1", "value1"))
	})

	t.Run("Reset", func(t *testing.T) {
		c.Reset()

		assert.Zero(t, c.GetCounter("test_counter", "label1", "value1"))
		assert.Zero(t, c.GetGauge("test_gauge", "label1", "value1"))
		assert.Empty(t, c.GetHistogram("test_histogram", "label1", "value1"))
	})
}

func TestNopCollector(t *testing.T) {
	c := &NopCollector{}

	assert.NotPanics(t, func() {
		c.CounterInc("test", "label", "value")
		c.CounterAdd("test", 5, "label", "value")
		c.GaugeSet("test", 42, "label", "value")
		c.GaugeInc("test", "label", "value")
		c.GaugeDec("test", "label", "value")
		c.HistogramObserve("test", 1.5, "label", "value")
		c.Reset()
	})
}

func TestTimer(t *testing.T) {
	c := NewInMemoryCollector()
	timer := NewTimer(c, "test_timer", "operation", "test")

	time.Sleep(10 * time.Millisecond)

	duration := timer.ObserveDuration()
	assert.GreaterOrEqual(t, duration, 10*time.Millisecond)

	observations := c.GetHistogram("test_timer", "operation", "test")
	require.Len(t, observations, 1)
	assert.Equal(t, duration.Seconds(), observations[0])
}

func TestDefaultCollector(t *testing.T) {
	require.NotNil(t, GetDefaultCollector())

	custom := NewInMemoryCollector()
	SetDefaultCollector(custom)
	assert.Same(t, custom, GetDefaultCollector())

	SetDefaultCollector(nil)
	assert.IsType(t, &NopCollector{}, GetDefaultCollector())
}

func TestMetricDefinitions(t *testing.T) {
	definitions := Definitions()
	require.NotEmpty(t, definitions)

	seen := make(map[string]bool)
	for _, def := range definitions {
		assert.NotEmpty(t, def.Name)
		assert.NotEmpty(t, def.Type, def.Name)
		assert.NotEmpty(t, def.Help, def.Name)
		assert.False(t, seen[def.Name], "%s defined twice", def.Name)
		seen[def.Name] = true
	}
}

func TestLabelsToValues(t *testing.T) {
	tests := []struct {
		name     string
		labels   []string
		expected []string
	}{
		{
			name:     "empty",
			labels:   []string{},
			expected: nil,
		},
		{
			name:     "single pair",
			labels:   []string{"key1", "value1"},
			expected: []string{"value1"},
		},
		{
			name:     "multiple pairs",
			labels:   []string{"key1", "value1", "key2", "value2"},
			expected: []string{"value1", "value2"},
		},
		{
			name:     "odd number (incomplete pair)",
			labels:   []string{"key1", "value1", "key2"},
			expected: []string{"value1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, labelsToValues(tt.labels))
		})
	}
}
