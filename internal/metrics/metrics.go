// metrics.go - Metrics collection for the funding engine
package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	Counter   MetricType = "counter"
	Gauge     MetricType = "gauge"
	Histogram MetricType = "histogram"
)

// Metric represents a single metric
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Collector manages metrics collection. A nil *Collector discards everything.
type Collector struct {
	mu         sync.RWMutex
	metrics    map[string]*Metric
	counters   map[string]int64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		metrics:    make(map[string]*Metric),
		counters:   make(map[string]int64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

// IncrementCounter increments a counter metric
func (mc *Collector) IncrementCounter(name string, labels map[string]string) {
	if mc == nil {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := makeKey(name, labels)
	mc.counters[key]++
	mc.updateMetric(key, name, Counter, float64(mc.counters[key]), labels)
}

// SetGauge sets a gauge metric value
func (mc *Collector) SetGauge(name string, value float64, labels map[string]string) {
	if mc == nil {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := makeKey(name, labels)
	mc.gauges[key] = value
	mc.updateMetric(key, name, Gauge, value, labels)
}

// RecordHistogram records a value in a histogram
func (mc *Collector) RecordHistogram(name string, value float64, labels map[string]string) {
	if mc == nil {
		return
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := makeKey(name, labels)
	h := append(mc.histograms[key], value)
	// Keep only last 1000 values for memory efficiency
	if len(h) > 1000 {
		h = h[len(h)-1000:]
	}
	mc.histograms[key] = h
	mc.updateMetric(key, name, Histogram, value, labels)
}

// Counter returns the current value of a counter.
func (mc *Collector) Counter(name string, labels map[string]string) int64 {
	if mc == nil {
		return 0
	}
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.counters[makeKey(name, labels)]
}

// GetMetric retrieves a metric by name and labels
func (mc *Collector) GetMetric(name string, labels map[string]string) *Metric {
	if mc == nil {
		return nil
	}
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.metrics[makeKey(name, labels)]
}

// Summary returns counters, gauges and histogram aggregates.
func (mc *Collector) Summary() map[string]interface{} {
	summary := make(map[string]interface{})
	if mc == nil {
		return summary
	}
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	counters := make(map[string]int64, len(mc.counters))
	for key, v := range mc.counters {
		counters[key] = v
	}
	summary["counters"] = counters

	gauges := make(map[string]float64, len(mc.gauges))
	for key, v := range mc.gauges {
		gauges[key] = v
	}
	summary["gauges"] = gauges

	histograms := make(map[string]map[string]float64)
	for key, values := range mc.histograms {
		if len(values) == 0 {
			continue
		}
		h := map[string]float64{"count": float64(len(values)), "min": values[0], "max": values[0]}
		var sum float64
		for _, v := range values {
			if v < h["min"] {
				h["min"] = v
			}
			if v > h["max"] {
				h["max"] = v
			}
			sum += v
		}
		h["sum"] = sum
		h["avg"] = sum / h["count"]
		histograms[key] = h
	}
	summary["histograms"] = histograms
	return summary
}

// makeKey creates a deterministic key for a metric name and labels
func makeKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString("_")
		b.WriteString(k)
		b.WriteString("_")
		b.WriteString(labels[k])
	}
	return b.String()
}

func (mc *Collector) updateMetric(key, name string, metricType MetricType, value float64, labels map[string]string) {
	mc.metrics[key] = &Metric{
		Name:      name,
		Type:      metricType,
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// Predefined metric names
const (
	MetricDonations       = "donations_total"
	MetricDonateRejected  = "donate_rejected"
	MetricWithdrawals     = "withdrawals_total"
	MetricRefunds         = "refunds_total"
	MetricCancellations   = "cancellations_total"
	MetricPledgedAmount   = "pledged_amount"
	MetricProofVerifyTime = "proof_verify_seconds"
	MetricSanctionedGauge = "sanctioned_addresses"
)

// RecordDonation counts a committed donation and updates the campaign gauge.
func (mc *Collector) RecordDonation(campaign string, pledged uint64) {
	mc.IncrementCounter(MetricDonations, nil)
	mc.SetGauge(MetricPledgedAmount, float64(pledged), map[string]string{"campaign": campaign})
}

// RecordRejection counts a rejected donation by reason.
func (mc *Collector) RecordRejection(reason string) {
	mc.IncrementCounter(MetricDonateRejected, map[string]string{"reason": reason})
}

func (mc *Collector) RecordProofVerify(d time.Duration) {
	mc.RecordHistogram(MetricProofVerifyTime, d.Seconds(), nil)
}
