// Package metrics provides performance tracking and observability for the
// Harvest connector using Prometheus metrics.
//
// The package exposes pre-registered collectors for the operations the
// connector performs: API requests, page fetches, record extraction, and
// endpoint probes. Each component creates its own Collector, which labels
// the shared Prometheus metrics with the component name and keeps a local
// snapshot map for the connector Metrics() surface.
//
// Example:
//
//	collector := metrics.NewCollector("greenhouse")
//	collector.RecordsExtracted("applications", 100)
//	collector.ObserveRequestLatency("applications", time.Since(start))
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_records_extracted_total",
			Help: "Total number of records extracted, by connector and entity",
		},
		[]string{"connector", "entity"},
	)

	pagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_pages_fetched_total",
			Help: "Total number of API pages fetched, by connector and entity",
		},
		[]string{"connector", "entity"},
	)

	requestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harvest_api_request_duration_seconds",
			Help:    "Latency of Harvest API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"connector", "entity"},
	)

	probeResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_endpoint_probes_total",
			Help: "Endpoint access probe outcomes, by connector and result",
		},
		[]string{"connector", "result"},
	)

	requestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvest_api_request_errors_total",
			Help: "Total number of failed Harvest API requests",
		},
		[]string{"connector", "type"},
	)
)

// Collector provides a centralized metrics collection interface for a
// component. It wraps the shared Prometheus metrics with the component name
// and maintains a snapshot map used by the connector's Metrics() method.
type Collector struct {
	name      string
	startTime time.Time

	mu     sync.RWMutex
	values map[string]interface{}
}

// NewCollector creates a new metrics collector for a component.
func NewCollector(name string) *Collector {
	return &Collector{
		name:      name,
		startTime: time.Now(),
		values:    make(map[string]interface{}),
	}
}

// StartTime returns the collector creation time
func (c *Collector) StartTime() time.Time {
	return c.startTime
}

// Record stores an arbitrary value in the local snapshot map
func (c *Collector) Record(name string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = value
}

// GetAll returns a copy of all recorded snapshot values
func (c *Collector) GetAll() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]interface{}, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// RecordsExtracted increments the extracted-record counter for an entity
func (c *Collector) RecordsExtracted(entity string, count int) {
	recordsExtracted.WithLabelValues(c.name, entity).Add(float64(count))
}

// PageFetched increments the page-fetch counter for an entity
func (c *Collector) PageFetched(entity string) {
	pagesFetched.WithLabelValues(c.name, entity).Inc()
}

// ObserveRequestLatency records the latency of one API request
func (c *Collector) ObserveRequestLatency(entity string, d time.Duration) {
	requestLatency.WithLabelValues(c.name, entity).Observe(d.Seconds())
}

// ProbeResult records an endpoint probe outcome ("accessible", "forbidden",
// or "error")
func (c *Collector) ProbeResult(result string) {
	probeResults.WithLabelValues(c.name, result).Inc()
}

// RequestError records a failed API request by error type
func (c *Collector) RequestError(errType string) {
	requestErrors.WithLabelValues(c.name, errType).Inc()
}

// Timer tracks the duration of an operation
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Stop returns the elapsed duration since the timer started
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
