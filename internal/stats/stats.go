// Package stats keeps the gateway's process-wide traffic counters and renders
// them as the JSON document served on the gateway's own /metrics path.
package stats

import (
	"math"
	"sync/atomic"
	"time"
)

// noSample marks an average that has not seen its first observation yet.
const noSample = ^uint64(0)

// Collector holds independently updated counters. A Snapshot is not atomic
// across fields.
type Collector struct {
	total         atomic.Uint64
	successful    atomic.Uint64
	failed        atomic.Uint64
	serviceErrors atomic.Uint64
	active        atomic.Int64
	avgResponseMs atomic.Uint64
}

// Snapshot is the JSON shape of the counters.
type Snapshot struct {
	TotalRequests         uint64  `json:"total_requests"`
	SuccessfulRequests    uint64  `json:"successful_requests"`
	FailedRequests        uint64  `json:"failed_requests"`
	ServiceErrors         uint64  `json:"service_errors"`
	AverageResponseTimeMs uint64  `json:"average_response_time_ms"`
	ActiveConnections     int64   `json:"active_connections"`
	SuccessRate           float64 `json:"success_rate"`
}

// NewCollector returns a zeroed collector.
func NewCollector() *Collector {
	c := &Collector{}
	c.avgResponseMs.Store(noSample)
	return c
}

// RequestStarted counts a new request and marks it in flight.
func (c *Collector) RequestStarted() {
	c.total.Add(1)
	c.active.Add(1)
}

// RequestFinished releases the in-flight slot taken by RequestStarted.
func (c *Collector) RequestFinished() {
	c.active.Add(-1)
}

// RecordSuccess counts a proxied request that returned an upstream response.
func (c *Collector) RecordSuccess() { c.successful.Add(1) }

// RecordFailure counts a request that ended in an error response.
func (c *Collector) RecordFailure() { c.failed.Add(1) }

// RecordServiceError counts a request rejected because its backend was down.
func (c *Collector) RecordServiceError() { c.serviceErrors.Add(1) }

// RecordLatency folds d into the running average. The first sample sets the
// average; after that each sample is averaged with the previous value.
func (c *Collector) RecordLatency(d time.Duration) {
	ms := uint64(d.Milliseconds())
	if d < 0 {
		ms = 0
	}
	for {
		old := c.avgResponseMs.Load()
		next := ms
		if old != noSample {
			next = (old + ms) / 2
		}
		if c.avgResponseMs.CompareAndSwap(old, next) {
			return
		}
	}
}

// Snapshot reads every counter once.
func (c *Collector) Snapshot() Snapshot {
	s := Snapshot{
		TotalRequests:      c.total.Load(),
		SuccessfulRequests: c.successful.Load(),
		FailedRequests:     c.failed.Load(),
		ServiceErrors:      c.serviceErrors.Load(),
		ActiveConnections:  c.active.Load(),
	}
	if avg := c.avgResponseMs.Load(); avg != noSample {
		s.AverageResponseTimeMs = avg
	}
	if s.TotalRequests > 0 {
		rate := float64(s.SuccessfulRequests) / float64(s.TotalRequests) * 100
		s.SuccessRate = math.Round(rate*100) / 100
	}
	return s
}
