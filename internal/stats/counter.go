// Package stats keeps request counters for link creation and resolution and
// periodically turns them into throughput samples.
package stats

import (
	"time"

	"go.uber.org/atomic"
)

// Counter counts creates and resolves. All methods are lock-free.
type Counter struct {
	started time.Time

	createTotal  atomic.Uint64
	resolveTotal atomic.Uint64

	// interval counts are swapped to zero by Sample
	createInterval  atomic.Uint64
	resolveInterval atomic.Uint64
	lastSample      atomic.Int64
}

// Snapshot is the running total since the counter was created.
type Snapshot struct {
	CreateTotal  uint64        `json:"create_total"`
	ResolveTotal uint64        `json:"resolve_total"`
	Uptime       time.Duration `json:"-"`
	UptimeSec    float64       `json:"uptime_seconds"`
}

// Sample covers the period between two calls to Counter.Sample.
type Sample struct {
	Time         time.Time
	Period       time.Duration
	Created      uint64
	Resolved     uint64
	CreateQPS    float64
	ResolveQPS   float64
	CreateTotal  uint64
	ResolveTotal uint64
	// Links is the number of stored links, -1 when it could not be read.
	Links int64
}

// NewCounter returns a Counter whose uptime starts at now.
func NewCounter(now time.Time) *Counter {
	c := &Counter{started: now}
	c.lastSample.Store(now.UnixNano())
	return c
}

// IncCreate records one successful creation.
func (c *Counter) IncCreate() {
	c.createTotal.Inc()
	c.createInterval.Inc()
}

// IncResolve records one successful resolution.
func (c *Counter) IncResolve() {
	c.resolveTotal.Inc()
	c.resolveInterval.Inc()
}

// Snapshot returns the lifetime totals and the uptime at now.
func (c *Counter) Snapshot(now time.Time) Snapshot {
	uptime := now.Sub(c.started)
	return Snapshot{
		CreateTotal:  c.createTotal.Load(),
		ResolveTotal: c.resolveTotal.Load(),
		Uptime:       uptime,
		UptimeSec:    uptime.Seconds(),
	}
}

// Sample resets the interval counts and returns them with their rates.
func (c *Counter) Sample(now time.Time) Sample {
	last := time.Unix(0, c.lastSample.Swap(now.UnixNano()))
	period := now.Sub(last)

	s := Sample{
		Time:         now,
		Period:       period,
		Created:      c.createInterval.Swap(0),
		Resolved:     c.resolveInterval.Swap(0),
		CreateTotal:  c.createTotal.Load(),
		ResolveTotal: c.resolveTotal.Load(),
		Links:        -1,
	}
	if secs := period.Seconds(); secs > 0 {
		s.CreateQPS = float64(s.Created) / secs
		s.ResolveQPS = float64(s.Resolved) / secs
	}
	return s
}
