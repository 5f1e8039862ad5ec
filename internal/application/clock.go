package application

import (
	"sync"
	"time"
)

// Clock interface supaya gampang ditest
type Clock interface {
	Now() time.Time
}

// SystemClock implementasi default, pakai time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// MonotonicClock never returns the same instant twice. Timestamps are
// truncated to microseconds so they survive a round trip through every
// supported database unchanged.
type MonotonicClock struct {
	Base Clock

	mu   sync.Mutex
	last time.Time
}

func NewMonotonicClock(base Clock) *MonotonicClock {
	if base == nil {
		base = SystemClock{}
	}
	return &MonotonicClock{Base: base}
}

func (c *MonotonicClock) Now() time.Time {
	now := c.Base.Now().UTC().Truncate(time.Microsecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !now.After(c.last) {
		now = c.last.Add(time.Microsecond)
	}
	c.last = now
	return now
}

// FixedClock returns T on every call.
type FixedClock struct{ T time.Time }

func (c FixedClock) Now() time.Time { return c.T }
