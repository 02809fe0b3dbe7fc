package usage_test

import (
	"sync"
	"sync/atomic"
	"time"
)

var baseTime = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type testGate struct {
	disabled atomic.Bool
}

func (g *testGate) DailyTrackingAvailable() bool {
	return !g.disabled.Load()
}
