// Package schedtest provides hand-driven tickers for tests of pollers.
package schedtest

import (
	"sync"
	"time"

	"custom-billing/internal/infra/sched"
)

// ManualTicker fires only when Tick is called.
type ManualTicker struct {
	ch       chan time.Time
	Interval time.Duration

	mu      sync.Mutex
	stopped bool
}

func (m *ManualTicker) C() <-chan time.Time { return m.ch }

func (m *ManualTicker) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

// Stopped reports whether the owner released the ticker.
func (m *ManualTicker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Tick delivers one tick. It returns false if nobody received it within a second.
func (m *ManualTicker) Tick() bool {
	select {
	case m.ch <- time.Now():
		return true
	case <-time.After(time.Second):
		return false
	}
}

// Clock hands out ManualTickers and remembers them.
type Clock struct {
	mu      sync.Mutex
	tickers []*ManualTicker
}

// NewTicker satisfies sched.TickerFactory.
func (c *Clock) NewTicker(d time.Duration) sched.Ticker {
	t := &ManualTicker{ch: make(chan time.Time), Interval: d}
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
	return t
}

// Count is the number of tickers created so far.
func (c *Clock) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

// Last returns the most recently created ticker, or nil.
func (c *Clock) Last() *ManualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		return nil
	}
	return c.tickers[len(c.tickers)-1]
}

// Running counts tickers that have not been stopped.
func (c *Clock) Running() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.Stopped() {
			n++
		}
	}
	return n
}

// Eventually polls cond until it holds or the timeout passes.
func Eventually(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(2 * time.Millisecond)
	}
}
