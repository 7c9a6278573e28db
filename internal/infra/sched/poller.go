package sched

import (
	"context"
	"sync"
	"time"
)

// Ticker is the part of time.Ticker the poller needs. Tests substitute a
// hand-driven implementation.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a Ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker is the default TickerFactory backed by time.NewTicker.
func NewRealTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }

// PollFunc runs one tick. Returning false ends the poller.
type PollFunc func(ctx context.Context) bool

// Poller runs a PollFunc on a fixed interval until stopped or until the
// function asks to stop. A Poller owns exactly one ticker at a time.
//
// Stop does not abort a tick that is already running: the tick receives a
// context detached from the poller's cancellation and the loop exits at the
// next tick boundary.
type Poller struct {
	interval  time.Duration
	fn        PollFunc
	newTicker TickerFactory

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller constructs a poller. If interval <= 0 it defaults to 5 seconds;
// a nil factory means real time.
func NewPoller(interval time.Duration, fn PollFunc, newTicker TickerFactory) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if newTicker == nil {
		newTicker = NewRealTicker
	}
	done := make(chan struct{})
	close(done)
	return &Poller{interval: interval, fn: fn, newTicker: newTicker, done: done}
}

// Start begins polling in a background goroutine. Calling Start on a running
// poller has no effect.
func (p *Poller) Start(parent context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	p.gen++
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.gen, p.newTicker(p.interval), p.done)
}

func (p *Poller) loop(ctx context.Context, gen uint64, t Ticker, done chan struct{}) {
	defer func() {
		t.Stop()
		p.mu.Lock()
		if p.gen == gen && p.cancel != nil {
			p.cancel()
			p.cancel = nil
		}
		p.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			// Stop may have raced with the tick.
			if ctx.Err() != nil {
				return
			}
			if !p.fn(context.WithoutCancel(ctx)) {
				return
			}
		}
	}
}

// Stop cancels the poller. It is idempotent and does not block; use Done to
// wait for the loop to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
}

// Done is closed once the most recently started loop has exited.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}
