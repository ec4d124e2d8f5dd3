package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTickInterval is the wall-clock period of one tick at 20 ticks per second.
const DefaultTickInterval = 50 * time.Millisecond

// TickFunc is invoked once per tick with the new tick number.
type TickFunc func(ctx context.Context, tick uint64)

// TickLoop advances a tick counter at a fixed wall-clock interval and invokes
// the registered callbacks in registration order.
//
// Invariant: callbacks never run concurrently with each other.
type TickLoop struct {
	interval  time.Duration
	mu        sync.Mutex
	callbacks []TickFunc
	stepMu    sync.Mutex
	tick      atomic.Uint64
}

// NewTickLoop returns a loop that fires every interval.
//
// Precondition: interval must be > 0.
func NewTickLoop(interval time.Duration) *TickLoop {
	if interval <= 0 {
		panic("engine.NewTickLoop: interval must be > 0")
	}
	return &TickLoop{interval: interval}
}

// Register appends fn to the callbacks run on every tick.
func (l *TickLoop) Register(fn TickFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.callbacks = append(l.callbacks, fn)
}

// Current returns the last tick fired, or 0 before the first tick.
func (l *TickLoop) Current() uint64 {
	return l.tick.Load()
}

// Step advances the counter by one and runs every callback synchronously.
//
// Postcondition: Returns the tick number that was fired.
func (l *TickLoop) Step(ctx context.Context) uint64 {
	l.stepMu.Lock()
	defer l.stepMu.Unlock()
	l.mu.Lock()
	callbacks := append([]TickFunc(nil), l.callbacks...)
	l.mu.Unlock()
	n := l.tick.Add(1)
	for _, fn := range callbacks {
		fn(ctx, n)
	}
	return n
}

// Run fires ticks until ctx is cancelled. It blocks.
func (l *TickLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Step(ctx)
		}
	}
}

// Start runs the loop in a new goroutine. The returned channel is closed when
// the loop exits after ctx is cancelled.
func (l *TickLoop) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()
	return done
}
