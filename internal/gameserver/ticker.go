package gameserver

import (
	"context"
	"sort"
	"sync"
	"time"
)

// TickManager runs named periodic callbacks on one goroutine.
//
// Invariant: each callback is invoked at most once per tick interval.
type TickManager struct {
	interval time.Duration
	mu       sync.Mutex
	ticks    map[string]func(now time.Time)
}

// NewTickManager returns a manager that fires every interval.
//
// Precondition: interval must be > 0.
func NewTickManager(interval time.Duration) *TickManager {
	if interval <= 0 {
		panic("gameserver.NewTickManager: interval must be > 0")
	}
	return &TickManager{
		interval: interval,
		ticks:    make(map[string]func(time.Time)),
	}
}

// RegisterTick registers fn under name, replacing any existing callback.
func (z *TickManager) RegisterTick(name string, fn func(now time.Time)) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.ticks[name] = fn
}

// Unregister removes the callback registered under name.
func (z *TickManager) Unregister(name string) {
	z.mu.Lock()
	defer z.mu.Unlock()
	delete(z.ticks, name)
}

// Fire invokes every registered callback once, in name order.
func (z *TickManager) Fire(now time.Time) {
	z.mu.Lock()
	names := make([]string, 0, len(z.ticks))
	for name := range z.ticks {
		names = append(names, name)
	}
	sort.Strings(names)
	callbacks := make([]func(time.Time), 0, len(names))
	for _, name := range names {
		callbacks = append(callbacks, z.ticks[name])
	}
	z.mu.Unlock()
	for _, fn := range callbacks {
		fn(now)
	}
}

// Run fires the callbacks every interval until ctx is cancelled.
//
// Postcondition: returns ctx.Err() once ctx is done.
func (z *TickManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(z.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			z.Fire(now)
		}
	}
}
