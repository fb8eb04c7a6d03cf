// Package reminder implements reminder scheduling on top of the durable
// store, plus an in-process timer pool for short delays and fuzzy
// deletion matching over both.
package reminder

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// VolatileEntry is a snapshot of one pending in-process timer. Entries
// live only in memory and are lost on restart.
type VolatileEntry struct {
	Handle  string
	UserID  string
	Content string
}

// DeliverFunc receives a fired timer's notification. It runs on the
// timer's own goroutine and may block without delaying other timers.
type DeliverFunc func(userID, content string)

type volatileTimer struct {
	entry  VolatileEntry
	cancel context.CancelFunc
}

// VolatileTimerPool holds short-delay timers, each an independently
// cancellable goroutine. The pool resolves the fire/cancel race with a
// single rule: whoever removes the entry first wins. A timer delivers
// only if its entry was still present when it fired; Cancel on an entry
// that already fired finds nothing and is a no-op.
type VolatileTimerPool struct {
	mu      sync.Mutex
	timers  map[string]*volatileTimer
	byUser  map[string][]string
	deliver DeliverFunc

	ctx      context.Context
	cancelFn context.CancelFunc
	wg       sync.WaitGroup
	closed   bool
}

// NewVolatileTimerPool creates an empty pool delivering through the
// given function.
func NewVolatileTimerPool(deliver DeliverFunc) *VolatileTimerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &VolatileTimerPool{
		timers:   make(map[string]*volatileTimer),
		byUser:   make(map[string][]string),
		deliver:  deliver,
		ctx:      ctx,
		cancelFn: cancel,
	}
}

// Schedule registers a timer that delivers content to the user after
// delay. The returned handle cancels it. Scheduling on a closed pool
// returns an empty handle.
func (p *VolatileTimerPool) Schedule(userID string, delay time.Duration, content string) string {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ""
	}

	handle := uuid.NewString()
	ctx, cancel := context.WithCancel(p.ctx)
	p.timers[handle] = &volatileTimer{
		entry:  VolatileEntry{Handle: handle, UserID: userID, Content: content},
		cancel: cancel,
	}
	p.byUser[userID] = append(p.byUser[userID], handle)
	p.wg.Add(1)
	p.mu.Unlock()

	go p.run(ctx, handle, delay)
	return handle
}

func (p *VolatileTimerPool) run(ctx context.Context, handle string, delay time.Duration) {
	defer p.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		p.take(handle)
	case <-timer.C:
		// Claim the entry before delivering; a concurrent Cancel that
		// claimed it first suppresses delivery.
		if entry, ok := p.take(handle); ok {
			p.deliver(entry.UserID, entry.Content)
		}
	}
}

// Cancel removes a pending timer. It returns false when the handle is
// unknown or the timer already fired: nothing to cancel.
func (p *VolatileTimerPool) Cancel(handle string) bool {
	_, ok := p.take(handle)
	return ok
}

// take atomically removes and returns the entry for a handle. Exactly
// one caller wins; everyone else sees ok=false.
func (p *VolatileTimerPool) take(handle string) (VolatileEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	timer, ok := p.timers[handle]
	if !ok {
		return VolatileEntry{}, false
	}
	delete(p.timers, handle)
	timer.cancel()

	handles := p.byUser[timer.entry.UserID]
	for i, h := range handles {
		if h == handle {
			p.byUser[timer.entry.UserID] = append(handles[:i], handles[i+1:]...)
			break
		}
	}
	if len(p.byUser[timer.entry.UserID]) == 0 {
		delete(p.byUser, timer.entry.UserID)
	}
	return timer.entry, true
}

// Entries returns a snapshot of the user's pending timers in scheduling
// order. The snapshot is safe to iterate while the pool mutates.
func (p *VolatileTimerPool) Entries(userID string) []VolatileEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	handles := p.byUser[userID]
	entries := make([]VolatileEntry, 0, len(handles))
	for _, h := range handles {
		if timer, ok := p.timers[h]; ok {
			entries = append(entries, timer.entry)
		}
	}
	return entries
}

// FindByContent returns the user's first pending timer whose content
// contains needle. An empty needle matches nothing.
func (p *VolatileTimerPool) FindByContent(userID, needle string) (VolatileEntry, bool) {
	if needle == "" {
		return VolatileEntry{}, false
	}
	for _, entry := range p.Entries(userID) {
		if strings.Contains(entry.Content, needle) {
			return entry, true
		}
	}
	return VolatileEntry{}, false
}

// Close cancels every pending timer and waits for their goroutines to
// exit. No delivery happens after Close returns.
func (p *VolatileTimerPool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.cancelFn()
	p.wg.Wait()
}
