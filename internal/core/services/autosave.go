package services

import (
	"context"
	"sync"
	"time"
)

// autosaver debounces form persistence. Each Schedule restarts the delay;
// the save runs once the edits stop.
type autosaver struct {
	delay time.Duration
	save  func(ctx context.Context) error

	mu      sync.Mutex
	idle    *sync.Cond
	timer   *time.Timer
	pending bool
	running int
	closed  bool
}

func newAutosaver(delay time.Duration, save func(ctx context.Context) error) *autosaver {
	a := &autosaver{delay: delay, save: save}
	a.idle = sync.NewCond(&a.mu)
	return a
}

// Schedule marks the form dirty and restarts the delay.
func (a *autosaver) Schedule() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.pending = true
	if a.timer == nil {
		a.timer = time.AfterFunc(a.delay, a.fire)
		return
	}
	a.timer.Reset(a.delay)
}

func (a *autosaver) fire() {
	a.mu.Lock()
	if !a.pending || a.closed {
		a.mu.Unlock()
		return
	}
	a.pending = false
	a.running++
	a.mu.Unlock()

	_ = a.save(context.Background())

	a.mu.Lock()
	a.running--
	a.idle.Broadcast()
	a.mu.Unlock()
}

// stop cancels the timer and waits for a running save. Caller holds mu.
func (a *autosaver) stop() bool {
	pending := a.pending
	a.pending = false
	if a.timer != nil {
		a.timer.Stop()
	}
	for a.running > 0 {
		a.idle.Wait()
	}
	return pending
}

// Flush saves now if an edit is pending.
func (a *autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	pending := a.stop()
	a.mu.Unlock()

	if !pending {
		return nil
	}
	return a.save(ctx)
}

// Cancel drops a pending save.
func (a *autosaver) Cancel() {
	a.mu.Lock()
	a.stop()
	a.mu.Unlock()
}

// Close flushes and stops accepting edits.
func (a *autosaver) Close(ctx context.Context) error {
	a.mu.Lock()
	pending := a.stop()
	a.closed = true
	a.mu.Unlock()

	if !pending {
		return nil
	}
	return a.save(ctx)
}
