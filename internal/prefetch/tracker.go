// Package prefetch implements asset readiness tracking and the prefetch
// coordinator that gates screen transitions on asset availability.
package prefetch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/launchpath/flowkit/internal/models"
)

// Status is the per-screen readiness state.
type Status string

const (
	StatusUndefined Status = "undefined"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is ready or failed.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

// WaitOutcome is the result of waiting for a screen's assets.
//
// OK means the screen may be shown: either its assets are ready or the
// wait timed out, in which case the caller proceeds with whatever loaded
// (TimedOut is set so hosts can tell, but it is still a success).
// Err is set only when the screen's prepare attempt failed or the
// caller's context was cancelled.
type WaitOutcome struct {
	OK       bool
	TimedOut bool
	Err      error
}

// entry holds the tracked state for one screen id. All fields are
// guarded by the tracker mutex.
type entry struct {
	status   Status
	cause    error
	waiters  map[string]chan WaitOutcome
	timeouts map[string]*time.Timer
}

// Tracker tracks, per screen id, whether the assets required to render
// that screen are fetched, and lets callers await readiness with an
// optional timeout.
//
// All state lives behind a single mutex; waiter continuations are
// delivered by buffered channel send after the lock is released, never
// inline under it, so a continuation can safely call back into the
// tracker. Each waiter is resolved exactly once.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewTracker creates an empty tracker for one prefetch session.
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]*entry)}
}

func (t *Tracker) entryLocked(screenID string) *entry {
	e, ok := t.entries[screenID]
	if !ok {
		e = &entry{
			status:   StatusUndefined,
			waiters:  make(map[string]chan WaitOutcome),
			timeouts: make(map[string]*time.Timer),
		}
		t.entries[screenID] = e
	}
	return e
}

// Status returns the current readiness state for a screen id.
func (t *Tracker) Status(screenID string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[screenID]; ok {
		return e.status
	}
	return StatusUndefined
}

// BeginPreparing transitions a screen into the preparing state. It
// returns false when an attempt is already running or finished, so each
// screen id gets one full attempt per session.
func (t *Tracker) BeginPreparing(screenID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entryLocked(screenID)
	if e.status != StatusUndefined {
		slog.Debug("Tracker BeginPreparing skipped", "screen", screenID, "status", e.status)
		return false
	}
	e.status = StatusPreparing
	return true
}

// MarkPreparing transitions a screen into the preparing state,
// tolerating repeats. Re-entering after a terminal state is rejected.
func (t *Tracker) MarkPreparing(screenID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entryLocked(screenID)
	if e.status.Terminal() {
		slog.Warn("Tracker MarkPreparing after terminal state ignored", "screen", screenID, "status", e.status)
		return
	}
	e.status = StatusPreparing
}

// MarkReady marks a screen's assets as fetched and flushes all waiters
// with a success outcome. Idempotent once terminal.
func (t *Tracker) MarkReady(screenID string) {
	t.resolve(screenID, StatusReady, nil)
}

// MarkFailed marks a screen's prepare attempt as failed and flushes all
// waiters with the failure. Idempotent once terminal.
func (t *Tracker) MarkFailed(screenID string, cause error) {
	if cause == nil {
		cause = models.ErrFailedToLoadAsset
	}
	t.resolve(screenID, StatusFailed, cause)
}

func (t *Tracker) resolve(screenID string, status Status, cause error) {
	t.mu.Lock()
	e := t.entryLocked(screenID)
	if e.status.Terminal() {
		t.mu.Unlock()
		slog.Debug("Tracker transition ignored, already terminal", "screen", screenID, "status", e.status)
		return
	}
	e.status = status
	e.cause = cause
	for _, timer := range e.timeouts {
		timer.Stop()
	}
	e.timeouts = make(map[string]*time.Timer)
	flushed := e.waiters
	e.waiters = make(map[string]chan WaitOutcome)
	t.mu.Unlock()

	outcome := WaitOutcome{OK: status == StatusReady, Err: cause}
	for _, ch := range flushed {
		ch <- outcome
	}
	if len(flushed) > 0 {
		slog.Debug("Tracker flushed waiters", "screen", screenID, "status", status, "count", len(flushed))
	}
}

// Wait blocks until the screen's assets are ready or failed, or until
// the timeout elapses. A zero timeout waits indefinitely. Timeout means
// "proceed anyway with partial assets": the outcome reports success with
// TimedOut set, the underlying prepare keeps running, and other waiters
// for the same screen are unaffected.
func (t *Tracker) Wait(ctx context.Context, screenID string, timeout time.Duration) WaitOutcome {
	t.mu.Lock()
	e := t.entryLocked(screenID)
	switch e.status {
	case StatusReady:
		t.mu.Unlock()
		return WaitOutcome{OK: true}
	case StatusFailed:
		cause := e.cause
		t.mu.Unlock()
		return WaitOutcome{Err: cause}
	}

	id := uuid.NewString()
	ch := make(chan WaitOutcome, 1)
	e.waiters[id] = ch
	if timeout > 0 {
		e.timeouts[id] = time.AfterFunc(timeout, func() {
			t.expireWaiter(screenID, id)
		})
	}
	t.mu.Unlock()
	slog.Debug("Tracker waiter registered", "screen", screenID, "waiter", id, "timeout", timeout)

	select {
	case outcome := <-ch:
		return outcome
	case <-ctx.Done():
		t.removeWaiter(screenID, id)
		return WaitOutcome{Err: ctx.Err()}
	}
}

// expireWaiter resolves exactly the waiter whose deadline fired with a
// proceed-anyway success. If the real readiness signal won the race the
// waiter is already gone and this is a no-op.
func (t *Tracker) expireWaiter(screenID, waiterID string) {
	t.mu.Lock()
	e, ok := t.entries[screenID]
	if !ok {
		t.mu.Unlock()
		return
	}
	ch, ok := e.waiters[waiterID]
	if !ok {
		t.mu.Unlock()
		return
	}
	delete(e.waiters, waiterID)
	delete(e.timeouts, waiterID)
	t.mu.Unlock()

	slog.Debug("Tracker waiter timed out, proceeding", "screen", screenID, "waiter", waiterID)
	ch <- WaitOutcome{OK: true, TimedOut: true}
}

func (t *Tracker) removeWaiter(screenID, waiterID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[screenID]
	if !ok {
		return
	}
	if timer, ok := e.timeouts[waiterID]; ok {
		timer.Stop()
		delete(e.timeouts, waiterID)
	}
	delete(e.waiters, waiterID)
}

// Reset drops all tracked state. Called when the prefetch session ends;
// remaining waiters are flushed with a cancellation outcome.
func (t *Tracker) Reset() {
	t.mu.Lock()
	var flushed []chan WaitOutcome
	for _, e := range t.entries {
		for _, timer := range e.timeouts {
			timer.Stop()
		}
		for _, ch := range e.waiters {
			flushed = append(flushed, ch)
		}
	}
	t.entries = make(map[string]*entry)
	t.mu.Unlock()

	for _, ch := range flushed {
		ch <- WaitOutcome{Err: context.Canceled}
	}
	slog.Debug("Tracker reset", "flushed_waiters", len(flushed))
}
