package service

import (
	"context"
	"sync"
	"time"

	"flowboard/internal/domain"
)

// SaveStatus is the observable state of the most recent save.
type SaveStatus string

const (
	StatusIdle    SaveStatus = "idle"
	StatusSaving  SaveStatus = "saving"
	StatusSuccess SaveStatus = "success"
	StatusError   SaveStatus = "error"
)

// DefaultStatusRevert is how long Success and Error stay visible.
const DefaultStatusRevert = 3 * time.Second

// SaveStatusSnapshot is what subscribers receive on every transition.
type SaveStatusSnapshot struct {
	Status      SaveStatus `json:"status"`
	BoardID     string     `json:"boardId,omitempty"`
	Error       string     `json:"error,omitempty"`
	LastSavedAt string     `json:"lastSavedAt,omitempty"`
}

// SaveStatusTracker owns the Idle -> Saving -> Success|Error -> Idle machine.
// Success and Error revert to Idle after revertAfter unless a newer
// transition happened first; a generation counter makes stale timers no-ops.
// Events are emitted after mu is released, so an emitter may read Status.
type SaveStatusTracker struct {
	revertAfter time.Duration
	emitter     EventEmitter
	now         func() time.Time

	mu    sync.Mutex
	state SaveStatusSnapshot
	gen   uint64
	timer *time.Timer
}

func NewSaveStatusTracker(revertAfter time.Duration, emitter EventEmitter, now func() time.Time) *SaveStatusTracker {
	if revertAfter <= 0 {
		revertAfter = DefaultStatusRevert
	}
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if now == nil {
		now = time.Now
	}
	return &SaveStatusTracker{
		revertAfter: revertAfter,
		emitter:     emitter,
		now:         now,
		state:       SaveStatusSnapshot{Status: StatusIdle},
	}
}

// Status returns the current snapshot.
func (t *SaveStatusTracker) Status() SaveStatusSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Begin enters Saving. boardID is empty for a board that has no id yet.
func (t *SaveStatusTracker) Begin(ctx context.Context, boardID string) {
	t.mu.Lock()
	t.stopTimerLocked()
	t.gen++
	t.state = SaveStatusSnapshot{Status: StatusSaving, BoardID: boardID, LastSavedAt: t.state.LastSavedAt}
	snap := t.state
	t.mu.Unlock()

	t.emitter.Emit(ctx, EventSaveStatus, snap)
}

// Succeed enters Success and schedules the revert.
func (t *SaveStatusTracker) Succeed(ctx context.Context, boardID string) {
	t.finish(ctx, SaveStatusSnapshot{
		Status:      StatusSuccess,
		BoardID:     boardID,
		LastSavedAt: domain.FormatTimestamp(t.now()),
	})
}

// Fail enters Error with err's message and schedules the revert.
func (t *SaveStatusTracker) Fail(ctx context.Context, boardID string, err error) {
	t.mu.Lock()
	last := t.state.LastSavedAt
	t.mu.Unlock()
	t.finish(ctx, SaveStatusSnapshot{
		Status:      StatusError,
		BoardID:     boardID,
		Error:       err.Error(),
		LastSavedAt: last,
	})
}

func (t *SaveStatusTracker) finish(ctx context.Context, next SaveStatusSnapshot) {
	t.mu.Lock()
	t.stopTimerLocked()
	t.gen++
	gen := t.gen
	t.state = next
	// the request context may be gone by the time the timer fires
	t.timer = time.AfterFunc(t.revertAfter, func() { t.revert(gen) })
	t.mu.Unlock()

	t.emitter.Emit(ctx, EventSaveStatus, next)
}

func (t *SaveStatusTracker) revert(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	t.state = SaveStatusSnapshot{Status: StatusIdle, LastSavedAt: t.state.LastSavedAt}
	snap := t.state
	t.mu.Unlock()

	t.emitter.Emit(context.Background(), EventSaveStatus, snap)
}

// Stop cancels a pending revert. The tracker stays usable.
func (t *SaveStatusTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTimerLocked()
}

func (t *SaveStatusTracker) stopTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
