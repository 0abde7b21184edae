package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Event names emitted by the board services.
const (
	EventSaveStatus       = "board:save-status"
	EventBoardSaved       = "board:saved"
	EventBoardDeleted     = "board:deleted"
	EventBoardImported    = "board:imported"
	EventCleanupCompleted = "board:cleanup-completed"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from their subscribers
// ─────────────────────────────────────────────────────────────

// EventEmitter receives board lifecycle and save-status events. Services take
// this interface instead of a concrete transport, so they can be tested with
// MockEmitter. Implementations must not call back into the emitting service.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// NopEmitter drops every event.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any) {}

// LogEmitter writes each event as a debug log line.
type LogEmitter struct {
	Logger *zap.Logger
}

func (e LogEmitter) Emit(_ context.Context, event string, data any) {
	e.Logger.Debug("event", zap.String("event", event), zap.Any("data", data))
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
// Safe for concurrent use; timers may emit from other goroutines.
type MockEmitter struct {
	mu     sync.Mutex
	events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, EmittedEvent{Event: event, Data: data})
}

// Events returns a copy of everything recorded so far.
func (m *MockEmitter) Events() []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EmittedEvent, len(m.events))
	copy(out, m.events)
	return out
}

// Named returns the recorded payloads for one event name, in order.
func (m *MockEmitter) Named(event string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []any
	for _, e := range m.events {
		if e.Event == event {
			out = append(out, e.Data)
		}
	}
	return out
}
