package service

import (
	"context"
	"errors"
	"sync"
)

// ErrAlreadyRunning is returned when a guarded task is started while a
// previous run with the same key is still in progress.
var ErrAlreadyRunning = errors.New("already running")

// ExportedRunGuard is an exported alias so _test packages can test the guard.
type ExportedRunGuard = runGuard

// ─────────────────────────────────────────────────────────────
// runGuard: one run per key
// ─────────────────────────────────────────────────────────────

// runGuard keeps background tasks (scheduled cleanups, inbox imports) from
// overlapping with themselves and lets shutdown wait for in-flight runs.
// The zero value is ready to use.
type runGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks key as running. It reports false if key is already running.
func (g *runGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, busy := g.running[key]; busy {
		return false
	}
	g.running[key] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases key. Must follow a successful TryLock.
func (g *runGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.running[key]; !ok {
		return
	}
	delete(g.running, key)
	g.wg.Done()
}

// Do runs fn under key, or returns ErrAlreadyRunning without calling it.
func (g *runGuard) Do(key string, fn func() error) error {
	if !g.TryLock(key) {
		return ErrAlreadyRunning
	}
	defer g.Unlock(key)
	return fn()
}

// WaitAll blocks until every held key is released or ctx is done.
func (g *runGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
