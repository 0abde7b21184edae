package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"flowboard/internal/domain"
)

const (
	importedDir = "imported"
	failedDir   = "failed"
)

// ImportWatcher imports every *.json file dropped into an inbox directory as a
// new board named after the file. Imported files move to inbox/imported,
// rejected ones to inbox/failed.
type ImportWatcher struct {
	boards   *BoardService
	dir      string
	logger   *zap.Logger
	debounce time.Duration
	guard    runGuard

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	timers  map[string]*time.Timer
}

func NewImportWatcher(boards *BoardService, inboxDir string, logger *zap.Logger) *ImportWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportWatcher{
		boards:   boards,
		dir:      inboxDir,
		logger:   logger.With(zap.String("component", "import-watcher"), zap.String("inbox", inboxDir)),
		debounce: 500 * time.Millisecond,
		timers:   make(map[string]*time.Timer),
	}
}

// Start creates the inbox layout, imports files already waiting there and
// begins watching for new ones.
func (w *ImportWatcher) Start(ctx context.Context) error {
	w.Stop()

	for _, d := range []string{w.dir, filepath.Join(w.dir, importedDir), filepath.Join(w.dir, failedDir)} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("create inbox dir: %w", err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch inbox: %w", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.watcher = watcher
	w.cancel = cancel
	w.mu.Unlock()

	go w.loop(watchCtx, watcher)

	pending, err := filepath.Glob(filepath.Join(w.dir, "*.json"))
	if err != nil {
		return fmt.Errorf("scan inbox: %w", err)
	}
	for _, path := range pending {
		w.schedule(watchCtx, path)
	}
	w.logger.Info("watching inbox", zap.Int("pending", len(pending)))
	return nil
}

func (w *ImportWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// schedule (re)arms the debounce timer for path so a file still being
// written is imported once, after the writes settle.
func (w *ImportWatcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, exists := w.timers[path]; exists {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		if _, err := w.ImportFile(ctx, path); err != nil && !errors.Is(err, ErrAlreadyRunning) {
			w.logger.Warn("inbox import failed", zap.String("file", path), zap.Error(err))
		}
	})
}

// ImportFile imports one file and moves it out of the inbox. The board name
// is the file name without extension.
func (w *ImportWatcher) ImportFile(ctx context.Context, path string) (string, error) {
	var boardID string
	err := w.guard.Do(path, func() error {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				// already handled by an earlier event
				return nil
			}
			return fmt.Errorf("read %s: %w", path, err)
		}

		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		boardID, err = w.boards.ImportBoardFromJSON(ctx, string(data), name, "")
		if err != nil {
			if errors.Is(err, domain.ErrSchema) || errors.Is(err, domain.ErrValidation) {
				if mvErr := w.move(path, failedDir); mvErr != nil {
					w.logger.Warn("could not move rejected file", zap.String("file", path), zap.Error(mvErr))
				}
			}
			// storage errors leave the file in place for the next attempt
			return err
		}

		w.logger.Info("imported board", zap.String("file", path), zap.String("board_id", boardID))
		return w.move(path, importedDir)
	})
	return boardID, err
}

func (w *ImportWatcher) move(path, sub string) error {
	dest := filepath.Join(w.dir, sub, filepath.Base(path))
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(dest)
		dest = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(dest, ext), time.Now().UnixMilli(), ext)
	}
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("move %s to %s: %w", path, sub, err)
	}
	return nil
}

// Wait blocks until in-flight imports finish or ctx is done.
func (w *ImportWatcher) Wait(ctx context.Context) {
	w.guard.WaitAll(ctx)
}

// Stop ends the watch loop and drops pending debounce timers.
func (w *ImportWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.watcher != nil {
		w.watcher.Close()
		w.watcher = nil
	}
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
