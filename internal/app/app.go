// Package app is the composition root: it turns a Config into a running
// board service with its storage, background jobs and surfaces.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"flowboard/internal/codec"
	"flowboard/internal/config"
	"flowboard/internal/domain"
	"flowboard/internal/httpapi"
	"flowboard/internal/service"
	"flowboard/internal/storage"
)

// App owns the store and the services built on it.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	store   domain.DocumentStore
	emitter service.EventEmitter

	Boards *service.BoardService
}

// New opens the configured store, prepares it and builds the board service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := storage.Open(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	emitter := service.LogEmitter{Logger: logger.Named("events")}
	boards := service.NewBoardService(store, emitter,
		service.WithLogger(logger),
		service.WithCodec(codec.New(codec.WithExportedBy(cfg.ExportedBy))),
		service.WithStatusRevert(cfg.SaveStatus.RevertAfter),
	)
	if err := boards.Init(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	logger.Info("storage ready",
		zap.String("driver", string(cfg.Storage.Driver)),
		zap.String("data_dir", cfg.DataDir),
	)

	return &App{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		emitter: emitter,
		Boards:  boards,
	}, nil
}

// Shutdown releases the store. Safe to call more than once.
func (a *App) Shutdown() {
	if a.Boards != nil {
		a.Boards.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close storage", zap.Error(err))
		}
		a.store = nil
	}
}

// Serve runs the HTTP API plus the enabled background jobs until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	if a.cfg.Cleanup.Enabled {
		sched := newCleanupScheduler(a)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer func() {
			sched.Stop()
			sched.Wait(context.Background())
		}()
	}

	if a.cfg.Import.InboxDir != "" {
		watcher := service.NewImportWatcher(a.Boards, a.cfg.Import.InboxDir, a.logger)
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("start import watcher: %w", err)
		}
		defer func() {
			watcher.Stop()
			watcher.Wait(context.Background())
		}()
	}

	router := httpapi.NewRouter(a.Boards, a.logger, a.cfg.HTTP.AllowedOrigins)
	srv := httpapi.NewServer(a.cfg.HTTP.Addr, router.Setup(), a.logger)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newCleanupScheduler(a *App) *service.CleanupScheduler {
	return service.NewCleanupScheduler(a.Boards, a.emitter, a.cfg.Cleanup.Schedule, a.cfg.Cleanup.Days, a.logger.Named("cleanup"))
}
