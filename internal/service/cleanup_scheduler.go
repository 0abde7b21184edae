package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const cleanupKey = "cleanup"

// CleanupResult is the payload of EventCleanupCompleted.
type CleanupResult struct {
	DaysOld int    `json:"daysOld"`
	Deleted int    `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// CleanupScheduler runs CleanupOldBoards on a cron schedule. A run that
// fires while the previous one is still going is skipped.
type CleanupScheduler struct {
	boards   *BoardService
	emitter  EventEmitter
	logger   *zap.Logger
	schedule string
	daysOld  int
	guard    runGuard

	mu   sync.Mutex
	cron *cron.Cron
}

func NewCleanupScheduler(boards *BoardService, emitter EventEmitter, schedule string, daysOld int, logger *zap.Logger) *CleanupScheduler {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CleanupScheduler{
		boards:   boards,
		emitter:  emitter,
		logger:   logger.With(zap.String("component", "cleanup")),
		schedule: schedule,
		daysOld:  daysOld,
	}
}

// Start registers the schedule and starts the cron runner. Calling Start on
// a running scheduler restarts it.
func (c *CleanupScheduler) Start(ctx context.Context) error {
	c.Stop()

	sched := cron.New()
	if _, err := sched.AddFunc(c.schedule, func() {
		if _, err := c.RunOnce(ctx); err != nil {
			c.logger.Warn("scheduled cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", c.schedule, err)
	}
	sched.Start()

	c.mu.Lock()
	c.cron = sched
	c.mu.Unlock()
	c.logger.Info("cleanup scheduled", zap.String("schedule", c.schedule), zap.Int("days_old", c.daysOld))
	return nil
}

// RunOnce performs one cleanup now. It returns ErrAlreadyRunning if another
// run is in progress.
func (c *CleanupScheduler) RunOnce(ctx context.Context) (int, error) {
	var deleted int
	err := c.guard.Do(cleanupKey, func() error {
		var err error
		deleted, err = c.boards.CleanupOldBoards(ctx, c.daysOld)

		result := CleanupResult{DaysOld: c.daysOld, Deleted: deleted}
		if err != nil {
			result.Error = err.Error()
		}
		c.emitter.Emit(ctx, EventCleanupCompleted, result)
		return err
	})
	return deleted, err
}

// Wait blocks until an in-flight run finishes or ctx is done.
func (c *CleanupScheduler) Wait(ctx context.Context) {
	c.guard.WaitAll(ctx)
}

// Stop halts the cron runner. It does not interrupt a run in progress; use
// Wait for that.
func (c *CleanupScheduler) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		c.cron.Stop()
		c.cron = nil
	}
}
