package worker

import (
	"context"
	"time"

	"tasksync/internal/logger"
	syncer "tasksync/internal/sync"

	"go.uber.org/zap"
)

// SyncWorker triggers a sync cycle on a fixed schedule. Manual triggers
// through the HTTP surface go to the same shared Syncer, so cycles never
// overlap regardless of who started them.
type SyncWorker struct {
	syncer   syncer.Syncer
	interval time.Duration
}

func NewSyncWorker(s syncer.Syncer, interval *time.Duration) *SyncWorker {
	var intervalToSet time.Duration
	if interval == nil || *interval <= 0 {
		intervalToSet = 5 * time.Minute
	} else {
		intervalToSet = *interval
	}

	return &SyncWorker{
		syncer:   s,
		interval: intervalToSet,
	}
}

func (w *SyncWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			logger.Info("Worker: scheduled sync cycle", zap.Time("started_at", time.Now()))
			w.RunOnce(ctx)
		case <-ctx.Done():
			logger.Info("Worker: scheduled sync stopping")
			return
		}
	}
}

func (w *SyncWorker) RunOnce(ctx context.Context) {
	start := time.Now()

	if !w.syncer.CheckConnectivity(ctx) {
		logger.Info("Worker: remote unreachable, skipping cycle")
		return
	}

	result, err := w.syncer.Sync(ctx)
	if err != nil {
		logger.Warn("Worker: sync cycle failed", zap.Error(err))
		return
	}

	logger.Info(
		"Worker: sync cycle finished",
		zap.Duration("ms", time.Since(start)),
		zap.Bool("success", result.Success),
		zap.Int("synced", result.SyncedItems),
		zap.Int("failed", result.FailedItems),
	)
}
