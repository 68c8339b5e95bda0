package sync

import (
	"context"

	"tasksync/internal/logger"
	"tasksync/internal/models/task"

	"go.uber.org/zap"
)

// recordFailure advances the entry's retry bookkeeping. Below the ceiling
// the owning task stays pending and the entry is retried on the next
// cycle. At the ceiling the task's sync status becomes error so the
// failure is visible; the entry itself stays queued and keeps being
// re-attempted once per cycle until a later cycle succeeds.
//
// Bookkeeping failures are logged, not surfaced: the cycle already carries
// the original error for this entry.
func (e *Engine) recordFailure(ctx context.Context, entry *task.MutationEntry, message string) {
	entry.RetryCount++
	entry.ErrorMessage = &message

	if err := e.store.UpdateQueueRetry(ctx, entry.ID, entry.RetryCount, message); err != nil {
		logger.Warn("Sync: failed to persist retry state",
			zap.String("entry_id", entry.ID.String()),
			zap.Error(err))
	}

	if entry.RetryCount < e.maxRetries {
		return
	}

	t, err := e.store.GetByID(ctx, entry.TaskID)
	if err != nil {
		logger.Warn("Sync: failed to load task for failure marking",
			zap.String("task_id", entry.TaskID.String()),
			zap.Error(err))
		return
	}

	if t.SyncStatus == task.SyncError {
		return
	}

	t.SyncStatus = task.SyncError
	if err := e.store.Update(ctx, t); err != nil {
		logger.Warn("Sync: failed to mark task as failed",
			zap.String("task_id", entry.TaskID.String()),
			zap.Error(err))
		return
	}

	logger.Warn("Sync: retry budget exhausted",
		zap.String("task_id", entry.TaskID.String()),
		zap.Int("retry_count", entry.RetryCount))
}
