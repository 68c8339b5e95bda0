package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tasksync/internal/models/task"

	"github.com/google/uuid"
)

// applyOutcome applies one server-reported verdict to local state. A nil
// return means the task is synced and all of its queue entries are gone.
// Any error is a per-item failure the caller hands to the retry tracker.
//
// Resolution policy is server-authoritative: on a conflict the remote's
// resolved version overwrites the local row as-is. The client never
// compares timestamps or merges.
func (e *Engine) applyOutcome(ctx context.Context, entry *task.MutationEntry, item ProcessedItem) error {
	switch item.Status {
	case ItemSuccess:
		return e.markSynced(ctx, entry.TaskID, item.ResolvedData, false)

	case ItemConflict:
		if item.ResolvedData == nil {
			// a conflict the server did not resolve is just a failure
			if item.Error != "" {
				return errors.New(item.Error)
			}
			return errors.New("conflict without resolution data")
		}
		return e.markSynced(ctx, entry.TaskID, item.ResolvedData, true)

	default:
		if item.Error != "" {
			return errors.New(item.Error)
		}
		return errors.New("sync failed")
	}
}

// markSynced flips the task to synced and clears every queue entry that
// targets it, not only the one that was just resolved. When overwrite is
// set the resolved fields replace the local ones first.
func (e *Engine) markSynced(ctx context.Context, taskID uuid.UUID, resolved *ResolvedTask, overwrite bool) error {
	t, err := e.store.GetByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("loading task: %w", err)
	}

	if overwrite && resolved != nil {
		if resolved.Title != nil {
			t.Title = *resolved.Title
		}
		if resolved.Description != nil {
			t.Description = *resolved.Description
		}
		if resolved.Completed != nil {
			t.Completed = *resolved.Completed
		}
		if resolved.IsDeleted != nil {
			t.IsDeleted = *resolved.IsDeleted
		}
		if resolved.UpdatedAt != nil {
			t.UpdatedAt = *resolved.UpdatedAt
		}
	}

	now := time.Now()
	t.SyncStatus = task.SyncSynced
	t.LastSyncedAt = &now
	if resolved != nil && resolved.ID != nil {
		t.ServerID = resolved.ID
	}

	if err := e.store.Update(ctx, t); err != nil {
		return fmt.Errorf("storing synced task: %w", err)
	}
	if err := e.store.DeleteQueueForTask(ctx, taskID); err != nil {
		return fmt.Errorf("clearing queue entries: %w", err)
	}
	return nil
}
