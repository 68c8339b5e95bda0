package sync

import (
	"context"
	"time"

	"tasksync/internal/models/task"

	"github.com/google/uuid"
)

// Syncer is the operation surface the rest of the service sees.
// One shared instance is constructed at startup and injected everywhere
// a consumer needs it; nothing constructs its own.
type Syncer interface {
	// Sync runs one full cycle: drain queue, batch, dispatch, reconcile.
	// It always returns a result; the error is non-nil only when the
	// queue itself could not be read.
	Sync(ctx context.Context) (*SyncResult, error)

	// PendingCount reports how many mutation entries are waiting.
	PendingCount(ctx context.Context) (int, error)

	// CheckConnectivity probes the remote health endpoint. It never
	// returns an error; any transport problem means unreachable.
	CheckConnectivity(ctx context.Context) bool
}

// Store is what the engine needs from durable storage. Both the postgres
// and the inmemory repositories satisfy it.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error)
	Update(ctx context.Context, t *task.Task) error

	ListQueue(ctx context.Context) ([]*task.MutationEntry, error)
	DeleteQueueForTask(ctx context.Context, taskID uuid.UUID) error
	UpdateQueueRetry(ctx context.Context, entryID uuid.UUID, retryCount int, errorMessage string) error
	CountQueue(ctx context.Context) (int, error)
}

// SyncError describes one entry that failed during a cycle.
type SyncError struct {
	TaskID    uuid.UUID      `json:"task_id"`
	Operation task.Operation `json:"operation"`
	Error     string         `json:"error"`
	Timestamp time.Time      `json:"timestamp"`
}

// SyncResult is the aggregate outcome of one cycle. Success is true iff
// nothing failed.
type SyncResult struct {
	Success     bool        `json:"success"`
	SyncedItems int         `json:"synced_items"`
	FailedItems int         `json:"failed_items"`
	Errors      []SyncError `json:"errors"`
}
