package service

import (
	"context"
	"time"

	"tasksync/internal/models/task"

	"github.com/google/uuid"
)

type TaskRepository interface {
	HealthCheck(ctx context.Context) error
	Create(ctx context.Context, t *task.Task) error
	Update(ctx context.Context, t *task.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error)
	GetActive(ctx context.Context) ([]*task.Task, error)
	GetNeedingSync(ctx context.Context) ([]*task.Task, error)
	LastSyncedAt(ctx context.Context) (*time.Time, error)
}

type MutationQueue interface {
	Enqueue(ctx context.Context, entry *task.MutationEntry) error
}
