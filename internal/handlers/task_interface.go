package handlers

import (
	"context"
	"time"

	"tasksync/internal/models/task"
	syncer "tasksync/internal/sync"

	"github.com/google/uuid"
)

type TaskService interface {
	HealthCheck(ctx context.Context) error
	CreateTask(ctx context.Context, title, description string) (*task.Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, options ...task.TaskOption) (*task.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) error
	GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error)
	ListTasks(ctx context.Context) ([]*task.Task, error)
	TasksNeedingSync(ctx context.Context) ([]*task.Task, error)
	LastSyncedAt(ctx context.Context) (*time.Time, error)
}

type SyncService interface {
	Sync(ctx context.Context) (*syncer.SyncResult, error)
	PendingCount(ctx context.Context) (int, error)
	CheckConnectivity(ctx context.Context) bool
}
