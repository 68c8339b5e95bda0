package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tasksync/internal/logger"
	"tasksync/internal/models/task"
	rep "tasksync/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskService owns the local edit path. Every mutation it performs
// appends exactly one queue entry, so nothing changes locally without a
// pending record of the change.
type TaskService struct {
	repo  TaskRepository
	queue MutationQueue
}

func NewTaskService(repo TaskRepository, queue MutationQueue) *TaskService {
	return &TaskService{
		repo:  repo,
		queue: queue,
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("service health check: %w", err)
	}
	return nil
}

func (s *TaskService) CreateTask(ctx context.Context, title, description string) (*task.Task, error) {
	if title == "" {
		return nil, NewValidationError("title", "must not be empty")
	}

	now := time.Now()
	t := &task.Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
		SyncStatus:  task.SyncPending,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	if err := s.enqueue(ctx, t, task.OpCreate); err != nil {
		return nil, err
	}

	return t, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, id uuid.UUID, options ...task.TaskOption) (*task.Task, error) {
	t, err := s.getEditable(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(t)
	}
	t.UpdatedAt = time.Now()
	t.SyncStatus = task.SyncPending

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	if err := s.enqueue(ctx, t, task.OpUpdate); err != nil {
		return nil, err
	}

	return t, nil
}

// DeleteTask tombstones the task; the row stays around until the deletion
// has been synced.
func (s *TaskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	t, err := s.getEditable(ctx, id)
	if err != nil {
		return err
	}

	t.IsDeleted = true
	t.UpdatedAt = time.Now()
	t.SyncStatus = task.SyncPending

	if err := s.repo.Update(ctx, t); err != nil {
		return err
	}

	return s.enqueue(ctx, t, task.OpDelete)
}

func (s *TaskService) GetTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	return s.getEditable(ctx, id)
}

func (s *TaskService) ListTasks(ctx context.Context) ([]*task.Task, error) {
	tasks, err := s.repo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) TasksNeedingSync(ctx context.Context) ([]*task.Task, error) {
	tasks, err := s.repo.GetNeedingSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing unsynced tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) LastSyncedAt(ctx context.Context) (*time.Time, error) {
	return s.repo.LastSyncedAt(ctx)
}

// getEditable treats tombstones like missing rows.
func (s *TaskService) getEditable(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: task not found", zap.String("target_id", id.String()))
			return nil, NewNotFound(id.String())
		}
		return nil, fmt.Errorf("fetching task: %w", err)
	}
	if t.IsDeleted {
		return nil, NewNotFound(id.String())
	}
	return t, nil
}

// enqueue snapshots the task as it is right now. The snapshot travels
// with the entry and is never re-read from the tasks table.
func (s *TaskService) enqueue(ctx context.Context, t *task.Task, op task.Operation) error {
	snapshot, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	entry := &task.MutationEntry{
		ID:        uuid.New(),
		TaskID:    t.ID,
		Operation: op,
		Data:      snapshot,
		CreatedAt: time.Now(),
	}

	if err := s.queue.Enqueue(ctx, entry); err != nil {
		return fmt.Errorf("enqueueing %s: %w", op, err)
	}
	return nil
}
