package inmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tasksync/internal/models/task"
	repo "tasksync/internal/repository"

	"github.com/google/uuid"
)

// TaskStorage keeps tasks and the mutation queue in memory. It is used by
// tests and by the inmemory repository mode; it implements the same contract
// as the postgres storage.
type TaskStorage struct {
	tasks   map[uuid.UUID]*task.Task
	ids     []uuid.UUID
	queue   []*task.MutationEntry
	entries map[uuid.UUID]*task.MutationEntry
	mtx     *sync.RWMutex
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		tasks:   make(map[uuid.UUID]*task.Task),
		ids:     []uuid.UUID{},
		queue:   []*task.MutationEntry{},
		entries: make(map[uuid.UUID]*task.MutationEntry),
		mtx:     &sync.RWMutex{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.tasks[taskToCreate.ID] = taskToCreate
	s.ids = append(s.ids, taskToCreate.ID)
	return nil
}

func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[taskToUpdate.ID]; !ok {
		return repo.ErrNotFound
	}
	s.tasks[taskToUpdate.ID] = taskToUpdate
	return nil
}

// GetByID returns the row as stored, tombstones included. Filtering
// deleted tasks out of user-facing reads is the service's job.
func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return taskToGet, nil
}

func (s *TaskStorage) GetActive(ctx context.Context) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, id := range s.ids {
		t := s.tasks[id]
		if t.IsDeleted {
			continue
		}
		res = append(res, t)
	}
	return res, nil
}

func (s *TaskStorage) GetNeedingSync(ctx context.Context) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := []*task.Task{}
	for _, id := range s.ids {
		t := s.tasks[id]
		if t.SyncStatus == task.SyncPending || t.SyncStatus == task.SyncError {
			res = append(res, t)
		}
	}
	return res, nil
}

func (s *TaskStorage) LastSyncedAt(ctx context.Context) (*time.Time, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var last *time.Time
	for _, id := range s.ids {
		t := s.tasks[id]
		if t.LastSyncedAt == nil {
			continue
		}
		if last == nil || t.LastSyncedAt.After(*last) {
			last = t.LastSyncedAt
		}
	}
	return last, nil
}

func (s *TaskStorage) Enqueue(ctx context.Context, entry *task.MutationEntry) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.queue = append(s.queue, entry)
	s.entries[entry.ID] = entry
	return nil
}

// ListQueue returns every pending entry ordered ascending by created_at.
// Entries with equal timestamps keep their insertion order.
func (s *TaskStorage) ListQueue(ctx context.Context) ([]*task.MutationEntry, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]*task.MutationEntry, len(s.queue))
	copy(res, s.queue)
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

func (s *TaskStorage) DeleteQueueForTask(ctx context.Context, taskID uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	kept := s.queue[:0]
	for _, entry := range s.queue {
		if entry.TaskID == taskID {
			delete(s.entries, entry.ID)
			continue
		}
		kept = append(kept, entry)
	}
	s.queue = kept
	return nil
}

func (s *TaskStorage) UpdateQueueRetry(ctx context.Context, entryID uuid.UUID, retryCount int, errorMessage string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return repo.ErrNotFound
	}
	entry.RetryCount = retryCount
	entry.ErrorMessage = &errorMessage
	return nil
}

func (s *TaskStorage) CountQueue(ctx context.Context) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	return len(s.queue), nil
}
