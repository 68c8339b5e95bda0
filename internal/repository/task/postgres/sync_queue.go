package postgres

import (
	"context"
	"fmt"
	"time"

	"tasksync/internal/logger"
	"tasksync/internal/models/task"
	repo "tasksync/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Storage) Enqueue(ctx context.Context, entry *task.MutationEntry) error {
	start := time.Now()

	query := `INSERT INTO sync_queue
				(id, task_id, operation, data, retry_count, error_message, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		entry.ID,
		entry.TaskID,
		entry.Operation,
		entry.Data,
		entry.RetryCount,
		entry.ErrorMessage,
		entry.CreatedAt,
	)

	if err != nil {
		logger.Error("Repository: failed to enqueue mutation", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("enqueueing mutation: %w", err)
	}

	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

// ListQueue drains nothing: it is an ordered read of the whole queue.
// Entries are only ever removed through DeleteQueueForTask.
func (s *Storage) ListQueue(ctx context.Context) ([]*task.MutationEntry, error) {
	start := time.Now()

	query := `SELECT
				id,
				task_id,
				operation,
				data,
				retry_count,
				error_message,
				created_at
				FROM sync_queue
				ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		logger.Error("Repository: failed to fetch sync queue", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("fetching sync queue: %w", err)
	}
	defer rows.Close()

	entries := []*task.MutationEntry{}
	for rows.Next() {
		entry := &task.MutationEntry{}

		err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.Operation,
			&entry.Data,
			&entry.RetryCount,
			&entry.ErrorMessage,
			&entry.CreatedAt,
		)
		if err != nil {
			logger.Warn("Repository: row scan failed", zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Repository: row iteration failed", err)
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}

	return entries, nil
}

func (s *Storage) DeleteQueueForTask(ctx context.Context, taskID uuid.UUID) error {
	start := time.Now()

	query := `DELETE FROM sync_queue WHERE task_id = $1`

	_, err := s.pool.Exec(ctx, query, taskID)
	if err != nil {
		logger.Error("Repository: failed to delete queue entries", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("deleting queue entries: %w", err)
	}

	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) UpdateQueueRetry(ctx context.Context, entryID uuid.UUID, retryCount int, errorMessage string) error {
	start := time.Now()

	query := `UPDATE sync_queue
			SET retry_count = $1,
				error_message = $2
			WHERE id = $3`

	tag, err := s.pool.Exec(ctx, query, retryCount, errorMessage, entryID)
	if err != nil {
		logger.Error("Repository: failed to update retry state", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("updating retry state: %w", err)
	}

	if tag.RowsAffected() == 0 {
		logger.Warn("Repository: queue entry not found on retry update",
			zap.String("entry_id", entryID.String()))
		return repo.ErrNotFound
	}

	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) CountQueue(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM sync_queue`

	var count int
	if err := s.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		logger.Error("Repository: failed to count sync queue", err)
		return 0, fmt.Errorf("counting sync queue: %w", err)
	}
	return count, nil
}
