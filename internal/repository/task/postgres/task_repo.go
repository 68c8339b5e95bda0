package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"tasksync/internal/logger"
	"tasksync/internal/models/task"
	repo "tasksync/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: failed to parse connection config", err)
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: failed to create pool", err)
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: ping failed", err)
		return nil, fmt.Errorf("ping: %w", err)
	}

	logger.Info("Repository: connected to PostgreSQL")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: closed all PostgreSQL connections")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

func (s *Storage) Create(ctx context.Context, taskToCreate *task.Task) error {
	start := time.Now()

	query := `INSERT INTO tasks
				(id, title, description, completed, created_at, updated_at, is_deleted, sync_status, server_id, last_synced_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, query,
		taskToCreate.ID,
		taskToCreate.Title,
		taskToCreate.Description,
		taskToCreate.Completed,
		taskToCreate.CreatedAt,
		taskToCreate.UpdatedAt,
		taskToCreate.IsDeleted,
		taskToCreate.SyncStatus,
		taskToCreate.ServerID,
		taskToCreate.LastSyncedAt,
	)

	if err != nil {
		logger.Error("Repository: failed to insert task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("inserting task: %w", err)
	}

	if time.Since(start) > time.Millisecond*50 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func (s *Storage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	start := time.Now()

	query := `UPDATE tasks
			SET title = $1,
				description = $2,
				completed = $3,
				updated_at = $4,
				is_deleted = $5,
				sync_status = $6,
				server_id = $7,
				last_synced_at = $8
			WHERE id = $9`

	tag, err := s.pool.Exec(ctx, query,
		taskToUpdate.Title,
		taskToUpdate.Description,
		taskToUpdate.Completed,
		taskToUpdate.UpdatedAt,
		taskToUpdate.IsDeleted,
		taskToUpdate.SyncStatus,
		taskToUpdate.ServerID,
		taskToUpdate.LastSyncedAt,
		taskToUpdate.ID,
	)

	if err != nil {
		logger.Error("Repository: failed to update task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("updating task: %w", err)
	}

	if tag.RowsAffected() == 0 {
		logger.Warn("Repository: task not found on update",
			zap.String("task_id", taskToUpdate.ID.String()))
		return repo.ErrNotFound
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}
	return nil
}

// GetByID returns the row even when it is soft-deleted. The service layer
// decides what a tombstone looks like to the outside.
func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()

	query := `SELECT
				id,
				title,
				description,
				completed,
				created_at,
				updated_at,
				is_deleted,
				sync_status,
				server_id,
				last_synced_at
				FROM tasks
				WHERE id = $1`

	t := &task.Task{}
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Completed,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.IsDeleted,
		&t.SyncStatus,
		&t.ServerID,
		&t.LastSyncedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to fetch task", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("fetching task: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}

	return t, nil
}

func (s *Storage) GetActive(ctx context.Context) ([]*task.Task, error) {
	return s.getWhere(ctx, `WHERE is_deleted = FALSE`)
}

func (s *Storage) GetNeedingSync(ctx context.Context) ([]*task.Task, error) {
	return s.getWhere(ctx, `WHERE sync_status IN ('pending', 'error')`)
}

func (s *Storage) getWhere(ctx context.Context, where string) ([]*task.Task, error) {
	start := time.Now()

	query := `SELECT
				id,
				title,
				description,
				completed,
				created_at,
				updated_at,
				is_deleted,
				sync_status,
				server_id,
				last_synced_at
				FROM tasks ` + where + ` ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		logger.Error("Repository: failed to fetch tasks", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("fetching tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t := &task.Task{}

		err := rows.Scan(
			&t.ID,
			&t.Title,
			&t.Description,
			&t.Completed,
			&t.CreatedAt,
			&t.UpdatedAt,
			&t.IsDeleted,
			&t.SyncStatus,
			&t.ServerID,
			&t.LastSyncedAt,
		)
		if err != nil {
			logger.Warn("Repository: row scan failed", zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Repository: row iteration failed", err)
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: slow query", zap.Duration("ms", time.Since(start)))
	}

	return tasks, nil
}

func (s *Storage) LastSyncedAt(ctx context.Context) (*time.Time, error) {
	query := `SELECT MAX(last_synced_at) FROM tasks`

	var last *time.Time
	if err := s.pool.QueryRow(ctx, query).Scan(&last); err != nil {
		logger.Error("Repository: failed to fetch last sync time", err)
		return nil, fmt.Errorf("fetching last sync time: %w", err)
	}
	return last, nil
}

func (s *Storage) Migrate(ctx context.Context) error {
	logger.Info("Repository: applying migrations")

	initUp, err := os.ReadFile("internal/migrations/001_init.up.sql")
	if err != nil {
		logger.Error("failed to read 001_init.up.sql", err)
		return err
	}

	indexesUp, err := os.ReadFile("internal/migrations/002_indexes.up.sql")
	if err != nil {
		logger.Error("failed to read 002_indexes.up.sql", err)
		return err
	}

	_, err = s.pool.Exec(ctx, string(initUp))
	if err != nil {
		logger.Error("failed to apply 001_init", err)
		return err
	}

	_, err = s.pool.Exec(ctx, string(indexesUp))
	if err != nil {
		logger.Error("failed to apply 002_indexes", err)
		return err
	}

	logger.Info("Repository: migrations applied")
	return nil
}

func (s *Storage) Down(ctx context.Context) error {
	logger.Info("Repository: rolling migrations back")

	indexesDown, err := os.ReadFile("internal/migrations/002_indexes.down.sql")
	if err != nil {
		logger.Error("failed to read 002_indexes.down.sql", err)
		return err
	}

	initDown, err := os.ReadFile("internal/migrations/001_init.down.sql")
	if err != nil {
		logger.Error("failed to read 001_init.down.sql", err)
		return err
	}

	_, err = s.pool.Exec(ctx, string(indexesDown))
	if err != nil {
		logger.Error("failed to rollback 002_indexes", err)
		return err
	}

	_, err = s.pool.Exec(ctx, string(initDown))
	if err != nil {
		logger.Error("failed to rollback 001_init", err)
		return err
	}

	logger.Info("Repository: migrations rolled back")
	return nil
}
