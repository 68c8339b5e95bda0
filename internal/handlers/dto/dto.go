package dto

import (
	"time"

	"tasksync/internal/models/task"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

type TaskResponse struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Completed    bool       `json:"completed"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	SyncStatus   string     `json:"sync_status"`
	ServerID     *string    `json:"server_id,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Completed:    t.Completed,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		SyncStatus:   string(t.SyncStatus),
		ServerID:     t.ServerID,
		LastSyncedAt: t.LastSyncedAt,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

type SyncStatusResponse struct {
	Pending      int        `json:"pending"`
	LastSync     *time.Time `json:"last_sync"`
	ServerOnline bool       `json:"server_online"`
}
