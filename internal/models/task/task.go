package task

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Title        string     `json:"title" db:"title"`
	Description  string     `json:"description" db:"description"`
	Completed    bool       `json:"completed" db:"completed"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	IsDeleted    bool       `json:"is_deleted" db:"is_deleted"`
	SyncStatus   SyncStatus `json:"sync_status" db:"sync_status"`
	ServerID     *string    `json:"server_id,omitempty" db:"server_id"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty" db:"last_synced_at"`
}

type SyncStatus string

const SyncPending SyncStatus = "pending"
const SyncSynced SyncStatus = "synced"
const SyncError SyncStatus = "error"
