package sync

import (
	"time"

	"tasksync/internal/models/task"
)

// BatchRequest is one round trip to the remote authority: a contiguous
// ordered slice of the queue plus the client's clock.
type BatchRequest struct {
	Items           []*task.MutationEntry `json:"items"`
	ClientTimestamp time.Time             `json:"client_timestamp"`
}

type ItemStatus string

const ItemSuccess ItemStatus = "success"
const ItemConflict ItemStatus = "conflict"
const ItemError ItemStatus = "error"

// ProcessedItem is the server's verdict on one submitted item.
// ClientID matches the submitted entry's task_id.
type ProcessedItem struct {
	ClientID     string        `json:"client_id"`
	Status       ItemStatus    `json:"status"`
	ResolvedData *ResolvedTask `json:"resolved_data,omitempty"`
	Error        string        `json:"error,omitempty"`
}

type BatchResponse struct {
	ProcessedItems []ProcessedItem `json:"processed_items"`
}

// ResolvedTask carries the fields the server decided on. Only fields that
// are present are applied locally; absent fields stay untouched. ID, when
// present, is the identifier the authority assigned to the task.
type ResolvedTask struct {
	ID          *string    `json:"id,omitempty"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	IsDeleted   *bool      `json:"is_deleted,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}
