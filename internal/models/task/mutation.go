package task

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Operation is the kind of local change waiting to be synchronized.
type Operation string

const OpCreate Operation = "create"
const OpUpdate Operation = "update"
const OpDelete Operation = "delete"

// MutationEntry is one pending change in the durable sync queue.
// Data holds a snapshot of the task captured at enqueue time; it is
// never re-read from the tasks table later.
type MutationEntry struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	TaskID       uuid.UUID       `json:"task_id" db:"task_id"`
	Operation    Operation       `json:"operation" db:"operation"`
	Data         json.RawMessage `json:"data" db:"data"`
	RetryCount   int             `json:"retry_count" db:"retry_count"`
	ErrorMessage *string         `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
