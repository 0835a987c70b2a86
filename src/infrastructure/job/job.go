package job

import (
	"context"
	"encoding/json"
	"time"
)

const (
	// JobsTopic is the AMQP topic background jobs are published on.
	JobsTopic = "jobs"

	// TaskTypeIngest runs file ingestion (and optionally an index
	// rebuild) on the worker instead of the request path.
	TaskTypeIngest = "ingest_files"
)

// JobStatus tracks a job through its lifecycle: pending once enqueued,
// running while a worker holds it, then completed or failed.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is the persisted record of one background task. The payload is
// opaque here; each task type defines its own payload shape.
type Job struct {
	ID        int             `json:"id"`
	TaskType  string          `json:"task_type"`
	Payload   json.RawMessage `json:"payload"`
	Status    JobStatus       `json:"status"`
	Error     *string         `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// JobRepository persists job records and status transitions.
type JobRepository interface {
	Create(ctx context.Context, taskType string, payload json.RawMessage) (*Job, error)
	Get(ctx context.Context, id int) (*Job, error)
	UpdateStatus(ctx context.Context, id int, status JobStatus, err *string) error
}
