package jobs

import (
	"context"
	"encoding/json"
	"time"
)

// Kind identifies the type of work a job carries.
type Kind string

const (
	// KindSyncSweep runs the scheduled transaction sync sweep.
	KindSyncSweep Kind = "sync_sweep"
	// KindSyncUser syncs one user's connections, triggered by an event.
	KindSyncUser Kind = "sync_user"
	// KindProcessDocument ingests a freshly uploaded document.
	KindProcessDocument Kind = "process_document"
	// KindReprocessDocument re-runs ingestion for an existing inbox record.
	KindReprocessDocument Kind = "reprocess_document"
	// KindHealthScan runs one connection health scan.
	KindHealthScan Kind = "health_scan"
)

// Status is the current state of a job.
type Status string

const (
	// StatusPending indicates the job is waiting to be processed.
	StatusPending Status = "pending"
	// StatusRunning indicates the job is currently being processed.
	StatusRunning Status = "running"
	// StatusCompleted indicates the job completed successfully.
	StatusCompleted Status = "completed"
	// StatusFailed indicates the job failed permanently.
	StatusFailed Status = "failed"
	// StatusRetrying indicates the job failed and is being retried.
	StatusRetrying Status = "retrying"
)

// Job is the envelope for one unit of work. Payload is kind-specific JSON,
// decoded by the handler.
type Job struct {
	// ID is the unique identifier for this job.
	ID string `json:"id"`

	// Kind selects the handler for this job.
	Kind Kind `json:"kind"`

	// Payload is the kind-specific job input.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Status is the current status of the job.
	Status Status `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// SyncUserPayload is the payload for KindSyncUser.
type SyncUserPayload struct {
	UserID string `json:"user_id"`
}

// ProcessDocumentPayload is the payload for KindProcessDocument.
type ProcessDocumentPayload struct {
	TeamID      string `json:"team_id"`
	FilePath    string `json:"file_path"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// ReprocessDocumentPayload is the payload for KindReprocessDocument.
type ReprocessDocumentPayload struct {
	InboxID string `json:"inbox_id"`
}

// HealthScanPayload is the payload for KindHealthScan.
type HealthScanPayload struct {
	Scan string `json:"scan"`
}

// Health scan names carried in HealthScanPayload.
const (
	ScanDisconnected   = "disconnected"
	ScanAbandonment    = "abandonment"
	ScanExpiring       = "expiring"
	ScanExpiry         = "expiry"
	ScanReconnectAlert = "reconnect_alert"
)

// Handler is a function that processes a job. It should return an error if
// the job failed and should be retried.
type Handler func(ctx context.Context, job *Job) error

// Publisher defines the interface for publishing jobs to a queue.
// This abstraction allows for different queue implementations.
type Publisher interface {
	// Publish enqueues a job for asynchronous processing.
	Publish(ctx context.Context, job *Job) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler Handler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// Store defines the interface for tracking job status.
type Store interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *Job) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*Job, error)

	// ListJobs retrieves jobs with optional filtering.
	ListJobs(ctx context.Context, filter Filter) ([]*Job, error)
}

// Filter defines filtering criteria for listing jobs.
type Filter struct {
	// Kind filters jobs by kind.
	Kind Kind

	// Status filters jobs by status.
	Status Status

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
