package jobs

import (
	"context"
	"time"
)

// JobType identifies the kind of work a job carries.
type JobType string

const (
	// JobTypeScanImage asks a worker to extract a transaction from a
	// receipt image staged in GCS.
	JobTypeScanImage JobType = "scan_image"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ScanImageJob carries one staged receipt image through extraction.
type ScanImageJob struct {
	// JobID uniquely identifies this job.
	JobID string `json:"job_id"`

	// RunID ties the job to its import run audit record.
	RunID string `json:"run_id"`

	// GCSURI points at the staged image (gs://bucket/object).
	GCSURI string `json:"gcs_uri"`

	// Filename is the original upload name, used to key per-image errors.
	Filename string `json:"filename"`

	// MimeType of the image as uploaded.
	MimeType string `json:"mime_type"`

	// Status is the current lifecycle state.
	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error holds the last failure message, if any.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is the generic view of a queued unit of work.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ScanImageJob) GetID() string        { return j.JobID }
func (j *ScanImageJob) GetType() JobType     { return JobTypeScanImage }
func (j *ScanImageJob) GetStatus() JobStatus { return j.Status }

// Publisher enqueues jobs. The abstraction keeps the API free to swap the
// in-memory queue for Cloud Tasks or Pub/Sub later.
type Publisher interface {
	PublishScanImage(ctx context.Context, job *ScanImageJob) error
	Close() error
}

// Consumer drains jobs from a queue and hands them to a handler.
type Consumer interface {
	// Start begins consuming. The handler runs once per job.
	Start(ctx context.Context, handler JobHandler) error

	// Stop waits for in-flight jobs before returning.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error triggers a retry until
// MaxRetries is exhausted.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state so the API can report scan progress.
type JobStore interface {
	SaveJob(ctx context.Context, job *ScanImageJob) error
	GetJob(ctx context.Context, jobID string) (*ScanImageJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ScanImageJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter narrows ListJobs results.
type JobFilter struct {
	// RunID filters jobs belonging to one import run.
	RunID string

	// Status filters by lifecycle state.
	Status JobStatus

	Limit  int
	Offset int
}
