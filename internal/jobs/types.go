package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeProcessMessage runs the ingestion pipeline for one raw message.
	JobTypeProcessMessage JobType = "process_message"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ProcessMessageJob asks a worker to run the pipeline for one raw message.
// Because the pipeline is idempotent on message uuid, enqueuing the same
// message twice is harmless.
type ProcessMessageJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// MessageUUID identifies the raw message to process.
	MessageUUID string `json:"message_uuid"`

	// Trigger records which path enqueued the job ("watcher", "import",
	// "cron"), for observability only.
	Trigger string `json:"trigger,omitempty"`

	Status    JobStatus  `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ProcessMessageJob) GetID() string        { return j.JobID }
func (j *ProcessMessageJob) GetType() JobType     { return JobTypeProcessMessage }
func (j *ProcessMessageJob) GetStatus() JobStatus { return j.Status }

// Publisher defines the interface for publishing jobs to a queue.
// The abstraction allows different queue implementations (in-memory,
// Cloud Tasks, Pub/Sub).
type Publisher interface {
	PublishProcessMessage(ctx context.Context, job *ProcessMessageJob) error
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	SaveJob(ctx context.Context, job *ProcessMessageJob) error
	GetJob(ctx context.Context, jobID string) (*ProcessMessageJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ProcessMessageJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// MessageUUID filters jobs by raw message uuid.
	MessageUUID string

	// Status filters jobs by status.
	Status JobStatus

	Limit  int
	Offset int
}
