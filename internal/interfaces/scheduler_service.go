package interfaces

import (
	"context"

	"github.com/ternarybob/purgo/internal/models"
)

// SchedulerService manages batch ingestion jobs and their poll-driven runs
type SchedulerService interface {
	// Start begins the recurring poll loop
	Start(ctx context.Context) error

	// Stop halts the poll loop; in-flight runs finish
	Stop() error

	// IsRunning reports whether the poll loop is active
	IsRunning() bool

	// CreateJob registers a new watch-directory job
	CreateJob(ctx context.Context, config *models.JobConfig) (*models.BatchJob, error)

	// UpdateJob applies a partial update to an existing job
	UpdateJob(ctx context.Context, id string, update *models.JobUpdate) (*models.BatchJob, error)

	// DeleteJob removes a job; a running job finishes its current run first
	DeleteJob(ctx context.Context, id string) error

	// GetJob returns one job by id
	GetJob(ctx context.Context, id string) (*models.BatchJob, error)

	// ListJobs returns all jobs
	ListJobs(ctx context.Context) ([]*models.BatchJob, error)

	// TriggerRun requests an immediate run; returns ErrJobRunning as a
	// no-op signal when the job is already mid-run
	TriggerRun(ctx context.Context, id string) (*models.BatchRun, error)

	// ListRuns returns finished runs most-recent-first
	ListRuns(ctx context.Context, limit int) ([]*models.BatchRun, error)

	// ListRunsByJob returns one job's finished runs most-recent-first
	ListRunsByJob(ctx context.Context, jobID string, limit int) ([]*models.BatchRun, error)
}
