package interfaces

import (
	"context"

	"github.com/ternarybob/purgo/internal/models"
)

// JobStorage - interface for batch job persistence
type JobStorage interface {
	// Job operations
	StoreJob(ctx context.Context, job *models.BatchJob) error
	GetJob(ctx context.Context, id string) (*models.BatchJob, error)
	GetAllJobs(ctx context.Context) ([]*models.BatchJob, error)
	DeleteJob(ctx context.Context, id string) error
	CountJobs(ctx context.Context) (int, error)
}

// RunStorage - interface for batch run history persistence. History is
// bounded; appending beyond the bound prunes the oldest runs.
type RunStorage interface {
	AppendRun(ctx context.Context, run *models.BatchRun) error
	GetRun(ctx context.Context, id string) (*models.BatchRun, error)
	GetRuns(ctx context.Context, limit int) ([]*models.BatchRun, error)
	GetRunsByJob(ctx context.Context, jobID string, limit int) ([]*models.BatchRun, error)
	CountRuns(ctx context.Context) (int, error)
}
