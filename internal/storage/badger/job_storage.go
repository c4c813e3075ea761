package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/purgo/internal/interfaces"
	"github.com/ternarybob/purgo/internal/models"
)

// JobStorage implements the JobStorage interface for Badger
type JobStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewJobStorage creates a new JobStorage instance
func NewJobStorage(db *BadgerDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{
		db:     db,
		logger: logger,
	}
}

func (s *JobStorage) StoreJob(ctx context.Context, job *models.BatchJob) error {
	if job.ID == "" {
		return fmt.Errorf("job ID is required")
	}

	if err := s.db.Store().Upsert(job.ID, job); err != nil {
		return &models.StorageError{Op: "store job", Err: err}
	}
	return nil
}

func (s *JobStorage) GetJob(ctx context.Context, id string) (*models.BatchJob, error) {
	var job models.BatchJob
	if err := s.db.Store().Get(id, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, models.ErrJobNotFound
		}
		return nil, &models.StorageError{Op: "get job", Err: err}
	}
	return &job, nil
}

func (s *JobStorage) GetAllJobs(ctx context.Context) ([]*models.BatchJob, error) {
	var jobs []models.BatchJob
	query := badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()
	if err := s.db.Store().Find(&jobs, query); err != nil {
		return nil, &models.StorageError{Op: "list jobs", Err: err}
	}

	result := make([]*models.BatchJob, len(jobs))
	for i := range jobs {
		result[i] = &jobs[i]
	}
	return result, nil
}

func (s *JobStorage) DeleteJob(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.BatchJob{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return models.ErrJobNotFound
		}
		return &models.StorageError{Op: "delete job", Err: err}
	}
	return nil
}

func (s *JobStorage) CountJobs(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.BatchJob{}, nil)
	if err != nil {
		return 0, &models.StorageError{Op: "count jobs", Err: err}
	}
	return int(count), nil
}
