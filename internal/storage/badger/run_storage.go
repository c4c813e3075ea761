package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/purgo/internal/interfaces"
	"github.com/ternarybob/purgo/internal/models"
)

// RunStorage implements the RunStorage interface for Badger. Run history is
// bounded; every append prunes the oldest runs past the bound.
type RunStorage struct {
	db         *BadgerDB
	maxHistory int
	logger     arbor.ILogger
}

// NewRunStorage creates a new RunStorage instance
func NewRunStorage(db *BadgerDB, maxHistory int, logger arbor.ILogger) interfaces.RunStorage {
	return &RunStorage{
		db:         db,
		maxHistory: maxHistory,
		logger:     logger,
	}
}

func (s *RunStorage) AppendRun(ctx context.Context, run *models.BatchRun) error {
	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}

	if err := s.db.Store().Upsert(run.ID, run); err != nil {
		return &models.StorageError{Op: "append run", Err: err}
	}
	return s.prune(ctx)
}

func (s *RunStorage) GetRun(ctx context.Context, id string) (*models.BatchRun, error) {
	var run models.BatchRun
	if err := s.db.Store().Get(id, &run); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("run not found: %s", id)
		}
		return nil, &models.StorageError{Op: "get run", Err: err}
	}
	return &run, nil
}

func (s *RunStorage) GetRuns(ctx context.Context, limit int) ([]*models.BatchRun, error) {
	query := badgerhold.Where("ID").Ne("").SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	return s.find(query)
}

func (s *RunStorage) GetRunsByJob(ctx context.Context, jobID string, limit int) ([]*models.BatchRun, error) {
	query := badgerhold.Where("JobID").Eq(jobID).SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	return s.find(query)
}

func (s *RunStorage) CountRuns(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.BatchRun{}, nil)
	if err != nil {
		return 0, &models.StorageError{Op: "count runs", Err: err}
	}
	return int(count), nil
}

func (s *RunStorage) find(query *badgerhold.Query) ([]*models.BatchRun, error) {
	var runs []models.BatchRun
	if err := s.db.Store().Find(&runs, query); err != nil {
		return nil, &models.StorageError{Op: "list runs", Err: err}
	}

	result := make([]*models.BatchRun, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result, nil
}

// prune drops the oldest runs beyond the history bound
func (s *RunStorage) prune(ctx context.Context) error {
	count, err := s.CountRuns(ctx)
	if err != nil {
		return err
	}
	if s.maxHistory <= 0 || count <= s.maxHistory {
		return nil
	}

	excess := count - s.maxHistory
	var oldest []models.BatchRun
	query := badgerhold.Where("ID").Ne("").SortBy("StartedAt").Limit(excess)
	if err := s.db.Store().Find(&oldest, query); err != nil {
		return &models.StorageError{Op: "find prunable runs", Err: err}
	}

	for i := range oldest {
		if err := s.db.Store().Delete(oldest[i].ID, &models.BatchRun{}); err != nil && err != badgerhold.ErrNotFound {
			return &models.StorageError{Op: "prune run", Err: err}
		}
	}

	if s.logger != nil {
		s.logger.Debug().Int("pruned", len(oldest)).Msg("Run history pruned")
	}
	return nil
}
