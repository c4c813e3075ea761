package badger

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/purgo/internal/common"
	"github.com/ternarybob/purgo/internal/interfaces"
)

// Manager bundles the Badger-backed storage interfaces behind one handle
type Manager struct {
	db             *BadgerDB
	job            interfaces.JobStorage
	run            interfaces.RunStorage
	defaultPollSec int
	logger         arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.Config) (*Manager, error) {
	db, err := NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:             db,
		job:            NewJobStorage(db, logger),
		run:            NewRunStorage(db, config.Batch.MaxRunHistory, logger),
		defaultPollSec: config.Batch.DefaultPollSec,
		logger:         logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// JobStorage returns the batch job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// RunStorage returns the run history storage interface
func (m *Manager) RunStorage() interfaces.RunStorage {
	return m.run
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

// LoadSeedJobs loads job definitions from YAML files in dirPath
func (m *Manager) LoadSeedJobs(ctx context.Context, dirPath string) (int, error) {
	return LoadSeedJobs(ctx, m.job, dirPath, m.defaultPollSec, m.logger)
}
