package badger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/purgo/internal/common"
)

// BadgerDB manages the Badger database connection
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	config *common.BadgerConfig
}

// NewBadgerDB opens the Badger database. An unreadable or corrupt store is
// wiped and reopened empty so a bad state file never blocks startup; job
// definitions are then reseeded from files.
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig) (*BadgerDB, error) {
	if config.ResetOnStartup {
		if _, err := os.Stat(config.Path); err == nil {
			logger.Debug().Str("path", config.Path).Msg("Deleting existing database (reset_on_startup=true)")
			if err := os.RemoveAll(config.Path); err != nil {
				logger.Warn().Err(err).Str("path", config.Path).Msg("Failed to delete database directory")
			}
		}
	}

	dir := filepath.Dir(config.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Debug().Str("path", config.Path).Msg("Opening Badger database connection")

	store, err := openStore(config.Path)
	if err != nil {
		logger.Warn().Err(err).Str("path", config.Path).Msg("Persisted state unreadable, reinitializing empty store")
		if rmErr := os.RemoveAll(config.Path); rmErr != nil {
			return nil, fmt.Errorf("failed to clear unreadable database: %w", rmErr)
		}
		store, err = openStore(config.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger database: %w", err)
		}
	}

	logger.Debug().Str("path", config.Path).Msg("Badger database initialized")

	return &BadgerDB{
		store:  store,
		logger: logger,
		config: config,
	}, nil
}

func openStore(path string) (*badgerhold.Store, error) {
	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = newStoreLogger() // Keep badger's internal chatter off the arbor stream
	return badgerhold.Open(options)
}

// Store returns the underlying badgerhold store
func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

// Close closes the database connection
func (b *BadgerDB) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
