package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/purgo/internal/common"
	"github.com/ternarybob/purgo/internal/interfaces"
	"github.com/ternarybob/purgo/internal/models"
)

// LoadSeedJobs loads batch job definitions from YAML files in the specified
// directory. Files that fail to read, parse or validate are skipped with a
// warning. A seed whose name matches an existing job updates that job's
// configuration instead of creating a duplicate. Seeds that omit
// poll_seconds get defaultPollSec.
func LoadSeedJobs(ctx context.Context, jobStorage interfaces.JobStorage, definitionsDir string, defaultPollSec int, logger arbor.ILogger) (int, error) {
	if _, err := os.Stat(definitionsDir); os.IsNotExist(err) {
		logger.Debug().Str("dir", definitionsDir).Msg("Job seed directory does not exist, skipping")
		return 0, nil
	}

	logger.Info().Str("dir", definitionsDir).Msg("Loading job definitions from files")

	entries, err := os.ReadDir(definitionsDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read job seed directory: %w", err)
	}

	existing, err := jobStorage.GetAllJobs(ctx)
	if err != nil {
		return 0, err
	}
	byName := make(map[string]*models.BatchJob, len(existing))
	for _, job := range existing {
		byName[job.Name] = job
	}

	loadedCount := 0
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		filePath := filepath.Join(definitionsDir, entry.Name())

		raw, err := os.ReadFile(filePath)
		if err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to read job seed file")
			continue
		}

		var config models.JobConfig
		if err := yaml.Unmarshal(raw, &config); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to parse job seed YAML")
			continue
		}
		if config.Name == "" {
			config.Name = trimExt(entry.Name())
		}
		if config.PollSeconds == 0 {
			config.PollSeconds = defaultPollSec
		}

		if err := config.Validate(); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Msg("Job seed validation failed, skipping")
			continue
		}

		job, exists := byName[config.Name]
		if exists {
			job.WatchDir = config.WatchDir
			job.PollSeconds = config.PollSeconds
			job.ApplyFlags(&config)
		} else {
			job = models.NewBatchJob(&config, common.NewJobID(), time.Now().UTC())
			byName[job.Name] = job
		}

		if err := jobStorage.StoreJob(ctx, job); err != nil {
			logger.Warn().Err(err).Str("file", entry.Name()).Str("job_id", job.ID).Msg("Failed to store seeded job")
			continue
		}

		if exists {
			logger.Info().Str("file", entry.Name()).Str("job_id", job.ID).Str("name", job.Name).Msg("Job definition updated from file")
		} else {
			logger.Info().Str("file", entry.Name()).Str("job_id", job.ID).Str("name", job.Name).Msg("Job definition loaded from file")
		}
		loadedCount++
	}

	if loadedCount > 0 {
		logger.Info().Int("count", loadedCount).Msg("Job definitions loaded from files")
	} else {
		logger.Debug().Msg("No job definitions loaded from files")
	}

	return loadedCount, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
