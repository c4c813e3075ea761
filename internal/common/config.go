package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Batch       BatchConfig   `toml:"batch"`
	Logging     LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger      BadgerConfig `toml:"badger"`
	DatasetsDir string       `toml:"datasets_dir"` // Root directory for dataset artifacts
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// BatchConfig controls the batch ingestion scheduler
type BatchConfig struct {
	Tick           string `toml:"tick"`             // Poll loop interval, e.g. "1s"
	MaxRunHistory  int    `toml:"max_run_history"`  // Retained BatchRun records
	IngestPerSec   int    `toml:"ingest_per_sec"`   // Global cap on files ingested per second across all jobs
	JobsDir        string `toml:"jobs_dir"`         // Directory of seed job files (YAML)
	DefaultPollSec int    `toml:"default_poll_sec"` // Poll interval applied to seed jobs that omit one
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// TickInterval parses the configured poll-loop tick, falling back to one
// second on a missing or malformed value.
func (b BatchConfig) TickInterval() time.Duration {
	d, err := time.ParseDuration(b.Tick)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are exposed in purgo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/state",
			},
			DatasetsDir: "./data/datasets",
		},
		Batch: BatchConfig{
			Tick:           "1s",
			MaxRunHistory:  300,
			IngestPerSec:   20,
			JobsDir:        "./jobs",
			DefaultPollSec: 300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration from files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier
// files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PURGO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("PURGO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PURGO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if path := os.Getenv("PURGO_STORAGE_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if dir := os.Getenv("PURGO_DATASETS_DIR"); dir != "" {
		config.Storage.DatasetsDir = dir
	}
	if dir := os.Getenv("PURGO_JOBS_DIR"); dir != "" {
		config.Batch.JobsDir = dir
	}
	if level := os.Getenv("PURGO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
