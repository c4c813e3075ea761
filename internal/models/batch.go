package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Run status values
const (
	RunStatusSuccess = "success"
	RunStatusPartial = "partial_success"
	RunStatusFailed  = "failed"
)

// Run trigger sources
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerCreate    = "create"
)

// BatchJob is a watched-folder ingestion job. Configuration fields change
// only through explicit update requests; the scheduler is the sole mutator
// of the run-bookkeeping fields. Fingerprints maps absolute source paths to
// the fingerprint last ingested for that path.
type BatchJob struct {
	ID             string            `json:"job_id"`
	Name           string            `json:"name"`
	WatchDir       string            `json:"watch_dir"`
	PollSeconds    int               `json:"poll_seconds"`
	AutoFix        bool              `json:"auto_fix"`
	Enabled        bool              `json:"enabled"`
	CreatedAt      time.Time         `json:"created_at"`
	LastRunAt      *time.Time        `json:"last_run_at"`
	LastStatus     string            `json:"last_status"`
	LastError      string            `json:"last_error,omitempty"`
	ProcessedFiles int               `json:"processed_files"`
	NextRunAt      *time.Time        `json:"next_run_at"`
	Fingerprints   map[string]string `json:"-"`

	// Running is derived from the scheduler's guard set when a job is
	// serialized for callers; it is never persisted.
	Running bool `json:"running" badgerhold:"-"`
}

// NewBatchJob builds a fresh job record from a validated configuration.
// AutoFix and Enabled default to true when the config leaves them unset.
func NewBatchJob(config *JobConfig, id string, now time.Time) *BatchJob {
	job := &BatchJob{
		ID:           id,
		Name:         config.Name,
		WatchDir:     config.WatchDir,
		PollSeconds:  config.PollSeconds,
		AutoFix:      true,
		Enabled:      true,
		CreatedAt:    now,
		Fingerprints: map[string]string{},
	}
	job.ApplyFlags(config)

	next := now.Add(time.Duration(job.PollSeconds) * time.Second)
	job.NextRunAt = &next
	return job
}

// ApplyFlags copies the optional boolean settings from a configuration
func (j *BatchJob) ApplyFlags(config *JobConfig) {
	if config.AutoFix != nil {
		j.AutoFix = *config.AutoFix
	}
	if config.Enabled != nil {
		j.Enabled = *config.Enabled
	}
}

// DatasetRef points a batch run at a dataset it created
type DatasetRef struct {
	DatasetID  string `json:"dataset_id"`
	SourceFile string `json:"source_file"`
	SourcePath string `json:"source_path"`
}

// BatchRun is one execution of a batch job over its candidate files.
// Immutable once FinishedAt is set.
type BatchRun struct {
	ID              string       `json:"run_id"`
	JobID           string       `json:"job_id"`
	JobName         string       `json:"job_name"`
	TriggeredBy     string       `json:"triggered_by"`
	StartedAt       time.Time    `json:"started_at"`
	FinishedAt      *time.Time   `json:"finished_at"`
	Status          string       `json:"status"`
	FilesSeen       int          `json:"files_seen"`
	FilesProcessed  int          `json:"files_processed"`
	DatasetsCreated []DatasetRef `json:"datasets_created"`
	Errors          []string     `json:"errors"`
}

// ClassifyRunStatus derives the three-way run status: failed when nothing
// processed but work existed (or a fatal directory error occurred), partial
// when some files failed, success otherwise. The zero-candidate run counts
// as success.
func ClassifyRunStatus(filesSeen, filesProcessed, errorCount int) string {
	switch {
	case errorCount > 0 && filesProcessed == 0:
		return RunStatusFailed
	case errorCount > 0 || filesProcessed < filesSeen:
		return RunStatusPartial
	default:
		return RunStatusSuccess
	}
}

// JobConfig is the payload for creating a batch job
type JobConfig struct {
	Name        string `json:"name" yaml:"name"`
	WatchDir    string `json:"watch_dir" yaml:"watch_dir" validate:"required"`
	PollSeconds int    `json:"poll_seconds" yaml:"poll_seconds" validate:"required,min=10"`
	AutoFix     *bool  `json:"auto_fix" yaml:"auto_fix"`
	Enabled     *bool  `json:"enabled" yaml:"enabled"`
	RunOnCreate bool   `json:"run_on_create" yaml:"run_on_create"`
}

// JobUpdate is a partial update of job configuration; nil fields are left
// unchanged
type JobUpdate struct {
	Name        *string `json:"name"`
	WatchDir    *string `json:"watch_dir"`
	PollSeconds *int    `json:"poll_seconds" validate:"omitempty,min=10"`
	AutoFix     *bool   `json:"auto_fix"`
	Enabled     *bool   `json:"enabled"`
}

var validate = validator.New()

// Validate checks a job creation payload
func (c *JobConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}

// Validate checks a partial job update payload
func (u *JobUpdate) Validate() error {
	if err := validate.Struct(u); err != nil {
		return &ValidationError{Reason: err.Error()}
	}
	if u.Name != nil && *u.Name == "" {
		return &ValidationError{Field: "name", Reason: "name cannot be empty"}
	}
	if u.WatchDir != nil && *u.WatchDir == "" {
		return &ValidationError{Field: "watch_dir", Reason: "watch_dir cannot be empty"}
	}
	return nil
}

// String implements fmt.Stringer for log output
func (r *BatchRun) String() string {
	return fmt.Sprintf("%s job=%s status=%s seen=%d processed=%d", r.ID, r.JobID, r.Status, r.FilesSeen, r.FilesProcessed)
}
