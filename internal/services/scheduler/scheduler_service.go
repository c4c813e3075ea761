// Package scheduler runs batch ingestion jobs: a recurring poll loop scans
// each enabled job's watch directory, diffs file fingerprints against the
// last ingested state and pushes new or changed files through the pipeline.
package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/purgo/internal/common"
	"github.com/ternarybob/purgo/internal/interfaces"
	"github.com/ternarybob/purgo/internal/models"
)

// Service implements SchedulerService
type Service struct {
	jobStorage interfaces.JobStorage
	runStorage interfaces.RunStorage
	lister     interfaces.FileLister
	reader     interfaces.TableReader
	pipeline   interfaces.PipelineService
	cron       *cron.Cron
	tick       time.Duration
	limiter    *rate.Limiter
	logger     arbor.ILogger

	mu            sync.Mutex // Protects the three guard sets below
	runningJobs   map[string]bool
	pendingDelete map[string]bool
	running       bool

	baseCtx context.Context
}

// NewService creates a new scheduler service. ingestPerSec caps file
// ingestion across all jobs; zero or negative means no cap.
func NewService(
	jobStorage interfaces.JobStorage,
	runStorage interfaces.RunStorage,
	lister interfaces.FileLister,
	reader interfaces.TableReader,
	pipeline interfaces.PipelineService,
	tick time.Duration,
	ingestPerSec int,
	logger arbor.ILogger,
) *Service {
	limit := rate.Inf
	if ingestPerSec > 0 {
		limit = rate.Limit(ingestPerSec)
	}
	return &Service{
		jobStorage:    jobStorage,
		runStorage:    runStorage,
		lister:        lister,
		reader:        reader,
		pipeline:      pipeline,
		cron:          cron.New(),
		tick:          tick,
		limiter:       rate.NewLimiter(limit, 1),
		logger:        logger,
		runningJobs:   make(map[string]bool),
		pendingDelete: make(map[string]bool),
		baseCtx:       context.Background(),
	}
}

// Start begins the recurring poll loop
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.baseCtx = ctx
	spec := fmt.Sprintf("@every %s", s.tick)
	if _, err := s.cron.AddFunc(spec, s.pollOnce); err != nil {
		return fmt.Errorf("failed to add poll loop: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("tick", s.tick.String()).Msg("Scheduler started")
	return nil
}

// Stop halts the poll loop. In-flight runs finish on their own goroutines.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.cron.Stop()
	s.running = false
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning reports whether the poll loop is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// pollOnce triggers all enabled jobs whose next run time has elapsed
func (s *Service) pollOnce() {
	ctx := s.baseCtx
	jobs, err := s.jobStorage.GetAllJobs(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Poll loop failed to list jobs")
		return
	}

	now := time.Now().UTC()
	for _, job := range jobs {
		if !job.Enabled || job.NextRunAt == nil || job.NextRunAt.After(now) {
			continue
		}
		jobID := job.ID
		go func() {
			if _, err := s.executeRun(ctx, jobID, models.TriggerScheduled); err != nil && err != models.ErrJobRunning {
				s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Scheduled run failed")
			}
		}()
	}
}

// CreateJob registers a new job and optionally triggers its first run
func (s *Service) CreateJob(ctx context.Context, config *models.JobConfig) (*models.BatchJob, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	job := models.NewBatchJob(config, common.NewJobID(), time.Now().UTC())
	if err := s.jobStorage.StoreJob(ctx, job); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("watch_dir", job.WatchDir).
		Int("poll_seconds", job.PollSeconds).
		Msg("Batch job created")

	if config.RunOnCreate {
		go func() {
			if _, err := s.executeRun(s.baseCtx, job.ID, models.TriggerCreate); err != nil && err != models.ErrJobRunning {
				s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Initial run failed")
			}
		}()
	}

	return s.decorate(job), nil
}

// UpdateJob applies a partial configuration update
func (s *Service) UpdateJob(ctx context.Context, id string, update *models.JobUpdate) (*models.BatchJob, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	job, err := s.jobStorage.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		job.Name = *update.Name
	}
	if update.WatchDir != nil {
		job.WatchDir = *update.WatchDir
	}
	if update.PollSeconds != nil {
		job.PollSeconds = *update.PollSeconds
		next := time.Now().UTC().Add(time.Duration(job.PollSeconds) * time.Second)
		job.NextRunAt = &next
	}
	if update.AutoFix != nil {
		job.AutoFix = *update.AutoFix
	}
	if update.Enabled != nil {
		wasEnabled := job.Enabled
		job.Enabled = *update.Enabled
		if job.Enabled && !wasEnabled {
			next := time.Now().UTC().Add(time.Duration(job.PollSeconds) * time.Second)
			job.NextRunAt = &next
		}
	}

	if err := s.jobStorage.StoreJob(ctx, job); err != nil {
		return nil, err
	}
	return s.decorate(job), nil
}

// DeleteJob removes a job. A job mid-run is marked for deletion and removed
// when its current run finishes.
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.runningJobs[id] {
		s.pendingDelete[id] = true
		s.mu.Unlock()
		s.logger.Info().Str("job_id", id).Msg("Job mid-run, deletion deferred until run completes")
		return nil
	}
	s.mu.Unlock()

	return s.jobStorage.DeleteJob(ctx, id)
}

// GetJob returns one job by id
func (s *Service) GetJob(ctx context.Context, id string) (*models.BatchJob, error) {
	job, err := s.jobStorage.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decorate(job), nil
}

// ListJobs returns all jobs
func (s *Service) ListJobs(ctx context.Context) ([]*models.BatchJob, error) {
	jobs, err := s.jobStorage.GetAllJobs(ctx)
	if err != nil {
		return nil, err
	}
	for _, job := range jobs {
		s.decorate(job)
	}
	return jobs, nil
}

// TriggerRun executes a run immediately and synchronously. Returns
// ErrJobRunning when the job is already mid-run.
func (s *Service) TriggerRun(ctx context.Context, id string) (*models.BatchRun, error) {
	return s.executeRun(ctx, id, models.TriggerManual)
}

// ListRuns returns finished runs most-recent-first
func (s *Service) ListRuns(ctx context.Context, limit int) ([]*models.BatchRun, error) {
	return s.runStorage.GetRuns(ctx, limit)
}

// ListRunsByJob returns one job's finished runs most-recent-first
func (s *Service) ListRunsByJob(ctx context.Context, jobID string, limit int) ([]*models.BatchRun, error) {
	return s.runStorage.GetRunsByJob(ctx, jobID, limit)
}

// decorate fills the transient Running flag from the guard set
func (s *Service) decorate(job *models.BatchJob) *models.BatchJob {
	s.mu.Lock()
	job.Running = s.runningJobs[job.ID]
	s.mu.Unlock()
	return job
}

// acquire atomically claims a job's running slot
func (s *Service) acquire(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runningJobs[id] {
		return false
	}
	s.runningJobs[id] = true
	return true
}

// release frees a job's running slot and reports whether a deferred
// deletion is due
func (s *Service) release(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runningJobs, id)
	deleteDue := s.pendingDelete[id]
	delete(s.pendingDelete, id)
	return deleteDue
}

// executeRun performs one full run for a job: scan, diff, ingest each
// candidate, classify, persist. Per-file failures accumulate; only a
// directory scan failure is fatal to the run.
func (s *Service) executeRun(ctx context.Context, jobID, trigger string) (*models.BatchRun, error) {
	if !s.acquire(jobID) {
		return nil, models.ErrJobRunning
	}
	defer func() {
		if s.release(jobID) {
			if err := s.jobStorage.DeleteJob(ctx, jobID); err != nil {
				s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Deferred job deletion failed")
			} else {
				s.logger.Info().Str("job_id", jobID).Msg("Job deleted after run completed")
			}
		}
	}()

	job, err := s.jobStorage.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	run := &models.BatchRun{
		ID:              common.NewRunID(),
		JobID:           job.ID,
		JobName:         job.Name,
		TriggeredBy:     trigger,
		StartedAt:       time.Now().UTC(),
		DatasetsCreated: []models.DatasetRef{},
		Errors:          []string{},
	}

	newFingerprints := map[string]string{}

	files, err := s.lister.ListFiles(job.WatchDir)
	if err != nil {
		run.Errors = append(run.Errors, err.Error())
		run.Status = models.RunStatusFailed
	} else {
		candidates := make([]struct{ path, fp string }, 0, len(files))
		for _, f := range files {
			if job.Fingerprints[f.Path] != f.Fingerprint {
				candidates = append(candidates, struct{ path, fp string }{f.Path, f.Fingerprint})
			}
		}
		run.FilesSeen = len(candidates)

		for _, candidate := range candidates {
			if err := s.ingestFile(ctx, job, run, candidate.path); err != nil {
				run.Errors = append(run.Errors, fmt.Sprintf("%s: %v", candidate.path, err))
				continue
			}
			newFingerprints[candidate.path] = candidate.fp
			run.FilesProcessed++
		}

		run.Status = models.ClassifyRunStatus(run.FilesSeen, run.FilesProcessed, len(run.Errors))
	}

	finished := time.Now().UTC()
	run.FinishedAt = &finished

	if err := s.runStorage.AppendRun(ctx, run); err != nil {
		s.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to persist run record")
	}
	s.finalizeJob(ctx, jobID, run, newFingerprints)

	s.logger.Info().
		Str("job_id", job.ID).
		Str("trigger", trigger).
		Str("status", run.Status).
		Int("files_seen", run.FilesSeen).
		Int("files_processed", run.FilesProcessed).
		Msg("Batch run finished")

	return run, nil
}

// ingestFile pushes one candidate file through the pipeline
func (s *Service) ingestFile(ctx context.Context, job *models.BatchJob, run *models.BatchRun, path string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	raw, table, err := s.reader.ReadFile(path)
	if err != nil {
		return err
	}

	result, err := s.pipeline.Run(raw, table, models.PipelineOptions{
		SourceFile: filepath.Base(path),
		AutoFix:    job.AutoFix,
		Mode:       "batch",
		SourcePath: path,
		JobID:      job.ID,
	})
	if err != nil {
		return err
	}

	run.DatasetsCreated = append(run.DatasetsCreated, models.DatasetRef{
		DatasetID:  result.DatasetID,
		SourceFile: filepath.Base(path),
		SourcePath: path,
	})
	return nil
}

// finalizeJob writes run bookkeeping back onto a fresh copy of the job so
// concurrent configuration updates are not clobbered
func (s *Service) finalizeJob(ctx context.Context, jobID string, run *models.BatchRun, fingerprints map[string]string) {
	job, err := s.jobStorage.GetJob(ctx, jobID)
	if err != nil {
		if err != models.ErrJobNotFound {
			s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to reload job for bookkeeping")
		}
		return
	}

	now := time.Now().UTC()
	job.LastRunAt = &run.StartedAt
	job.LastStatus = run.Status
	job.LastError = ""
	if len(run.Errors) > 0 {
		job.LastError = run.Errors[0]
	}
	job.ProcessedFiles += run.FilesProcessed

	if job.Fingerprints == nil {
		job.Fingerprints = map[string]string{}
	}
	for path, fp := range fingerprints {
		job.Fingerprints[path] = fp
	}

	if job.Enabled {
		next := now.Add(time.Duration(job.PollSeconds) * time.Second)
		job.NextRunAt = &next
	} else {
		job.NextRunAt = nil
	}

	if err := s.jobStorage.StoreJob(ctx, job); err != nil {
		s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to store job bookkeeping")
	}
}
