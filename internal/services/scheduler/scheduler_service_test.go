package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/purgo/internal/ingest"
	"github.com/ternarybob/purgo/internal/models"
)

// memoryJobStorage is a map-backed JobStorage that copies records on the
// way in and out, like a real serializing store
type memoryJobStorage struct {
	mu   sync.Mutex
	jobs map[string]models.BatchJob
}

func newMemoryJobStorage() *memoryJobStorage {
	return &memoryJobStorage{jobs: map[string]models.BatchJob{}}
}

func (m *memoryJobStorage) StoreJob(_ context.Context, job *models.BatchJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	copied.Fingerprints = map[string]string{}
	for k, v := range job.Fingerprints {
		copied.Fingerprints[k] = v
	}
	m.jobs[job.ID] = copied
	return nil
}

func (m *memoryJobStorage) GetJob(_ context.Context, id string) (*models.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, models.ErrJobNotFound
	}
	copied := job
	copied.Fingerprints = map[string]string{}
	for k, v := range job.Fingerprints {
		copied.Fingerprints[k] = v
	}
	return &copied, nil
}

func (m *memoryJobStorage) GetAllJobs(ctx context.Context) ([]*models.BatchJob, error) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Strings(ids)

	result := make([]*models.BatchJob, 0, len(ids))
	for _, id := range ids {
		job, err := m.GetJob(ctx, id)
		if err != nil {
			continue
		}
		result = append(result, job)
	}
	return result, nil
}

func (m *memoryJobStorage) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return models.ErrJobNotFound
	}
	delete(m.jobs, id)
	return nil
}

func (m *memoryJobStorage) CountJobs(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs), nil
}

type memoryRunStorage struct {
	mu   sync.Mutex
	runs []models.BatchRun
}

func (m *memoryRunStorage) AppendRun(_ context.Context, run *models.BatchRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return nil
}

func (m *memoryRunStorage) GetRun(_ context.Context, id string) (*models.BatchRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == id {
			run := m.runs[i]
			return &run, nil
		}
	}
	return nil, fmt.Errorf("run not found: %s", id)
}

func (m *memoryRunStorage) GetRuns(_ context.Context, limit int) ([]*models.BatchRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*models.BatchRun, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0; i-- {
		run := m.runs[i]
		result = append(result, &run)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *memoryRunStorage) GetRunsByJob(_ context.Context, jobID string, limit int) ([]*models.BatchRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*models.BatchRun, 0)
	for i := len(m.runs) - 1; i >= 0; i-- {
		if m.runs[i].JobID != jobID {
			continue
		}
		run := m.runs[i]
		result = append(result, &run)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *memoryRunStorage) CountRuns(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs), nil
}

// stubPipeline fabricates dataset ids, failing paths listed in failFor.
// When block is set, Run waits until the channel closes.
type stubPipeline struct {
	mu      sync.Mutex
	failFor map[string]bool
	block   chan struct{}
	calls   []string
}

func (p *stubPipeline) Run(raw []byte, table *models.Table, opts models.PipelineOptions) (*models.PipelineResult, error) {
	if p.block != nil {
		<-p.block
	}
	p.mu.Lock()
	p.calls = append(p.calls, opts.SourcePath)
	p.mu.Unlock()
	if p.failFor[opts.SourceFile] {
		return nil, &models.StorageError{Op: "persist", Err: errors.New("disk full")}
	}
	return &models.PipelineResult{
		DatasetID: "ds_" + opts.SourceFile,
		Report:    &models.PipelineReport{},
	}, nil
}

type testHarness struct {
	service *Service
	jobs    *memoryJobStorage
	runs    *memoryRunStorage
	pipe    *stubPipeline
	dir     string
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	jobs := newMemoryJobStorage()
	runs := &memoryRunStorage{}
	pipe := &stubPipeline{failFor: map[string]bool{}}
	service := NewService(jobs, runs, ingest.NewScanner(), ingest.NewReader(), pipe,
		10*time.Millisecond, 0, arbor.NewLogger())
	return &testHarness{service: service, jobs: jobs, runs: runs, pipe: pipe, dir: t.TempDir()}
}

func (h *testHarness) writeCSV(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(h.dir, name), []byte(content), 0o644))
}

func (h *testHarness) createJob(t *testing.T) *models.BatchJob {
	t.Helper()
	job, err := h.service.CreateJob(context.Background(), &models.JobConfig{
		Name:        "watch",
		WatchDir:    h.dir,
		PollSeconds: 60,
	})
	require.NoError(t, err)
	return job
}

func TestTriggerRunPartialSuccess(t *testing.T) {
	h := newHarness(t)
	h.writeCSV(t, "a.csv", "x\n1\n")
	h.writeCSV(t, "b.csv", "x\n2\n")
	h.writeCSV(t, "c.csv", "x\n3\n")
	h.pipe.failFor["b.csv"] = true
	job := h.createJob(t)

	run, err := h.service.TriggerRun(context.Background(), job.ID)

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPartial, run.Status)
	assert.Equal(t, 3, run.FilesSeen)
	assert.Equal(t, 2, run.FilesProcessed)
	require.Len(t, run.Errors, 1)
	assert.Contains(t, run.Errors[0], "b.csv")
	assert.Len(t, run.DatasetsCreated, 2)
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, models.TriggerManual, run.TriggeredBy)

	// bookkeeping lands on the stored job; the failed file stays a candidate
	stored, err := h.service.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPartial, stored.LastStatus)
	assert.Contains(t, stored.LastError, "b.csv")
	assert.Equal(t, 2, stored.ProcessedFiles)
	assert.NotNil(t, stored.NextRunAt)
	assert.Len(t, stored.Fingerprints, 2)
}

func TestTriggerRunSkipsUnchangedFiles(t *testing.T) {
	h := newHarness(t)
	h.writeCSV(t, "a.csv", "x\n1\n")
	h.writeCSV(t, "b.csv", "x\n2\n")
	job := h.createJob(t)
	ctx := context.Background()

	first, err := h.service.TriggerRun(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, first.FilesSeen)

	h.writeCSV(t, "a.csv", "x\n1\n99\n")

	second, err := h.service.TriggerRun(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, second.Status)
	assert.Equal(t, 1, second.FilesSeen)
	assert.Equal(t, 1, second.FilesProcessed)

	third, err := h.service.TriggerRun(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, third.Status)
	assert.Zero(t, third.FilesSeen)
}

func TestTriggerRunDirectoryError(t *testing.T) {
	h := newHarness(t)
	job := h.createJob(t)
	require.NoError(t, os.RemoveAll(h.dir))

	run, err := h.service.TriggerRun(context.Background(), job.ID)

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Zero(t, run.FilesSeen)
	require.Len(t, run.Errors, 1)
}

func TestTriggerRunParseErrorIsPerFile(t *testing.T) {
	h := newHarness(t)
	h.writeCSV(t, "good.csv", "x\n1\n")
	h.writeCSV(t, "bad.csv", "x,y\n1\n")
	job := h.createJob(t)

	run, err := h.service.TriggerRun(context.Background(), job.ID)

	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPartial, run.Status)
	assert.Equal(t, 2, run.FilesSeen)
	assert.Equal(t, 1, run.FilesProcessed)
	require.Len(t, run.Errors, 1)
	assert.Contains(t, run.Errors[0], "bad.csv")
}

func TestConcurrentTriggerIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.writeCSV(t, "a.csv", "x\n1\n")
	h.pipe.block = make(chan struct{})
	job := h.createJob(t)
	ctx := context.Background()

	done := make(chan *models.BatchRun)
	go func() {
		run, err := h.service.TriggerRun(ctx, job.ID)
		require.NoError(t, err)
		done <- run
	}()

	// wait for the first run to claim the job
	require.Eventually(t, func() bool {
		got, err := h.service.GetJob(ctx, job.ID)
		return err == nil && got.Running
	}, time.Second, 5*time.Millisecond)

	_, err := h.service.TriggerRun(ctx, job.ID)
	assert.ErrorIs(t, err, models.ErrJobRunning)

	close(h.pipe.block)
	run := <-done
	assert.Equal(t, models.RunStatusSuccess, run.Status)

	runs, err := h.service.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestDeleteWhileRunningIsDeferred(t *testing.T) {
	h := newHarness(t)
	h.writeCSV(t, "a.csv", "x\n1\n")
	h.pipe.block = make(chan struct{})
	job := h.createJob(t)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		_, err := h.service.TriggerRun(ctx, job.ID)
		require.NoError(t, err)
		close(done)
	}()

	require.Eventually(t, func() bool {
		got, err := h.service.GetJob(ctx, job.ID)
		return err == nil && got.Running
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, h.service.DeleteJob(ctx, job.ID))

	// still present while the run is in flight
	_, err := h.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)

	close(h.pipe.block)
	<-done

	require.Eventually(t, func() bool {
		_, err := h.jobs.GetJob(ctx, job.ID)
		return errors.Is(err, models.ErrJobNotFound)
	}, time.Second, 5*time.Millisecond)
}

func TestCreateJobValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.CreateJob(context.Background(), &models.JobConfig{
		Name:        "bad",
		WatchDir:    h.dir,
		PollSeconds: 5,
	})

	var validationErr *models.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	_, err = h.service.CreateJob(context.Background(), &models.JobConfig{
		Name:        "bad",
		PollSeconds: 60,
	})
	assert.ErrorAs(t, err, &validationErr)
}

func TestUpdateJob(t *testing.T) {
	h := newHarness(t)
	job := h.createJob(t)
	ctx := context.Background()

	poll := 120
	enabled := false
	updated, err := h.service.UpdateJob(ctx, job.ID, &models.JobUpdate{
		PollSeconds: &poll,
		Enabled:     &enabled,
	})

	require.NoError(t, err)
	assert.Equal(t, 120, updated.PollSeconds)
	assert.False(t, updated.Enabled)

	badPoll := 3
	_, err = h.service.UpdateJob(ctx, job.ID, &models.JobUpdate{PollSeconds: &badPoll})
	var validationErr *models.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	_, err = h.service.UpdateJob(ctx, "job_absent", &models.JobUpdate{})
	assert.ErrorIs(t, err, models.ErrJobNotFound)
}

func TestRunOnCreate(t *testing.T) {
	h := newHarness(t)
	h.writeCSV(t, "a.csv", "x\n1\n")

	job, err := h.service.CreateJob(context.Background(), &models.JobConfig{
		Name:        "eager",
		WatchDir:    h.dir,
		PollSeconds: 60,
		RunOnCreate: true,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		runs, err := h.service.ListRunsByJob(context.Background(), job.ID, 0)
		return err == nil && len(runs) == 1 && runs[0].TriggeredBy == models.TriggerCreate
	}, time.Second, 5*time.Millisecond)
}

func TestPollLoopTriggersDueJobs(t *testing.T) {
	h := newHarness(t)
	h.writeCSV(t, "a.csv", "x\n1\n")
	job := h.createJob(t)
	ctx := context.Background()

	// force the job due now
	stored, err := h.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	due := time.Now().UTC().Add(-time.Second)
	stored.NextRunAt = &due
	require.NoError(t, h.jobs.StoreJob(ctx, stored))

	require.NoError(t, h.service.Start(ctx))
	defer h.service.Stop()

	require.Eventually(t, func() bool {
		runs, err := h.service.ListRunsByJob(ctx, job.ID, 0)
		return err == nil && len(runs) >= 1 && runs[0].TriggeredBy == models.TriggerScheduled
	}, 3*time.Second, 10*time.Millisecond)

	// the next poll does not re-run an up-to-date job before its interval
	runs, err := h.service.ListRunsByJob(ctx, job.ID, 0)
	require.NoError(t, err)
	first := len(runs)
	time.Sleep(50 * time.Millisecond)
	runs, err = h.service.ListRunsByJob(ctx, job.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, first, len(runs))
}

func TestDisabledJobNotPolled(t *testing.T) {
	h := newHarness(t)
	h.writeCSV(t, "a.csv", "x\n1\n")
	job := h.createJob(t)
	ctx := context.Background()

	enabled := false
	_, err := h.service.UpdateJob(ctx, job.ID, &models.JobUpdate{Enabled: &enabled})
	require.NoError(t, err)

	stored, err := h.jobs.GetJob(ctx, job.ID)
	require.NoError(t, err)
	due := time.Now().UTC().Add(-time.Second)
	stored.NextRunAt = &due
	require.NoError(t, h.jobs.StoreJob(ctx, stored))

	require.NoError(t, h.service.Start(ctx))
	defer h.service.Stop()

	time.Sleep(100 * time.Millisecond)
	runs, err := h.service.ListRunsByJob(ctx, job.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
