package badger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/purgo/internal/common"
	"github.com/ternarybob/purgo/internal/models"
)

func testDB(t *testing.T, path string) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{Path: path})
	require.NoError(t, err)
	return db
}

func testJob(id, name string) *models.BatchJob {
	return &models.BatchJob{
		ID:           id,
		Name:         name,
		WatchDir:     "/watch/" + name,
		PollSeconds:  60,
		AutoFix:      true,
		Enabled:      true,
		CreatedAt:    time.Now().UTC(),
		Fingerprints: map[string]string{},
	}
}

func TestGetAllJobsNewestFirst(t *testing.T) {
	db := testDB(t, filepath.Join(t.TempDir(), "state"))
	defer db.Close()

	storage := NewJobStorage(db, arbor.NewLogger())
	ctx := context.Background()

	base := time.Now().UTC()
	for i, name := range []string{"oldest", "middle", "newest"} {
		job := testJob(fmt.Sprintf("job-%d", i), name)
		job.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, storage.StoreJob(ctx, job))
	}

	jobs, err := storage.GetAllJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "newest", jobs[0].Name)
	assert.Equal(t, "middle", jobs[1].Name)
	assert.Equal(t, "oldest", jobs[2].Name)
}

func TestJobStorageCRUD(t *testing.T) {
	db := testDB(t, filepath.Join(t.TempDir(), "state"))
	defer db.Close()

	storage := NewJobStorage(db, arbor.NewLogger())
	ctx := context.Background()

	job := testJob("job-1", "invoices")
	require.NoError(t, storage.StoreJob(ctx, job))

	got, err := storage.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "invoices", got.Name)
	assert.Equal(t, 60, got.PollSeconds)

	got.LastStatus = models.RunStatusSuccess
	got.Fingerprints["/watch/invoices/a.csv"] = "123:456"
	require.NoError(t, storage.StoreJob(ctx, got))

	updated, err := storage.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, updated.LastStatus)
	assert.Equal(t, "123:456", updated.Fingerprints["/watch/invoices/a.csv"])

	count, err := storage.CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, storage.DeleteJob(ctx, "job-1"))
	_, err = storage.GetJob(ctx, "job-1")
	assert.ErrorIs(t, err, models.ErrJobNotFound)
}

func TestJobStorageGetMissing(t *testing.T) {
	db := testDB(t, filepath.Join(t.TempDir(), "state"))
	defer db.Close()

	storage := NewJobStorage(db, arbor.NewLogger())

	_, err := storage.GetJob(context.Background(), "job-absent")
	assert.ErrorIs(t, err, models.ErrJobNotFound)
}

func TestJobStateSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	ctx := context.Background()
	logger := arbor.NewLogger()

	db := testDB(t, path)
	jobs := NewJobStorage(db, logger)
	runs := NewRunStorage(db, 300, logger)

	require.NoError(t, jobs.StoreJob(ctx, testJob("job-1", "invoices")))

	finished := time.Now().UTC()
	require.NoError(t, runs.AppendRun(ctx, &models.BatchRun{
		ID:         "run-1",
		JobID:      "job-1",
		Status:     models.RunStatusSuccess,
		StartedAt:  finished.Add(-time.Second),
		FinishedAt: &finished,
		FilesSeen:  2, FilesProcessed: 2,
	}))
	require.NoError(t, db.Close())

	// reopen against the same path
	db2 := testDB(t, path)
	defer db2.Close()

	reloadedJobs, err := NewJobStorage(db2, logger).GetAllJobs(ctx)
	require.NoError(t, err)
	require.Len(t, reloadedJobs, 1)
	assert.Equal(t, "invoices", reloadedJobs[0].Name)

	reloadedRuns, err := NewRunStorage(db2, 300, logger).GetRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, reloadedRuns, 1)
	assert.Equal(t, models.RunStatusSuccess, reloadedRuns[0].Status)
}

func TestCorruptStateDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "MANIFEST"), []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(path, "KEYREGISTRY"), []byte("garbage"), 0o644))

	db := testDB(t, path)
	defer db.Close()

	jobs, err := NewJobStorage(db, arbor.NewLogger()).GetAllJobs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestRunStoragePrunesHistory(t *testing.T) {
	db := testDB(t, filepath.Join(t.TempDir(), "state"))
	defer db.Close()

	storage := NewRunStorage(db, 5, arbor.NewLogger())
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 8; i++ {
		finished := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, storage.AppendRun(ctx, &models.BatchRun{
			ID:         fmt.Sprintf("run-%d", i),
			JobID:      "job-1",
			Status:     models.RunStatusSuccess,
			StartedAt:  finished.Add(-time.Second),
			FinishedAt: &finished,
		}))
	}

	count, err := storage.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	// the survivors are the newest five, returned most-recent-first
	runs, err := storage.GetRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 5)
	assert.Equal(t, "run-7", runs[0].ID)
	assert.Equal(t, "run-3", runs[4].ID)
}

func TestRunStorageQueries(t *testing.T) {
	db := testDB(t, filepath.Join(t.TempDir(), "state"))
	defer db.Close()

	storage := NewRunStorage(db, 300, arbor.NewLogger())
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		jobID := "job-a"
		if i%2 == 1 {
			jobID = "job-b"
		}
		require.NoError(t, storage.AppendRun(ctx, &models.BatchRun{
			ID:        fmt.Sprintf("run-%d", i),
			JobID:     jobID,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	limited, err := storage.GetRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "run-3", limited[0].ID)

	byJob, err := storage.GetRunsByJob(ctx, "job-a", 0)
	require.NoError(t, err)
	require.Len(t, byJob, 2)
	assert.Equal(t, "run-2", byJob[0].ID)
	assert.Equal(t, "run-0", byJob[1].ID)
}
