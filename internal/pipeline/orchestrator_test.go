package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/purgo/internal/datasets"
	"github.com/ternarybob/purgo/internal/models"
	"github.com/ternarybob/purgo/internal/quality"
)

type fakeStorage struct {
	saved         *models.Table
	savedReport   *models.PipelineReport
	updatedReport *models.PipelineReport
	saveErr       error
	updateErr     error
}

func (f *fakeStorage) Save(raw []byte, cleaned *models.Table, report *models.PipelineReport) (*datasets.Meta, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = cleaned
	f.savedReport = report
	return &datasets.Meta{DatasetID: "ds_test", TablePath: "/tmp/ds_test/cleaned.db"}, nil
}

func (f *fakeStorage) UpdateReport(datasetID string, report *models.PipelineReport) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updatedReport = report
	return nil
}

func (f *fakeStorage) List() ([]datasets.Summary, error) { return nil, nil }

func (f *fakeStorage) GetReport(string) (*models.PipelineReport, error) { return nil, nil }

type fakeBenchmark struct {
	result *models.BenchmarkResult
}

func (f *fakeBenchmark) Run(t *models.Table, tablePath string) *models.BenchmarkResult {
	if f.result != nil {
		return f.result
	}
	return &models.BenchmarkResult{Query: "SELECT COUNT(*) FROM dataset"}
}

func messyTable() *models.Table {
	return &models.Table{
		Columns: []models.Column{
			{Name: "age", Type: models.ColumnText, Values: []models.Value{
				models.Text("25"), models.Text("30"), models.Null(), models.Text("200"),
			}},
			{Name: "city", Type: models.ColumnText, Values: []models.Value{
				models.Text(" NYC"), models.Text("nyc"), models.Text("LA"), models.Text("LA"),
			}},
		},
	}
}

func newTestOrchestrator(storage *fakeStorage, bench *fakeBenchmark) *Orchestrator {
	return NewOrchestrator(quality.NewEngine(nil), storage, bench, nil)
}

func TestRunAssemblesReport(t *testing.T) {
	storage := &fakeStorage{}
	orch := newTestOrchestrator(storage, &fakeBenchmark{})

	result, err := orch.Run([]byte("raw"), messyTable(), models.PipelineOptions{
		SourceFile: "messy.csv",
		AutoFix:    true,
		Mode:       "upload",
	})

	require.NoError(t, err)
	assert.Equal(t, "ds_test", result.DatasetID)

	report := result.Report
	require.NotNil(t, report)
	assert.Equal(t, "messy.csv", report.SourceFile)
	assert.Len(t, report.FixesApplied, 7)
	assert.Equal(t, models.TricksCovered, report.TricksCovered)
	assert.Equal(t, 1, report.QualityDelta.MissingCellsBefore)
	assert.Equal(t, 0, report.QualityDelta.MissingCellsAfter)
	assert.NotNil(t, report.Benchmark)
	assert.NotEmpty(t, report.QuerySuggestions)

	// the report persisted after benchmarking carries the benchmark
	require.NotNil(t, storage.updatedReport)
	assert.NotNil(t, storage.updatedReport.Benchmark)
}

func TestRunWithoutAutoFix(t *testing.T) {
	storage := &fakeStorage{}
	orch := newTestOrchestrator(storage, &fakeBenchmark{})
	input := messyTable()

	result, err := orch.Run([]byte("raw"), input, models.PipelineOptions{
		SourceFile: "messy.csv",
		Mode:       "upload",
	})

	require.NoError(t, err)
	assert.Empty(t, result.Report.FixesApplied)
	assert.Empty(t, result.Report.TricksCovered)
	assert.Equal(t, result.Report.Before.MissingCells, result.Report.After.MissingCells)

	// the stored table is a copy, not the caller's instance
	assert.NotSame(t, input, storage.saved)
	assert.Equal(t, input.RowCount(), storage.saved.RowCount())
}

func TestRunStorageFailureIsFatal(t *testing.T) {
	wantErr := &models.StorageError{Op: "write cleaned table", Err: errors.New("disk full")}
	orch := newTestOrchestrator(&fakeStorage{saveErr: wantErr}, &fakeBenchmark{})

	_, err := orch.Run([]byte("raw"), messyTable(), models.PipelineOptions{AutoFix: true})

	var storageErr *models.StorageError
	require.ErrorAs(t, err, &storageErr)
}

func TestRunBenchmarkErrorDoesNotFail(t *testing.T) {
	bench := &fakeBenchmark{result: &models.BenchmarkResult{Error: "no such table"}}
	orch := newTestOrchestrator(&fakeStorage{}, bench)

	result, err := orch.Run([]byte("raw"), messyTable(), models.PipelineOptions{AutoFix: true})

	require.NoError(t, err)
	assert.Equal(t, "no such table", result.Report.Benchmark.Error)
}

func TestRunReportUpdateFailureDoesNotFail(t *testing.T) {
	storage := &fakeStorage{updateErr: errors.New("readonly fs")}
	orch := newTestOrchestrator(storage, &fakeBenchmark{})

	result, err := orch.Run([]byte("raw"), messyTable(), models.PipelineOptions{AutoFix: true})

	require.NoError(t, err)
	assert.NotNil(t, result.Report.Benchmark)
}

func TestBuildQuerySuggestions(t *testing.T) {
	table := &models.Table{
		Columns: []models.Column{
			{Name: "price", Type: models.ColumnNumeric},
			{Name: "qty", Type: models.ColumnNumeric},
			{Name: "region", Type: models.ColumnText},
		},
	}

	suggestions := BuildQuerySuggestions(table)

	require.Len(t, suggestions, 5)
	assert.Equal(t, "Preview rows", suggestions[0].Name)
	assert.Contains(t, suggestions[2].SQL, `AVG("price")`)
	assert.Contains(t, suggestions[3].SQL, `GROUP BY "region"`)
	assert.Contains(t, suggestions[4].SQL, `ORDER BY "price" DESC`)
}

func TestBuildQuerySuggestionsEscapesQuotedColumn(t *testing.T) {
	table := &models.Table{
		Columns: []models.Column{{Name: `odd"name`, Type: models.ColumnNumeric}},
	}

	suggestions := BuildQuerySuggestions(table)

	require.Len(t, suggestions, 3)
	assert.Contains(t, suggestions[2].SQL, `AVG("odd""name")`)
}

func TestBuildQuerySuggestionsTextOnly(t *testing.T) {
	table := &models.Table{
		Columns: []models.Column{{Name: "note", Type: models.ColumnText}},
	}

	suggestions := BuildQuerySuggestions(table)

	require.Len(t, suggestions, 2)
	assert.Equal(t, "Row count", suggestions[1].Name)
}
