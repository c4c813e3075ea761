package interfaces

import (
	"github.com/ternarybob/purgo/internal/datasets"
	"github.com/ternarybob/purgo/internal/ingest"
	"github.com/ternarybob/purgo/internal/models"
)

// TableReader parses a raw file into a table, returning the raw bytes
// alongside for archival
type TableReader interface {
	ReadFile(path string) ([]byte, *models.Table, error)
}

// FileLister enumerates ingestible files in a watch directory with their
// change fingerprints
type FileLister interface {
	ListFiles(dir string) ([]ingest.FileEntry, error)
}

// DatasetStorage persists pipeline outputs and serves them back
type DatasetStorage interface {
	Save(raw []byte, cleaned *models.Table, report *models.PipelineReport) (*datasets.Meta, error)
	UpdateReport(datasetID string, report *models.PipelineReport) error
	List() ([]datasets.Summary, error)
	GetReport(datasetID string) (*models.PipelineReport, error)
}

// BenchmarkRunner times the canonical query through two engines
type BenchmarkRunner interface {
	Run(t *models.Table, tablePath string) *models.BenchmarkResult
}

// PipelineService turns one raw table into a persisted, reported dataset
type PipelineService interface {
	Run(raw []byte, table *models.Table, opts models.PipelineOptions) (*models.PipelineResult, error)
}
