package models

import "time"

// Fix pass operation names, in execution order
const (
	OpTypeInference    = "auto_type_inference"
	OpRemoveDuplicates = "remove_duplicate_rows"
	OpFillMissing      = "fill_missing_values"
	OpCapOutliers      = "cap_outliers_iqr"
	OpNormalizeText    = "normalize_categorical_text"
	OpLogTransform     = "log_transform_skewed_features"
	OpCorrelation      = "high_correlation_feature_detection"
)

// PassOrder lists the seven fix passes in the order the engine applies them
var PassOrder = []string{
	OpTypeInference,
	OpRemoveDuplicates,
	OpFillMissing,
	OpCapOutliers,
	OpNormalizeText,
	OpLogTransform,
	OpCorrelation,
}

// TricksCovered is the human-readable description of the seven passes,
// carried verbatim in every report.
var TricksCovered = []string{
	"automatic data-type inference",
	"duplicate row detection and removal",
	"missing-value detection and imputation",
	"IQR-based outlier capping",
	"inconsistent text category normalization",
	"skewness correction using log1p",
	"redundant feature detection with correlation",
}

// TypeConversion records one column whose declared type changed during
// type inference
type TypeConversion struct {
	Column string     `json:"column"`
	From   ColumnType `json:"from"`
	To     ColumnType `json:"to"`
}

// FixDetail is the outcome of one fix pass. Counter fields are nil when the
// counter does not apply to the pass, zero when the pass found nothing to do.
type FixDetail struct {
	Operation         string `json:"operation"`
	ColumnsTouched    *int   `json:"columns_touched,omitempty"`
	RowsImpacted      *int   `json:"rows_impacted,omitempty"`
	DuplicatesRemoved *int   `json:"duplicates_removed,omitempty"`
	PairsFound        *int   `json:"pairs_found,omitempty"`
	Detail            any    `json:"detail,omitempty"`
}

// QualityDelta compares duplicate and missing counts before and after a run
type QualityDelta struct {
	DuplicateRowsBefore int `json:"duplicate_rows_before"`
	DuplicateRowsAfter  int `json:"duplicate_rows_after"`
	MissingCellsBefore  int `json:"missing_cells_before"`
	MissingCellsAfter   int `json:"missing_cells_after"`
}

// BenchmarkMetrics is the result set of the canonical benchmark query as
// computed by one engine
type BenchmarkMetrics struct {
	RowCount  int64    `json:"row_count"`
	MeanValue *float64 `json:"mean_value,omitempty"`
}

// BenchmarkResult compares the canonical query executed natively over the
// in-memory table against the same SQL run through the persisted dataset.
// Error is set, and the metric fields zeroed, when the benchmark could not
// complete; a failed benchmark never fails the pipeline.
type BenchmarkResult struct {
	Query        string           `json:"query"`
	NativeMs     float64          `json:"native_ms"`
	SQLMs        float64          `json:"sql_ms"`
	NativeResult BenchmarkMetrics `json:"native_result"`
	SQLResult    BenchmarkMetrics `json:"sql_result"`
	Error        string           `json:"error,omitempty"`
}

// QuerySuggestion is a template SQL statement offered against the cleaned
// dataset
type QuerySuggestion struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
}

// IngestionInfo records how a dataset entered the system
type IngestionInfo struct {
	Mode       string `json:"mode"` // "upload" or "batch"
	AutoFix    bool   `json:"auto_fix"`
	SourcePath string `json:"source_path,omitempty"`
	JobID      string `json:"job_id,omitempty"`
}

// PipelineReport is the immutable before/after record of one pipeline run
type PipelineReport struct {
	CreatedAt        time.Time          `json:"created_at"`
	SourceFile       string             `json:"source_file"`
	TricksCovered    []string           `json:"tricks_covered"`
	Before           *TableSnapshot     `json:"before"`
	After            *TableSnapshot     `json:"after"`
	TypeConversions  []TypeConversion   `json:"type_conversions"`
	FixesApplied     []FixDetail        `json:"fixes_applied"`
	QualityDelta     *QualityDelta      `json:"quality_delta"`
	Ingestion        IngestionInfo      `json:"ingestion"`
	Benchmark        *BenchmarkResult   `json:"benchmark,omitempty"`
	QuerySuggestions []QuerySuggestion  `json:"query_suggestions,omitempty"`
}

// PipelineOptions controls a single pipeline invocation
type PipelineOptions struct {
	SourceFile string
	AutoFix    bool
	Mode       string // "upload" or "batch"
	SourcePath string
	JobID      string
}

// PipelineResult is what the orchestrator hands back to its caller
type PipelineResult struct {
	DatasetID   string          `json:"dataset_id"`
	DatasetPath string          `json:"dataset_path"`
	Report      *PipelineReport `json:"report"`
}
