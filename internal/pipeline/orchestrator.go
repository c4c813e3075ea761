// Package pipeline assembles the full dataset run: profile, fix, persist,
// benchmark, report.
package pipeline

import (
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/purgo/internal/interfaces"
	"github.com/ternarybob/purgo/internal/models"
	"github.com/ternarybob/purgo/internal/profile"
	"github.com/ternarybob/purgo/internal/quality"
)

// Orchestrator runs the end-to-end pipeline for one table
type Orchestrator struct {
	engine    *quality.Engine
	storage   interfaces.DatasetStorage
	benchmark interfaces.BenchmarkRunner
	logger    arbor.ILogger
}

func NewOrchestrator(
	engine *quality.Engine,
	storage interfaces.DatasetStorage,
	benchmark interfaces.BenchmarkRunner,
	logger arbor.ILogger,
) *Orchestrator {
	return &Orchestrator{
		engine:    engine,
		storage:   storage,
		benchmark: benchmark,
		logger:    logger,
	}
}

// Run profiles the table, applies the fix passes, persists the cleaned
// dataset and attaches benchmark results and query suggestions. Persistence
// failure fails the run; a failed benchmark or report update is carried in
// the report instead.
func (o *Orchestrator) Run(raw []byte, table *models.Table, opts models.PipelineOptions) (*models.PipelineResult, error) {
	before := profile.Snapshot(table)

	var cleaned *models.Table
	var fixes []models.FixDetail
	var conversions []models.TypeConversion
	tricks := []string{}

	if opts.AutoFix {
		applied := o.engine.Apply(table)
		cleaned = applied.Table
		fixes = applied.Fixes
		conversions = applied.TypeConversions
		tricks = models.TricksCovered
	} else {
		cleaned = table.Clone()
		fixes = []models.FixDetail{}
		conversions = []models.TypeConversion{}
	}

	after := profile.Snapshot(cleaned)

	report := &models.PipelineReport{
		CreatedAt:       time.Now().UTC(),
		SourceFile:      opts.SourceFile,
		TricksCovered:   tricks,
		Before:          before,
		After:           after,
		TypeConversions: conversions,
		FixesApplied:    fixes,
		QualityDelta: &models.QualityDelta{
			DuplicateRowsBefore: before.DuplicateRows,
			DuplicateRowsAfter:  after.DuplicateRows,
			MissingCellsBefore:  before.MissingCells,
			MissingCellsAfter:   after.MissingCells,
		},
		Ingestion: models.IngestionInfo{
			Mode:       opts.Mode,
			AutoFix:    opts.AutoFix,
			SourcePath: opts.SourcePath,
			JobID:      opts.JobID,
		},
	}

	meta, err := o.storage.Save(raw, cleaned, report)
	if err != nil {
		return nil, err
	}

	report.Benchmark = o.benchmark.Run(cleaned, meta.TablePath)
	report.QuerySuggestions = BuildQuerySuggestions(cleaned)

	if err := o.storage.UpdateReport(meta.DatasetID, report); err != nil && o.logger != nil {
		o.logger.Warn().
			Err(err).
			Str("dataset_id", meta.DatasetID).
			Msg("Report update after benchmark failed")
	}

	if o.logger != nil {
		o.logger.Info().
			Str("dataset_id", meta.DatasetID).
			Str("source", opts.SourceFile).
			Int("rows_before", before.Rows).
			Int("rows_after", after.Rows).
			Msg("Pipeline run completed")
	}

	return &models.PipelineResult{
		DatasetID:   meta.DatasetID,
		DatasetPath: meta.TablePath,
		Report:      report,
	}, nil
}
