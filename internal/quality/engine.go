// Package quality implements the seven-pass data-quality fix engine. The
// passes run in a fixed order, each consuming the table produced by the one
// before it, and every run emits exactly one FixDetail per pass whether or
// not the pass found work to do.
//
// Re-running the engine on its own output is a near-fixed-point: type
// inference, deduplication, normalization and correlation detection are
// exactly idempotent, and imputation and capping are idempotent once their
// targets are gone. The log1p skew transform is not: a second run
// double-transforms columns that still exceed the skew threshold after the
// first transform.
package quality

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/purgo/internal/models"
)

const (
	// skewThreshold is the absolute skewness above which a non-negative
	// numeric column is log1p-transformed
	skewThreshold = 1.0

	// correlationThreshold flags redundant numeric column pairs
	correlationThreshold = 0.9

	// iqrMultiplier scales the interquartile range for outlier bounds
	iqrMultiplier = 1.5

	// correlationDetailLimit caps the pairs listed in the fix detail
	correlationDetailLimit = 20
)

// Engine applies the ordered fix passes to a table
type Engine struct {
	logger arbor.ILogger
}

// NewEngine creates a quality fix engine
func NewEngine(logger arbor.ILogger) *Engine {
	return &Engine{logger: logger}
}

// Result is the outcome of a full engine run
type Result struct {
	Table           *models.Table
	Fixes           []models.FixDetail
	TypeConversions []models.TypeConversion
}

// Apply runs the seven fix passes over a copy of the input table. The input
// is never mutated.
func (e *Engine) Apply(t *models.Table) *Result {
	working := t.Clone()

	conversions, typeFix := inferTypes(working)
	dedupeFix := dropDuplicates(working)
	fillFix := fillMissing(working)
	outlierFix := capOutliers(working)
	normalizeFix := normalizeCategories(working)
	skewFix := transformSkewed(working)
	correlationFix := detectCorrelated(working)

	fixes := []models.FixDetail{
		typeFix,
		dedupeFix,
		fillFix,
		outlierFix,
		normalizeFix,
		skewFix,
		correlationFix,
	}

	if e.logger != nil {
		e.logger.Debug().
			Int("type_conversions", len(conversions)).
			Int("duplicates_removed", *dedupeFix.DuplicatesRemoved).
			Int("cells_filled", *fillFix.RowsImpacted).
			Int("cells_capped", *outlierFix.RowsImpacted).
			Int("correlated_pairs", *correlationFix.PairsFound).
			Msg("Quality fix passes completed")
	}

	return &Result{
		Table:           working,
		Fixes:           fixes,
		TypeConversions: conversions,
	}
}
