// Package benchmark times the canonical aggregate query over a cleaned
// dataset through two engines: a native in-memory scan of the table and SQL
// against the persisted SQLite file. The two result sets should agree; the
// timings show the relative cost.
package benchmark

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ternarybob/purgo/internal/datasets"
	"github.com/ternarybob/purgo/internal/models"
	"github.com/ternarybob/purgo/internal/stats"
)

// Runner executes the canonical benchmark query both ways
type Runner struct{}

func NewRunner() *Runner {
	return &Runner{}
}

// Run benchmarks the table against its persisted SQLite copy at tablePath.
// The returned result carries an error message instead of failing when
// either engine cannot complete.
func (r *Runner) Run(t *models.Table, tablePath string) *models.BenchmarkResult {
	numericCol := firstNumericColumn(t)
	query := canonicalQuery(numericCol)
	result := &models.BenchmarkResult{Query: query}

	start := time.Now()
	native := nativeMetrics(t, numericCol)
	result.NativeMs = stats.Round3(float64(time.Since(start).Microseconds()) / 1000.0)
	result.NativeResult = native

	start = time.Now()
	sqlMetrics, err := sqlQuery(tablePath, numericCol)
	result.SQLMs = stats.Round3(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.SQLResult = sqlMetrics

	return result
}

func canonicalQuery(numericCol string) string {
	if numericCol == "" {
		return fmt.Sprintf("SELECT COUNT(*) FROM %s", datasets.CleanedTableName)
	}
	return fmt.Sprintf("SELECT COUNT(*), AVG(%s) FROM %s", datasets.QuoteIdent(numericCol), datasets.CleanedTableName)
}

func firstNumericColumn(t *models.Table) string {
	for _, col := range t.Columns {
		if col.Type == models.ColumnNumeric {
			return col.Name
		}
	}
	return ""
}

func nativeMetrics(t *models.Table, numericCol string) models.BenchmarkMetrics {
	metrics := models.BenchmarkMetrics{RowCount: int64(t.RowCount())}
	if numericCol == "" {
		return metrics
	}
	for _, col := range t.Columns {
		if col.Name != numericCol {
			continue
		}
		sum := 0.0
		n := 0
		for _, v := range col.Values {
			if v.Kind == models.KindNumber {
				sum += v.Num
				n++
			}
		}
		if n > 0 {
			mean := sum / float64(n)
			metrics.MeanValue = &mean
		}
	}
	return metrics
}

func sqlQuery(tablePath, numericCol string) (models.BenchmarkMetrics, error) {
	var metrics models.BenchmarkMetrics

	db, err := sql.Open("sqlite", tablePath)
	if err != nil {
		return metrics, fmt.Errorf("opening dataset db: %w", err)
	}
	defer db.Close()

	if numericCol == "" {
		err = db.QueryRow(canonicalQuery("")).Scan(&metrics.RowCount)
	} else {
		var mean sql.NullFloat64
		err = db.QueryRow(canonicalQuery(numericCol)).Scan(&metrics.RowCount, &mean)
		if mean.Valid {
			metrics.MeanValue = &mean.Float64
		}
	}
	if err != nil {
		return models.BenchmarkMetrics{}, fmt.Errorf("running benchmark query: %w", err)
	}
	return metrics, nil
}
