// Package profile computes structural and statistical snapshots of tables.
// Snapshot is a pure function: it never mutates its input and two calls on
// the same table produce identical results.
package profile

import (
	"math"
	"sort"

	"github.com/ternarybob/purgo/internal/models"
	"github.com/ternarybob/purgo/internal/stats"
)

const (
	// topValueLimit bounds the per-column category summary
	topValueLimit = 10

	// correlationThreshold is the absolute Pearson correlation above which
	// a column pair is reported as redundant
	correlationThreshold = 0.9

	// missingLabel is the category bucket for missing cells
	missingLabel = "<missing>"
)

// Snapshot profiles a table
func Snapshot(t *models.Table) *models.TableSnapshot {
	rows := t.RowCount()

	snapshot := &models.TableSnapshot{
		Rows:                 rows,
		Columns:              t.ColumnCount(),
		DuplicateRows:        countDuplicateRows(t),
		MissingCells:         t.MissingCells(),
		ColumnProfile:        make([]models.ColumnProfile, 0, t.ColumnCount()),
		NumericSummary:       []models.NumericSummary{},
		CategoricalSummary:   []models.CategorySummary{},
		HighCorrelationPairs: HighCorrelations(t, correlationThreshold),
	}

	for _, col := range t.Columns {
		missing := 0
		for _, v := range col.Values {
			if v.IsNull() {
				missing++
			}
		}
		pct := 0.0
		if rows > 0 {
			pct = stats.Round2(float64(missing) / float64(rows) * 100)
		}
		snapshot.ColumnProfile = append(snapshot.ColumnProfile, models.ColumnProfile{
			Name:       col.Name,
			Type:       col.Type,
			Missing:    missing,
			MissingPct: pct,
			Unique:     countDistinct(col),
		})

		if col.Type == models.ColumnNumeric {
			snapshot.NumericSummary = append(snapshot.NumericSummary, numericSummary(col))
		} else {
			snapshot.CategoricalSummary = append(snapshot.CategoricalSummary, categorySummary(col))
		}
	}

	return snapshot
}

// countDuplicateRows counts rows that are exact copies of an earlier row,
// comparing every column including missing markers
func countDuplicateRows(t *models.Table) int {
	rows := t.RowCount()
	if rows == 0 {
		return 0
	}
	seen := make(map[string]struct{}, rows)
	duplicates := 0
	for i := 0; i < rows; i++ {
		key := t.RowKey(i)
		if _, ok := seen[key]; ok {
			duplicates++
		} else {
			seen[key] = struct{}{}
		}
	}
	return duplicates
}

// countDistinct counts distinct non-missing values in a column
func countDistinct(col models.Column) int {
	seen := make(map[string]struct{})
	for _, v := range col.Values {
		if v.IsNull() {
			continue
		}
		seen[v.Canonical()] = struct{}{}
	}
	return len(seen)
}

func numericSummary(col models.Column) models.NumericSummary {
	values := NumericValues(col)

	summary := models.NumericSummary{Column: col.Name, Count: len(values)}
	if mean, ok := stats.Mean(values); ok {
		summary.Mean = &mean
	}
	if median, ok := stats.Median(values); ok {
		summary.Median = &median
	}
	if std, ok := stats.SampleStd(values); ok {
		summary.Std = &std
	}
	if min, max, ok := stats.MinMax(values); ok {
		summary.Min = &min
		summary.Max = &max
	}
	if skew, ok := stats.Skewness(values); ok {
		summary.Skew = &skew
	}
	return summary
}

func categorySummary(col models.Column) models.CategorySummary {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, v := range col.Values {
		label := missingLabel
		if !v.IsNull() {
			label = v.Canonical()
		}
		if _, ok := counts[label]; !ok {
			order = append(order, label)
		}
		counts[label]++
	}

	// Descending count; stable sort keeps ties in first-encountered order
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topValueLimit {
		order = order[:topValueLimit]
	}

	top := make([]models.ValueCount, 0, len(order))
	for _, label := range order {
		top = append(top, models.ValueCount{Value: label, Count: counts[label]})
	}
	return models.CategorySummary{Column: col.Name, TopValues: top}
}

// NumericValues extracts the non-missing numeric values of a column
func NumericValues(col models.Column) []float64 {
	values := make([]float64, 0, len(col.Values))
	for _, v := range col.Values {
		if v.Kind == models.KindNumber {
			values = append(values, v.Num)
		}
	}
	return values
}

// HighCorrelations computes pairwise Pearson correlations across numeric
// columns and returns pairs at or above the threshold, strongest first.
func HighCorrelations(t *models.Table, threshold float64) []models.CorrelationPair {
	var numeric []models.Column
	for _, col := range t.Columns {
		if col.Type == models.ColumnNumeric {
			numeric = append(numeric, col)
		}
	}
	if len(numeric) < 2 {
		return []models.CorrelationPair{}
	}

	rows := t.RowCount()
	series := make([][]float64, len(numeric))
	for i, col := range numeric {
		s := make([]float64, rows)
		for j, v := range col.Values {
			if v.Kind == models.KindNumber {
				s[j] = v.Num
			} else {
				s[j] = math.NaN()
			}
		}
		series[i] = s
	}

	pairs := []models.CorrelationPair{}
	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			r, ok := stats.Pearson(series[i], series[j])
			if !ok || math.Abs(r) < threshold {
				continue
			}
			pairs = append(pairs, models.CorrelationPair{
				FeatureA:    numeric[i].Name,
				FeatureB:    numeric[j].Name,
				Correlation: stats.Round4(r),
			})
		}
	}

	// Strongest correlations first; insertion sort keeps ties stable
	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && math.Abs(pairs[j].Correlation) > math.Abs(pairs[j-1].Correlation); j-- {
			pairs[j], pairs[j-1] = pairs[j-1], pairs[j]
		}
	}
	return pairs
}
