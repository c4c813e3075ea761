package quality

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/purgo/internal/models"
	"github.com/ternarybob/purgo/internal/profile"
	"github.com/ternarybob/purgo/internal/stats"
)

// datetimeLayouts are tried in order during type inference
var datetimeLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func intPtr(n int) *int { return &n }

// inferTypes coerces text columns to numeric, then datetime, leaving the
// column untouched unless every non-missing value parses
func inferTypes(t *models.Table) ([]models.TypeConversion, models.FixDetail) {
	conversions := []models.TypeConversion{}

	for i := range t.Columns {
		col := &t.Columns[i]
		if col.Type != models.ColumnText {
			continue
		}

		hasValues := false
		for _, v := range col.Values {
			if !v.IsNull() {
				hasValues = true
				break
			}
		}
		if !hasValues {
			continue
		}

		if numbers, ok := parseAllNumeric(col.Values); ok {
			col.Type = models.ColumnNumeric
			col.Values = numbers
			conversions = append(conversions, models.TypeConversion{
				Column: col.Name, From: models.ColumnText, To: models.ColumnNumeric,
			})
			continue
		}

		if times, ok := parseAllDatetime(col.Values); ok {
			col.Type = models.ColumnDatetime
			col.Values = times
			conversions = append(conversions, models.TypeConversion{
				Column: col.Name, From: models.ColumnText, To: models.ColumnDatetime,
			})
		}
	}

	return conversions, models.FixDetail{
		Operation:      models.OpTypeInference,
		ColumnsTouched: intPtr(len(conversions)),
		Detail:         conversions,
	}
}

func parseAllNumeric(values []models.Value) ([]models.Value, bool) {
	out := make([]models.Value, len(values))
	for i, v := range values {
		if v.IsNull() {
			out[i] = models.Null()
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		out[i] = models.Number(f)
	}
	return out, true
}

func parseAllDatetime(values []models.Value) ([]models.Value, bool) {
	out := make([]models.Value, len(values))
	for i, v := range values {
		if v.IsNull() {
			out[i] = models.Null()
			continue
		}
		parsed, ok := parseDatetime(strings.TrimSpace(v.Str))
		if !ok {
			return nil, false
		}
		out[i] = models.Timestamp(parsed)
	}
	return out, true
}

func parseDatetime(s string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// dropDuplicates removes rows that exactly duplicate an earlier row,
// keeping first occurrences in stable order
func dropDuplicates(t *models.Table) models.FixDetail {
	rows := t.RowCount()
	seen := make(map[string]struct{}, rows)
	keep := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		key := t.RowKey(i)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}

	removed := rows - len(keep)
	if removed > 0 {
		for c := range t.Columns {
			values := make([]models.Value, len(keep))
			for j, idx := range keep {
				values[j] = t.Columns[c].Values[idx]
			}
			t.Columns[c].Values = values
		}
	}

	return models.FixDetail{
		Operation:         models.OpRemoveDuplicates,
		DuplicatesRemoved: intPtr(removed),
	}
}

type fillDetail struct {
	FilledByColumn map[string]int `json:"filled_by_column"`
	AllMissing     []string       `json:"unfilled_all_missing,omitempty"`
}

// fillMissing imputes missing cells: numeric columns take the column
// median, other columns the mode with ties broken by first encounter.
// Columns that are entirely missing are left alone and flagged.
func fillMissing(t *models.Table) models.FixDetail {
	detail := fillDetail{FilledByColumn: map[string]int{}}
	columnsTouched := 0
	cellsFilled := 0

	for i := range t.Columns {
		col := &t.Columns[i]
		missing := 0
		for _, v := range col.Values {
			if v.IsNull() {
				missing++
			}
		}
		if missing == 0 {
			continue
		}
		if missing == len(col.Values) {
			detail.AllMissing = append(detail.AllMissing, col.Name)
			continue
		}

		var fill models.Value
		if col.Type == models.ColumnNumeric {
			median, _ := stats.Median(profile.NumericValues(*col))
			fill = models.Number(median)
		} else {
			fill = modeValue(col.Values)
		}

		for j, v := range col.Values {
			if v.IsNull() {
				col.Values[j] = fill
			}
		}
		detail.FilledByColumn[col.Name] = missing
		columnsTouched++
		cellsFilled += missing
	}

	return models.FixDetail{
		Operation:      models.OpFillMissing,
		ColumnsTouched: intPtr(columnsTouched),
		RowsImpacted:   intPtr(cellsFilled),
		Detail:         detail,
	}
}

// modeValue returns the most frequent non-missing value, preferring the
// first encountered on ties. Callers guarantee at least one non-missing
// value exists.
func modeValue(values []models.Value) models.Value {
	counts := make(map[string]int)
	first := make(map[string]models.Value)
	order := make([]string, 0)
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		key := v.Canonical()
		if _, ok := counts[key]; !ok {
			order = append(order, key)
			first[key] = v
		}
		counts[key]++
	}

	best := order[0]
	for _, key := range order[1:] {
		if counts[key] > counts[best] {
			best = key
		}
	}
	return first[best]
}

// capOutliers clips numeric values outside Q1-1.5*IQR .. Q3+1.5*IQR.
// Columns with zero IQR are skipped.
func capOutliers(t *models.Table) models.FixDetail {
	outliersByColumn := map[string]int{}
	cellsClipped := 0

	for i := range t.Columns {
		col := &t.Columns[i]
		if col.Type != models.ColumnNumeric {
			continue
		}
		values := profile.NumericValues(*col)
		q1, ok1 := stats.Quantile(values, 0.25)
		q3, ok3 := stats.Quantile(values, 0.75)
		if !ok1 || !ok3 {
			continue
		}
		iqr := q3 - q1
		if iqr == 0 {
			continue
		}

		lower := q1 - iqrMultiplier*iqr
		upper := q3 + iqrMultiplier*iqr

		clipped := 0
		for j, v := range col.Values {
			if v.Kind != models.KindNumber {
				continue
			}
			switch {
			case v.Num < lower:
				col.Values[j] = models.Number(lower)
				clipped++
			case v.Num > upper:
				col.Values[j] = models.Number(upper)
				clipped++
			}
		}
		if clipped > 0 {
			outliersByColumn[col.Name] = clipped
			cellsClipped += clipped
		}
	}

	return models.FixDetail{
		Operation:      models.OpCapOutliers,
		ColumnsTouched: intPtr(len(outliersByColumn)),
		RowsImpacted:   intPtr(cellsClipped),
		Detail:         outliersByColumn,
	}
}

type normalizeColumnDetail struct {
	CellsChanged      int `json:"cells_changed"`
	DistinctCollapsed int `json:"distinct_collapsed"`
}

// normalizeCategories trims surrounding whitespace, collapses internal
// whitespace runs and lowercases text values, so categories differing only
// by spacing or case merge into one
func normalizeCategories(t *models.Table) models.FixDetail {
	changes := map[string]normalizeColumnDetail{}
	cellsChanged := 0

	for i := range t.Columns {
		col := &t.Columns[i]
		if col.Type != models.ColumnText {
			continue
		}

		distinctBefore := distinctCount(col.Values)
		changed := 0
		for j, v := range col.Values {
			if v.IsNull() {
				continue
			}
			normalized := strings.ToLower(whitespaceRun.ReplaceAllString(strings.TrimSpace(v.Str), " "))
			if normalized != v.Str {
				col.Values[j] = models.Text(normalized)
				changed++
			}
		}
		if changed == 0 {
			continue
		}

		changes[col.Name] = normalizeColumnDetail{
			CellsChanged:      changed,
			DistinctCollapsed: distinctBefore - distinctCount(col.Values),
		}
		cellsChanged += changed
	}

	return models.FixDetail{
		Operation:      models.OpNormalizeText,
		ColumnsTouched: intPtr(len(changes)),
		RowsImpacted:   intPtr(cellsChanged),
		Detail:         changes,
	}
}

func distinctCount(values []models.Value) int {
	seen := make(map[string]struct{})
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		seen[v.Canonical()] = struct{}{}
	}
	return len(seen)
}

// transformSkewed applies log1p to numeric columns whose post-capping
// skewness magnitude exceeds the threshold and whose values are all
// non-negative
func transformSkewed(t *models.Table) models.FixDetail {
	transformed := []string{}

	for i := range t.Columns {
		col := &t.Columns[i]
		if col.Type != models.ColumnNumeric {
			continue
		}
		values := profile.NumericValues(*col)
		skew, ok := stats.Skewness(values)
		if !ok || math.Abs(skew) < skewThreshold {
			continue
		}
		min, _, _ := stats.MinMax(values)
		if min < 0 {
			continue
		}

		for j, v := range col.Values {
			if v.Kind == models.KindNumber {
				col.Values[j] = models.Number(math.Log1p(v.Num))
			}
		}
		transformed = append(transformed, col.Name)
	}

	return models.FixDetail{
		Operation:      models.OpLogTransform,
		ColumnsTouched: intPtr(len(transformed)),
		Detail:         transformed,
	}
}

// detectCorrelated flags highly correlated numeric column pairs without
// mutating the table
func detectCorrelated(t *models.Table) models.FixDetail {
	pairs := profile.HighCorrelations(t, correlationThreshold)

	detail := pairs
	if len(detail) > correlationDetailLimit {
		detail = detail[:correlationDetailLimit]
	}

	return models.FixDetail{
		Operation:  models.OpCorrelation,
		PairsFound: intPtr(len(pairs)),
		Detail:     detail,
	}
}
