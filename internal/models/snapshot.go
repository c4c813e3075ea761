package models

// ColumnProfile describes one column in a profiled table
type ColumnProfile struct {
	Name       string     `json:"name"`
	Type       ColumnType `json:"dtype"`
	Missing    int        `json:"missing"`
	MissingPct float64    `json:"missing_pct"`
	Unique     int        `json:"unique"`
}

// NumericSummary holds descriptive statistics for a numeric column.
// Pointer fields are nil when the column has no non-missing values;
// Skew is additionally nil below 3 values or at zero variance.
type NumericSummary struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Skew   *float64 `json:"skew"`
}

// ValueCount is one category bucket with its frequency
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// CategorySummary reports the most frequent values of a non-numeric column,
// ordered by descending count with ties in first-encountered order.
type CategorySummary struct {
	Column    string       `json:"column"`
	TopValues []ValueCount `json:"top_values"`
}

// CorrelationPair is a pair of numeric columns whose absolute Pearson
// correlation crossed the reporting threshold
type CorrelationPair struct {
	FeatureA    string  `json:"feature_a"`
	FeatureB    string  `json:"feature_b"`
	Correlation float64 `json:"correlation"`
}

// TableSnapshot is an immutable structural and statistical profile of a
// table, produced once before and once after a pipeline run.
type TableSnapshot struct {
	Rows                 int               `json:"rows"`
	Columns              int               `json:"columns"`
	DuplicateRows        int               `json:"duplicate_rows"`
	MissingCells         int               `json:"missing_cells"`
	ColumnProfile        []ColumnProfile   `json:"column_profile"`
	NumericSummary       []NumericSummary  `json:"numeric_summary"`
	CategoricalSummary   []CategorySummary `json:"categorical_summary"`
	HighCorrelationPairs []CorrelationPair `json:"high_correlation_pairs"`
}
