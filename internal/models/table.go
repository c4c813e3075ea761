package models

import (
	"strconv"
	"strings"
	"time"
)

// ColumnType represents the declared type of a table column
type ColumnType string

// ColumnType constants
const (
	ColumnNumeric  ColumnType = "numeric"
	ColumnDatetime ColumnType = "datetime"
	ColumnText     ColumnType = "text"
)

// ValueKind discriminates the payload carried by a Value
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindNumber
	KindText
	KindTime
)

// Value is a single table cell. Exactly one payload field is meaningful,
// selected by Kind. A zero Value is a null cell.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
	Time time.Time
}

// Null returns a missing cell
func Null() Value {
	return Value{Kind: KindNull}
}

// Number returns a numeric cell
func Number(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// Text returns a text cell
func Text(s string) Value {
	return Value{Kind: KindText, Str: s}
}

// Timestamp returns a datetime cell
func Timestamp(t time.Time) Value {
	return Value{Kind: KindTime, Time: t}
}

// IsNull reports whether the cell is missing
func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// Canonical returns a stable string rendering of the cell, used for
// duplicate-row keys, category counting and CSV/SQL output. Distinct
// values always render distinctly.
func (v Value) Canonical() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindText:
		return v.Str
	case KindTime:
		return v.Time.UTC().Format(time.RFC3339Nano)
	default:
		return "\x00"
	}
}

// Column is a named, typed sequence of cells
type Column struct {
	Name   string     `json:"name"`
	Type   ColumnType `json:"type"`
	Values []Value    `json:"-"`
}

// Table is a column-oriented dataset. All columns hold the same number of
// values; row i is the i-th value of every column.
type Table struct {
	Columns []Column
}

// RowCount returns the number of rows
func (t *Table) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// ColumnCount returns the number of columns
func (t *Table) ColumnCount() int {
	return len(t.Columns)
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for i, col := range t.Columns {
		values := make([]Value, len(col.Values))
		copy(values, col.Values)
		out.Columns[i] = Column{Name: col.Name, Type: col.Type, Values: values}
	}
	return out
}

// ColumnNames returns the ordered column names
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// NumericColumnNames returns names of columns declared numeric, in order
func (t *Table) NumericColumnNames() []string {
	var names []string
	for _, col := range t.Columns {
		if col.Type == ColumnNumeric {
			names = append(names, col.Name)
		}
	}
	return names
}

// CategoricalColumnNames returns names of non-numeric columns, in order
func (t *Table) CategoricalColumnNames() []string {
	var names []string
	for _, col := range t.Columns {
		if col.Type != ColumnNumeric {
			names = append(names, col.Name)
		}
	}
	return names
}

// RowKey returns a canonical key for row i across all columns, including
// missing markers, so full-row equality reduces to key equality.
func (t *Table) RowKey(i int) string {
	var sb strings.Builder
	for c := range t.Columns {
		if c > 0 {
			sb.WriteByte(0x1f)
		}
		sb.WriteString(t.Columns[c].Values[i].Canonical())
	}
	return sb.String()
}

// MissingCells counts missing cells across the whole table
func (t *Table) MissingCells() int {
	total := 0
	for _, col := range t.Columns {
		for _, v := range col.Values {
			if v.IsNull() {
				total++
			}
		}
	}
	return total
}
