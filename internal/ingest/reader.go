// Package ingest reads raw CSV files into tables and scans watch
// directories for ingestible files.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ternarybob/purgo/internal/models"
)

// missingMarkers are cell renderings treated as missing, matched
// case-insensitively after trimming
var missingMarkers = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"null": {},
	"none": {},
	"nan":  {},
}

// Reader parses CSV files into tables
type Reader struct{}

func NewReader() *Reader {
	return &Reader{}
}

// ReadFile parses the CSV file at path, returning both the raw bytes and
// the table. All columns start as text; type inference happens downstream.
func (r *Reader) ReadFile(path string) ([]byte, *models.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &models.ParseError{Path: path, Err: err}
	}
	table, err := readTable(path, raw)
	if err != nil {
		return nil, nil, err
	}
	return raw, table, nil
}

// ReadTableBytes parses an in-memory CSV payload, typically an HTTP upload.
// The source name is only used for error attribution.
func ReadTableBytes(source string, raw []byte) (*models.Table, error) {
	return readTable(source, raw)
}

func readTable(source string, raw []byte) (*models.Table, error) {
	if len(raw) == 0 {
		return nil, &models.ParseError{Path: source, Err: errors.New("file is empty")}
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.TrimLeadingSpace = false

	header, err := reader.Read()
	if err != nil {
		return nil, &models.ParseError{Path: source, Err: fmt.Errorf("reading header: %w", err)}
	}

	table := &models.Table{Columns: make([]models.Column, len(header))}
	for i, name := range header {
		table.Columns[i] = models.Column{
			Name: strings.TrimSpace(name),
			Type: models.ColumnText,
		}
	}

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &models.ParseError{Path: source, Err: fmt.Errorf("row %d: %w", rows+1, err)}
		}
		for i := range table.Columns {
			table.Columns[i].Values = append(table.Columns[i].Values, parseCell(record[i]))
		}
		rows++
	}

	if rows == 0 {
		return nil, &models.ParseError{Path: source, Err: errors.New("no data rows")}
	}

	return table, nil
}

func parseCell(raw string) models.Value {
	if _, missing := missingMarkers[strings.ToLower(strings.TrimSpace(raw))]; missing {
		return models.Null()
	}
	return models.Text(raw)
}
