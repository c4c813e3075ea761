// Package datasets persists pipeline outputs. Each dataset gets its own
// directory holding the raw upload, the cleaned table as a SQLite database
// and the pipeline report as JSON.
package datasets

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/purgo/internal/common"
	"github.com/ternarybob/purgo/internal/models"
)

const (
	rawFileName    = "original.csv"
	tableFileName  = "cleaned.db"
	reportFileName = "report.json"

	// CleanedTableName is the table the cleaned data lands in inside the
	// per-dataset SQLite file
	CleanedTableName = "dataset"
)

// Meta locates the artifacts of one persisted dataset
type Meta struct {
	DatasetID  string `json:"dataset_id"`
	RawPath    string `json:"raw_csv_path"`
	TablePath  string `json:"table_path"`
	ReportPath string `json:"report_path"`
}

// Summary is one row of the dataset listing
type Summary struct {
	DatasetID string    `json:"dataset_id"`
	Rows      int       `json:"rows"`
	Columns   int       `json:"columns"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source_file"`
}

// Store writes and reads datasets under a single root directory
type Store struct {
	root   string
	logger arbor.ILogger
}

func NewStore(root string, logger arbor.ILogger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &models.StorageError{Op: "create storage root", Err: err}
	}
	return &Store{root: root, logger: logger}, nil
}

// Save persists a new dataset: the raw CSV bytes, the cleaned table and the
// report. The report can be updated later once benchmark results exist.
func (s *Store) Save(raw []byte, cleaned *models.Table, report *models.PipelineReport) (*Meta, error) {
	id := common.NewDatasetID()
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &models.StorageError{Op: "create dataset dir", Err: err}
	}

	meta := &Meta{
		DatasetID:  id,
		RawPath:    filepath.Join(dir, rawFileName),
		TablePath:  filepath.Join(dir, tableFileName),
		ReportPath: filepath.Join(dir, reportFileName),
	}

	if err := os.WriteFile(meta.RawPath, raw, 0o644); err != nil {
		return nil, &models.StorageError{Op: "write raw csv", Err: err}
	}
	if err := writeTableDB(meta.TablePath, cleaned); err != nil {
		return nil, &models.StorageError{Op: "write cleaned table", Err: err}
	}
	if err := s.writeReport(meta.ReportPath, report); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Debug().
			Str("dataset_id", id).
			Int("rows", cleaned.RowCount()).
			Msg("Dataset persisted")
	}
	return meta, nil
}

// UpdateReport rewrites an existing dataset's report
func (s *Store) UpdateReport(datasetID string, report *models.PipelineReport) error {
	path := filepath.Join(s.root, datasetID, reportFileName)
	if _, err := os.Stat(path); err != nil {
		return &models.StorageError{Op: "locate report", Err: err}
	}
	return s.writeReport(path, report)
}

func (s *Store) writeReport(path string, report *models.PipelineReport) error {
	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return &models.StorageError{Op: "encode report", Err: err}
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return &models.StorageError{Op: "write report", Err: err}
	}
	return nil
}

// List returns a summary per stored dataset, newest id first. Directories
// without a readable report are skipped.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, &models.StorageError{Op: "read storage root", Err: err}
	}

	summaries := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		report, err := s.GetReport(entry.Name())
		if err != nil {
			continue
		}
		summaries = append(summaries, Summary{
			DatasetID: entry.Name(),
			Rows:      report.After.Rows,
			Columns:   report.After.Columns,
			CreatedAt: report.CreatedAt,
			Source:    report.SourceFile,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].DatasetID > summaries[j].DatasetID
	})
	return summaries, nil
}

// GetReport loads one dataset's report
func (s *Store) GetReport(datasetID string) (*models.PipelineReport, error) {
	payload, err := os.ReadFile(filepath.Join(s.root, datasetID, reportFileName))
	if err != nil {
		return nil, &models.StorageError{Op: "read report", Err: err}
	}
	var report models.PipelineReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, &models.StorageError{Op: "decode report", Err: err}
	}
	return &report, nil
}

// TablePath returns the cleaned-table database path for a dataset
func (s *Store) TablePath(datasetID string) (string, error) {
	path := filepath.Join(s.root, datasetID, tableFileName)
	if _, err := os.Stat(path); err != nil {
		return "", &models.StorageError{Op: "locate cleaned table", Err: err}
	}
	return path, nil
}

// writeTableDB materializes the table into a fresh SQLite file so the
// cleaned data is queryable with plain SQL
func writeTableDB(path string, t *models.Table) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	columns := make([]string, len(t.Columns))
	placeholders := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		columns[i] = fmt.Sprintf("%s %s", QuoteIdent(col.Name), sqliteType(col.Type))
		placeholders[i] = "?"
	}

	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", CleanedTableName, strings.Join(columns, ", "))
	if _, err := db.Exec(ddl); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT INTO %s VALUES (%s)", CleanedTableName, strings.Join(placeholders, ", ")))
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	rows := t.RowCount()
	args := make([]any, len(t.Columns))
	for i := 0; i < rows; i++ {
		for c, col := range t.Columns {
			args[c] = sqliteValue(col.Values[i])
		}
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func sqliteType(t models.ColumnType) string {
	if t == models.ColumnNumeric {
		return "REAL"
	}
	return "TEXT"
}

func sqliteValue(v models.Value) any {
	switch v.Kind {
	case models.KindNumber:
		return v.Num
	case models.KindText:
		return v.Str
	case models.KindTime:
		return v.Canonical()
	default:
		return nil
	}
}

// QuoteIdent quotes a column name for SQL, doubling embedded quotes
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
