package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/purgo/internal/models"
)

func TestReadTableBytes(t *testing.T) {
	raw := []byte("age,city\n25, NYC\n30,nyc\nNA,LA\n200,LA\n")

	table, err := ReadTableBytes("upload.csv", raw)

	require.NoError(t, err)
	assert.Equal(t, 4, table.RowCount())
	assert.Equal(t, []string{"age", "city"}, table.ColumnNames())
	assert.Equal(t, models.ColumnText, table.Columns[0].Type)
	assert.True(t, table.Columns[0].Values[2].IsNull())
	assert.Equal(t, " NYC", table.Columns[1].Values[0].Str)
}

func TestReadTableMissingMarkers(t *testing.T) {
	raw := []byte("v\n\nnull\nN/A\nnan\nNone\nvalue\n")

	table, err := ReadTableBytes("markers.csv", raw)

	require.NoError(t, err)
	require.Equal(t, 6, table.RowCount())
	for i := 0; i < 5; i++ {
		assert.True(t, table.Columns[0].Values[i].IsNull(), "row %d should be missing", i)
	}
	assert.Equal(t, "value", table.Columns[0].Values[5].Str)
}

func TestReadTableBytesEmptyPayload(t *testing.T) {
	_, err := ReadTableBytes("empty.csv", nil)

	var parseErr *models.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "empty.csv", parseErr.Path)
}

func TestReadTableBytesHeaderOnly(t *testing.T) {
	_, err := ReadTableBytes("header.csv", []byte("a,b,c\n"))

	var parseErr *models.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestReadTableBytesRaggedRow(t *testing.T) {
	_, err := ReadTableBytes("ragged.csv", []byte("a,b\n1,2\n3\n"))

	var parseErr *models.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestReadFileMissing(t *testing.T) {
	_, _, err := NewReader().ReadFile(filepath.Join(t.TempDir(), "nope.csv"))

	var parseErr *models.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadFileReturnsRawBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	payload := []byte("x\n1\n")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	raw, table, err := NewReader().ReadFile(path)

	require.NoError(t, err)
	assert.Equal(t, payload, raw)
	assert.Equal(t, 1, table.RowCount())
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("x\n1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.CSV"), []byte("x\n1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "c.csv"), []byte("x\n1\n"), 0o644))

	files, err := ListFiles(dir)

	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(dir, "a.CSV"), files[0].Path)
	assert.Equal(t, filepath.Join(dir, "b.csv"), files[1].Path)
	assert.Equal(t, filepath.Join(dir, "nested", "c.csv"), files[2].Path)
	assert.Regexp(t, `^\d+:\d+$`, files[0].Fingerprint)
}

func TestListFilesFingerprintChangesOnRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("x\n1\n"), 0o644))

	before, err := ListFiles(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("x\n1\n2\n"), 0o644))

	after, err := ListFiles(dir)
	require.NoError(t, err)
	assert.NotEqual(t, before[0].Fingerprint, after[0].Fingerprint)
}

func TestListFilesMissingDirectory(t *testing.T) {
	_, err := ListFiles(filepath.Join(t.TempDir(), "absent"))

	var dirErr *models.DirectoryError
	require.ErrorAs(t, err, &dirErr)
}
