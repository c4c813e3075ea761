package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ternarybob/purgo/internal/models"
)

// ingestibleExtension selects the files a watch-directory scan considers
const ingestibleExtension = ".csv"

// FileEntry is one ingestible file found in a watch directory
type FileEntry struct {
	Path        string
	Fingerprint string
}

// Scanner enumerates watch directories
type Scanner struct{}

func NewScanner() *Scanner {
	return &Scanner{}
}

func (s *Scanner) ListFiles(dir string) ([]FileEntry, error) {
	return ListFiles(dir)
}

// ListFiles walks dir recursively and returns the ingestible files sorted by
// path. The fingerprint is modification time in nanoseconds joined with the
// byte size, so either a rewrite or a touch marks the file changed.
func ListFiles(dir string) ([]FileEntry, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, &models.DirectoryError{Dir: dir, Err: err}
	}

	var files []FileEntry
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ingestibleExtension) {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		files = append(files, FileEntry{
			Path:        path,
			Fingerprint: fmt.Sprintf("%d:%d", info.ModTime().UnixNano(), info.Size()),
		})
		return nil
	})
	if err != nil {
		return nil, &models.DirectoryError{Dir: dir, Err: err}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
