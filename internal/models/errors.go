package models

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the job store and scheduler
var (
	// ErrJobNotFound is returned when a job id does not exist
	ErrJobNotFound = errors.New("batch job not found")

	// ErrJobRunning is returned when a run is requested for a job that is
	// already running. Callers treat this as a no-op, not a failure.
	ErrJobRunning = errors.New("job is already running")
)

// ValidationError reports malformed job configuration
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return e.Reason
}

// DirectoryError reports an unreadable or missing watch directory. Fatal to
// the run that hit it, never to the scheduler.
type DirectoryError struct {
	Dir string
	Err error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("watch directory %s: %v", e.Dir, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// ParseError reports a single malformed input file. Recorded per file,
// non-fatal to the run.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError reports a failure persisting a cleaned dataset. The affected
// file is not counted as processed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("dataset storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
