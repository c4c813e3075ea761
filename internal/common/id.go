package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique batch job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewRunID generates a unique batch run ID with the "run_" prefix
func NewRunID() string {
	return "run_" + uuid.New().String()
}

// NewDatasetID generates a unique dataset ID with the "ds_" prefix
func NewDatasetID() string {
	return "ds_" + uuid.New().String()
}
