package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/purgo/internal/ingest"
	"github.com/ternarybob/purgo/internal/interfaces"
	"github.com/ternarybob/purgo/internal/models"
)

// maxUploadBytes caps the accepted CSV payload at 64 MiB
const maxUploadBytes = 64 << 20

// DatasetHandler serves interactive uploads and dataset browsing
type DatasetHandler struct {
	pipeline interfaces.PipelineService
	storage  interfaces.DatasetStorage
	logger   arbor.ILogger
}

func NewDatasetHandler(pipeline interfaces.PipelineService, storage interfaces.DatasetStorage, logger arbor.ILogger) *DatasetHandler {
	return &DatasetHandler{
		pipeline: pipeline,
		storage:  storage,
		logger:   logger,
	}
}

// UploadHandler ingests a CSV file from a multipart form. auto_fix defaults
// to true; pass auto_fix=false to store the table untouched.
func (h *DatasetHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return
	}

	table, err := ingest.ReadTableBytes(header.Filename, raw)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	autoFix := !strings.EqualFold(r.FormValue("auto_fix"), "false")

	result, err := h.pipeline.Run(raw, table, models.PipelineOptions{
		SourceFile: header.Filename,
		AutoFix:    autoFix,
		Mode:       "upload",
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	h.logger.Info().
		Str("dataset_id", result.DatasetID).
		Str("source", header.Filename).
		Bool("auto_fix", autoFix).
		Msg("Upload ingested")

	WriteJSON(w, http.StatusOK, result)
}

// ListDatasetsHandler returns summaries for all stored datasets
func (h *DatasetHandler) ListDatasetsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	list, err := h.storage.List()
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"datasets": list,
		"count":    len(list),
	})
}

// GetReportHandler returns one dataset's full pipeline report
func (h *DatasetHandler) GetReportHandler(w http.ResponseWriter, r *http.Request, datasetID string) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	report, err := h.storage.GetReport(datasetID)
	if err != nil {
		WriteError(w, http.StatusNotFound, "dataset not found: "+datasetID)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}
