package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/purgo/internal/interfaces"
	"github.com/ternarybob/purgo/internal/models"
)

// BatchHandler serves batch job CRUD, manual triggers and run history
type BatchHandler struct {
	scheduler interfaces.SchedulerService
	logger    arbor.ILogger
}

func NewBatchHandler(scheduler interfaces.SchedulerService, logger arbor.ILogger) *BatchHandler {
	return &BatchHandler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// ListJobsHandler returns all batch jobs
func (h *BatchHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.scheduler.ListJobs(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// CreateJobHandler registers a new batch job
func (h *BatchHandler) CreateJobHandler(w http.ResponseWriter, r *http.Request) {
	var config models.JobConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid job payload: "+err.Error())
		return
	}

	job, err := h.scheduler.CreateJob(r.Context(), &config)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}

// GetJobHandler returns one job by id
func (h *BatchHandler) GetJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.scheduler.GetJob(r.Context(), jobID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// UpdateJobHandler applies a partial configuration update
func (h *BatchHandler) UpdateJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	var update models.JobUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid update payload: "+err.Error())
		return
	}

	job, err := h.scheduler.UpdateJob(r.Context(), jobID, &update)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// DeleteJobHandler removes a job
func (h *BatchHandler) DeleteJobHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	if err := h.scheduler.DeleteJob(r.Context(), jobID); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteSuccess(w, "job deleted")
}

// TriggerRunHandler starts a run immediately and returns the finished run.
// A job already mid-run yields 409.
func (h *BatchHandler) TriggerRunHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	run, err := h.scheduler.TriggerRun(r.Context(), jobID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, run)
}

// ListJobRunsHandler returns one job's run history most-recent-first
func (h *BatchHandler) ListJobRunsHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	// surface not-found before an empty history
	if _, err := h.scheduler.GetJob(r.Context(), jobID); err != nil {
		WriteDomainError(w, err)
		return
	}

	runs, err := h.scheduler.ListRunsByJob(r.Context(), jobID, GetLimitParam(r))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// ListRunsHandler returns run history across all jobs most-recent-first
func (h *BatchHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	runs, err := h.scheduler.ListRuns(r.Context(), GetLimitParam(r))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}
