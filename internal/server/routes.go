package server

import (
	"net/http"
	"strings"

	"github.com/ternarybob/purgo/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// System endpoints
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)

	// Interactive ingestion and dataset browsing
	mux.HandleFunc("/api/upload", s.app.DatasetHandler.UploadHandler)
	mux.HandleFunc("/api/datasets", s.app.DatasetHandler.ListDatasetsHandler)
	mux.HandleFunc("/api/datasets/", s.handleDatasetRoutes) // GET /{id}/report

	// Batch jobs
	mux.HandleFunc("/api/batch/jobs", s.handleJobsRoute)  // GET (list), POST (create)
	mux.HandleFunc("/api/batch/jobs/", s.handleJobRoutes) // GET/PUT/DELETE /{id}, POST /{id}/run, GET /{id}/runs
	mux.HandleFunc("/api/batch/runs", s.app.BatchHandler.ListRunsHandler)

	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleDatasetRoutes dispatches /api/datasets/{id}/report
func (s *Server) handleDatasetRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/datasets/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	if len(parts) == 2 && parts[1] == "report" && parts[0] != "" {
		s.app.DatasetHandler.GetReportHandler(w, r, parts[0])
		return
	}
	s.app.APIHandler.NotFoundHandler(w, r)
}

// handleJobsRoute dispatches the job collection endpoint by method
func (s *Server) handleJobsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.BatchHandler.ListJobsHandler(w, r)
	case http.MethodPost:
		s.app.BatchHandler.CreateJobHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobRoutes dispatches /api/batch/jobs/{id}[/run|/runs]
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/batch/jobs/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	jobID := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.app.BatchHandler.GetJobHandler(w, r, jobID)
		case http.MethodPut:
			s.app.BatchHandler.UpdateJobHandler(w, r, jobID)
		case http.MethodDelete:
			s.app.BatchHandler.DeleteJobHandler(w, r, jobID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "run":
			if !handlers.RequireMethod(w, r, "POST") {
				return
			}
			s.app.BatchHandler.TriggerRunHandler(w, r, jobID)
			return
		case "runs":
			if !handlers.RequireMethod(w, r, "GET") {
				return
			}
			s.app.BatchHandler.ListJobRunsHandler(w, r, jobID)
			return
		}
	}

	s.app.APIHandler.NotFoundHandler(w, r)
}
