package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ternarybob/purgo/internal/models"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a standard success JSON response.
func WriteSuccess(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": message,
	})
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// WriteDomainError maps domain error kinds onto HTTP status codes:
// validation and parse failures are client errors, unknown jobs are 404, a
// run request against a busy job is 409, everything else is a 500.
func WriteDomainError(w http.ResponseWriter, err error) error {
	var (
		validationErr *models.ValidationError
		parseErr      *models.ParseError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &parseErr):
		return WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrJobNotFound):
		return WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrJobRunning):
		return WriteError(w, http.StatusConflict, err.Error())
	default:
		return WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

const (
	defaultRunLimit = 30
	maxRunLimit     = 200
)

// GetLimitParam extracts a positive "limit" query parameter, clamped to
// maxRunLimit, falling back to defaultRunLimit when absent or malformed
func GetLimitParam(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			if limit > maxRunLimit {
				return maxRunLimit
			}
			return limit
		}
	}
	return defaultRunLimit
}
