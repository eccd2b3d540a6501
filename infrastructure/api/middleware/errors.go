package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/smarthealth/quotekit/domain/profile"
	"github.com/smarthealth/quotekit/domain/search"
)

// ErrorResponse is the JSON error payload.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// WriteError maps an error to an HTTP status and writes the JSON payload.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status := http.StatusInternalServerError
	title := "Internal server error"

	switch {
	case errors.Is(err, profile.ErrValidation):
		status = http.StatusBadRequest
		title = "Invalid request data"
	case errors.Is(err, search.ErrIndexNotLoaded), errors.Is(err, search.ErrIndexNotFound):
		status = http.StatusServiceUnavailable
		title = "Index not available"
	}

	requestID := middleware.GetReqID(r.Context())
	if logger != nil {
		logger.Error("request error",
			"request_id", requestID,
			"status", status,
			"error", err.Error(),
			"path", r.URL.Path,
		)
	}

	WriteJSON(w, status, ErrorResponse{
		Error:     title,
		Details:   err.Error(),
		RequestID: requestID,
	})
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
