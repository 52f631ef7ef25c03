package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/communityportal/backend/internal/repository"
	"github.com/communityportal/backend/internal/service"
	"github.com/communityportal/backend/internal/upload"
	"github.com/communityportal/backend/internal/validation"
	pkgstripe "github.com/communityportal/backend/pkg/stripe"
)

// messageResponse is the body of every error response.
type messageResponse struct {
	Message string `json:"message"`
}

// createdResponse wraps a newly stored record.
type createdResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeError maps err onto a status code. fallback is the message shown for
// unexpected failures.
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		vErr   *validation.Error
		ce     *upload.ConstraintError
		apiErr *pkgstripe.APIError
		maxErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &vErr):
		writeMessage(w, http.StatusBadRequest, vErr.Error())
	case errors.As(err, &ce):
		writeMessage(w, http.StatusBadRequest, ce.Error())
	case errors.As(err, &maxErr):
		writeMessage(w, http.StatusBadRequest, "Request body too large")
	case errors.As(err, &apiErr):
		writeMessage(w, http.StatusBadRequest, apiErr.Message)
	case errors.Is(err, service.ErrIdempotencyConflict):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		slog.Error("record missing", "method", r.Method, "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError, fallback)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError, fallback)
	}
}
