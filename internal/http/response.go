package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ssandworth/incomeLineUpdatex/internal/core"
	applog "github.com/ssandworth/incomeLineUpdatex/internal/log"
)

// envelope is the uniform JSON response shape for every API route.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// errPermissionDenied is returned by the capability check in handlers.
var errPermissionDenied = errors.New("permission denied")

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Message: message, Data: data}); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeResult renders an envelope whose success flag follows the outcome of
// a partial-failure operation instead of being fixed to true.
func writeResult(w http.ResponseWriter, status int, success bool, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: success, Message: message, Data: data}); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes and renders the
// failure envelope.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	logger := applog.FromContext(r.Context())

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err)
	} else {
		logger.WarnContext(r.Context(), "Request rejected",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, status,
			applog.FieldError, err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(envelope{Success: false, Message: err.Error()}); encErr != nil {
		slog.Error("Failed to encode error response", "error", encErr)
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrAlreadyDecided),
		errors.Is(err, core.ErrDuplicateReceipt):
		return http.StatusConflict
	case errors.Is(err, core.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, errPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidYear),
		errors.Is(err, core.ErrEmptyAccount),
		errors.Is(err, core.ErrUnknownAccount),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
