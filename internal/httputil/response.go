package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/redmonkez12/eventflow/internal/apperr"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// MessageResponse is returned by endpoints that have nothing else to say.
type MessageResponse struct {
	Message string `json:"message"`
}

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// RespondError sends a JSON error response with the given message and status code.
func RespondError(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, ErrorResponse{Error: message}, statusCode)
}

// RespondErrorWithCode sends a JSON error response with a machine-readable error code.
func RespondErrorWithCode(w http.ResponseWriter, message string, code string, statusCode int) {
	RespondJSON(w, ErrorResponse{Error: message, Code: code}, statusCode)
}

// RespondMessage sends {"message": msg}.
func RespondMessage(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, MessageResponse{Message: message}, statusCode)
}

// ClassifyError maps a domain error onto an HTTP status, a machine-readable
// code and the message that is safe to show the caller.
func ClassifyError(err error) (status int, code, message string) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, CodeValidationFailed, ve.Error()
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, CodeValidationFailed, "invalid input"
	case errors.Is(err, apperr.ErrInvalidCredentials):
		return http.StatusUnauthorized, CodeInvalidCredentials, "invalid email or password"
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized, CodeUnauthenticated, "unauthenticated"
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, CodeForbidden, publicMessage(err, "forbidden")
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, CodeNotFound, publicMessage(err, "resource not found")
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, CodeConflict, publicMessage(err, "resource already exists")
	case errors.Is(err, apperr.ErrTransientStore):
		return http.StatusServiceUnavailable, CodeServiceUnavailable, "service temporarily unavailable, please retry"
	default:
		return http.StatusInternalServerError, CodeInternalError, "internal server error"
	}
}

// RespondServiceError classifies err and writes it. 5xx outcomes are logged at
// error level with the underlying cause; the cause is never sent to the client.
func RespondServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code, message := ClassifyError(err)
	if logger != nil {
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", "error", err.Error(), "status", status)
		} else {
			logger.Warn("request rejected", "reason", message, "status", status)
		}
	}
	RespondErrorWithCode(w, message, code, status)
}

func publicMessage(err error, fallback string) string {
	var de *apperr.Error
	if errors.As(err, &de) {
		return de.Message
	}
	return fallback
}
