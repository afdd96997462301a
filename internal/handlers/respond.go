package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"icarus/internal/apperror"
)

type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// statusFor maps the apperror taxonomy onto HTTP status codes. Anything else is a storage failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the AppError message, or with failMsg plus the underlying
// error text for storage failures.
func writeError(w http.ResponseWriter, logger *zap.Logger, failMsg string, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		writeMessage(w, statusFor(err), appErr.Message)
		return
	}
	logger.Error(failMsg, zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, messageResponse{Message: failMsg, Error: err.Error()})
}

// decodeJSON reads the request body into dst; an empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return apperror.ValidationFailed("body", "invalid request body")
	}
	return nil
}
