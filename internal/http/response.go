package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"smartexpense/internal/amqp"
	"smartexpense/internal/backup"
	"smartexpense/internal/core"
	"smartexpense/internal/log"
	"smartexpense/internal/session"
)

// errorBody is the JSON shape of every error response. Session endpoints
// also return the machine snapshot so clients can render the current step.
type errorBody struct {
	Error   string            `json:"error"`
	Session *session.Snapshot `json:"session,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// errSheetsDisabled is returned when no spreadsheet is configured.
var errSheetsDisabled = errors.New("spreadsheet export is not configured")

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrInvalidVerificationCode),
		errors.Is(err, core.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrStorageAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, core.ErrAccountNotFound),
		errors.Is(err, core.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUsernameTaken),
		errors.Is(err, core.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrNoteTooLong),
		errors.Is(err, core.ErrEmptyUsername),
		errors.Is(err, core.ErrEmptyPassword),
		errors.Is(err, backup.ErrUnknownTarget):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrExportFailure):
		return http.StatusBadGateway
	case errors.Is(err, backup.ErrQueueDisabled),
		errors.Is(err, errSheetsDisabled),
		errors.Is(err, amqp.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs server-side failures and hides their details from clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorBody(w, r, err, nil)
}

func writeSessionError(w http.ResponseWriter, r *http.Request, err error, snap session.Snapshot) {
	writeErrorBody(w, r, err, &snap)
}

func writeErrorBody(w http.ResponseWriter, r *http.Request, err error, snap *session.Snapshot) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorBody{Error: msg, Session: snap})
}
