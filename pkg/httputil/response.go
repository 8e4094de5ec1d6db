package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/Shahil0511/OakMirror/pkg/errors"
	"github.com/Shahil0511/OakMirror/pkg/logger"
	"github.com/Shahil0511/OakMirror/pkg/validator"
)

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response is the JSON envelope for every API response.
//
// Success: {"status":"success","data":...}
// Failure: {"status":"error","message":...,"code":...}
type Response struct {
	Status     string                 `json:"status"`
	Data       any                    `json:"data,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Code       string                 `json:"code,omitempty"`
	Errors     []validator.FieldError `json:"errors,omitempty"`
	Pagination any                    `json:"pagination,omitempty"`
	RequestID  string                 `json:"requestId,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a success envelope around data.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{Status: StatusSuccess, Data: data})
}

// WritePage writes a success envelope with pagination metadata.
func WritePage(w http.ResponseWriter, data, pagination any) {
	WriteJSON(w, http.StatusOK, Response{Status: StatusSuccess, Data: data, Pagination: pagination})
}

// WriteFailure writes an error envelope with an explicit code and message.
func WriteFailure(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, Response{Status: StatusError, Code: code, Message: message})
}

// WriteError maps err to an error envelope. AppErrors keep their code,
// message and status; sentinel errors get a generic message; anything else is
// a 500 and is logged. The request-scoped logger is preferred over fallback.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Status >= http.StatusInternalServerError {
			logInternal(l, r, err)
		}
		WriteJSON(w, appErr.Status, Response{
			Status:    StatusError,
			Code:      appErr.Code,
			Message:   appErr.Message,
			RequestID: requestID,
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	code, message := "INTERNAL_ERROR", "an internal error occurred"

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code, message = "NOT_FOUND", "resource not found"
	case errors.Is(err, apperrors.ErrAlreadyExists):
		code, message = "ALREADY_EXISTS", "resource already exists"
	case errors.Is(err, apperrors.ErrInvalidInput):
		code, message = "INVALID_INPUT", err.Error()
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		code, message = "INVALID_CREDENTIALS", "invalid credentials"
	case errors.Is(err, apperrors.ErrUserNotFound):
		code, message = "USER_NOT_FOUND", "user not found"
	case errors.Is(err, apperrors.ErrUnauthenticated):
		code, message = "UNAUTHENTICATED", "authentication required"
	case errors.Is(err, apperrors.ErrForbidden):
		code, message = "FORBIDDEN", "insufficient permissions"
	case errors.Is(err, apperrors.ErrTooManyRequests):
		code, message = "RATE_LIMITED", "too many requests"
	}

	if status == http.StatusInternalServerError {
		logInternal(l, r, err)
	}

	WriteJSON(w, status, Response{
		Status:    StatusError,
		Code:      code,
		Message:   message,
		RequestID: requestID,
	})
}

func logInternal(l *slog.Logger, r *http.Request, err error) {
	l.ErrorContext(r.Context(), "internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}

// WriteValidationError writes a 400 for a failed DecodeAndValidate. Field
// errors are listed under "errors".
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Status:  StatusError,
			Code:    "VALIDATION_FAILED",
			Message: "Validation failed",
			Errors:  valErr.Fields(),
		})
		return
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		WriteFailure(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large")
		return
	}

	message := "invalid request body"
	if errors.Is(err, validator.ErrEmptyBody) {
		message = "request body is required"
	}
	WriteFailure(w, http.StatusBadRequest, "INVALID_INPUT", message)
}

// ParseUUID validates that param is a UUID. On failure it writes a 400 and
// returns false so the caller can return early.
func ParseUUID(w http.ResponseWriter, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		WriteFailure(w, http.StatusBadRequest, "INVALID_PARAMETER", "invalid id: "+param)
		return uuid.Nil, false
	}
	return id, true
}
