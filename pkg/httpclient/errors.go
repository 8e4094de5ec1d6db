package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/Shahil0511/OakMirror/pkg/errors"
)

const maxBodyBytes = 1 << 20

// errorEnvelope is the failure body written by httputil.
type errorEnvelope struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseResponseError reads a non-2xx response and turns it into an
// *apperrors.AppError keeping the server's code and message. Bodies that are
// not an error envelope are reported with their status and raw text. The
// body is consumed and closed.
func ParseResponseError(resp *http.Response) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("server returned status %d (failed to read body: %w)", resp.StatusCode, err)
	}

	var env errorEnvelope
	if json.Unmarshal(raw, &env) != nil || env.Status != "error" {
		return &apperrors.AppError{
			Code:    "UNEXPECTED_RESPONSE",
			Message: fmt.Sprintf("server returned status %d: %s", resp.StatusCode, string(raw)),
			Status:  resp.StatusCode,
			Err:     sentinelFor(resp.StatusCode),
		}
	}

	return &apperrors.AppError{
		Code:    env.Code,
		Message: env.Message,
		Status:  resp.StatusCode,
		Err:     sentinelFor(resp.StatusCode),
	}
}

// sentinelFor maps a status back to the error taxonomy so callers can use
// errors.Is on remote failures.
func sentinelFor(status int) error {
	switch status {
	case http.StatusBadRequest:
		return apperrors.ErrInvalidInput
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthenticated
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	case http.StatusNotFound:
		return apperrors.ErrNotFound
	case http.StatusConflict:
		return apperrors.ErrAlreadyExists
	case http.StatusTooManyRequests:
		return apperrors.ErrTooManyRequests
	}
	if status >= 500 {
		return apperrors.ErrInternal
	}
	return nil
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
