package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/kudorimaru/bcart-review-app/pkg/errors"
)

// StatusError reports a server-side failure from a downstream service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server error %d", e.StatusCode)
	}
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Body)
}

// envelope matches the {"error":{"code","message"}} body written by
// httputil and the middleware package.
type envelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads a non-2xx response and translates it into an
// AppError where the body carries the standard error envelope. The body is
// consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var env envelope
	if json.Unmarshal(bodyBytes, &env) == nil && env.Error != nil {
		return mapDownstreamError(resp.StatusCode, env.Error.Code, env.Error.Message, serviceName)
	}

	return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(bodyBytes))
}

func mapDownstreamError(status int, code, message, serviceName string) error {
	qualified := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case status == http.StatusNotFound:
		return &apperrors.AppError{Code: code, Message: qualified, Status: status, Err: apperrors.ErrNotFound}
	case status == http.StatusBadRequest:
		return &apperrors.AppError{Code: code, Message: qualified, Status: status, Err: apperrors.ErrInvalidInput}
	case status == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case status == http.StatusForbidden:
		return &apperrors.AppError{Code: code, Message: qualified, Status: status, Err: apperrors.ErrUnauthorized}
	case status == http.StatusTooManyRequests:
		return &apperrors.AppError{Code: code, Message: qualified, Status: status, Err: apperrors.ErrRateLimited}
	case status == http.StatusServiceUnavailable:
		return &apperrors.AppError{Code: code, Message: qualified, Status: status, Err: apperrors.ErrServiceUnavail}
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, status, code, message)
	default:
		return &apperrors.AppError{Code: code, Message: qualified, Status: status}
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
