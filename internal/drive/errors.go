// Package drive provides an HTTP client for the Google Drive v3 API
// with automatic retry, rate limiting, and error classification.
package drive

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, drive.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("drive: bad request")
	ErrUnauthorized = errors.New("drive: unauthorized")
	ErrForbidden    = errors.New("drive: forbidden")
	ErrNotFound     = errors.New("drive: not found")
	ErrConflict     = errors.New("drive: conflict")
	ErrThrottled    = errors.New("drive: throttled")
	ErrServerError  = errors.New("drive: server error")
)

// Operation-level errors surfaced to the walker, report builder, and mirror.
var (
	// ErrRemoteUnavailable wraps the last failure once the retry budget for a
	// transient error (network, 429, 5xx) is exhausted.
	ErrRemoteUnavailable = errors.New("drive: remote unavailable")

	// ErrInvalidParent is returned by CreateFolder when the parent does not
	// exist or is not a folder.
	ErrInvalidParent = errors.New("drive: invalid parent")

	// ErrNotCopyable is returned by CopyNode for native types the provider
	// cannot duplicate server-side.
	ErrNotCopyable = errors.New("drive: item type cannot be copied")

	// ErrNotLoggedIn is returned when no cached token exists.
	ErrNotLoggedIn = errors.New("drive: not logged in")

	// ErrAuth is returned when consent cannot be completed or the client
	// secrets cannot be loaded.
	ErrAuth = errors.New("drive: authentication failed")
)

// Rate-limit reasons Drive reports with HTTP 403 instead of 429.
const (
	reasonRateLimit     = "rateLimitExceeded"
	reasonUserRateLimit = "userRateLimitExceeded"
)

// APIError wraps a sentinel error with the HTTP status code, the Drive error
// reason, and the API message for debugging.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("drive: HTTP %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}

	return fmt.Sprintf("drive: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// errorEnvelope mirrors the Drive v3 JSON error body.
type errorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// parseErrorBody extracts the reason and message from a Drive error body.
// Bodies that are not the documented envelope are returned verbatim as the message.
func parseErrorBody(body []byte) (reason, message string) {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error.Message == "" {
		return "", string(body)
	}

	if len(env.Error.Errors) > 0 {
		reason = env.Error.Errors[0].Reason
	}

	return reason, env.Error.Message
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for 2xx success codes.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether a response with the given status and Drive
// error reason should be retried.
func isRetryable(code int, reason string) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	case http.StatusForbidden:
		return reason == reasonRateLimit || reason == reasonUserRateLimit
	default:
		return false
	}
}
