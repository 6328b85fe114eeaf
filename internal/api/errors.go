// Package api provides the HTTP client for the dashboard backend.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	nethttp "net/http"
)

// ErrMissingIdentity is returned when an update or delete targets a behavior
// record that has no server-assigned id. The call never reaches the network;
// sending it could silently corrupt an unrelated record.
var ErrMissingIdentity = errors.New("behavior record has no server-assigned id")

// Error is a non-2xx response from the backend, carrying the most specific
// human-readable message the body offered.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// newError builds an Error from a response status and body. The surfaced
// message is the first present of detail[0].msg, detail, message; otherwise
// the raw status line.
func newError(statusCode int, body []byte) *Error {
	return &Error{
		StatusCode: statusCode,
		Message:    errorMessage(statusCode, body),
	}
}

func errorMessage(statusCode int, body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}

	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Detail) > 0 {
			// FastAPI-style validation errors: detail is a list of {msg}.
			var items []struct {
				Msg string `json:"msg"`
			}
			if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
				return items[0].Msg
			}

			var detail string
			if err := json.Unmarshal(payload.Detail, &detail); err == nil && detail != "" {
				return detail
			}
		}
		if payload.Message != "" {
			return payload.Message
		}
	}

	return fmt.Sprintf("%d %s", statusCode, nethttp.StatusText(statusCode))
}

// IsServerError reports whether err is a non-2xx backend response.
func IsServerError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr)
}

// IsNetworkError reports whether err is a transport-level failure: not a
// backend response and not a cancellation.
func IsNetworkError(err error) bool {
	if err == nil || IsServerError(err) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
