package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidCredentials means the auth server refused a username/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized means the server rejected the call with 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the server rejected the call with 403.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound means the server answered 404.
	ErrNotFound = errors.New("not found")
	// ErrNetworkUnavailable means no response was received from the backend.
	ErrNetworkUnavailable = errors.New("network unavailable")
)

// APIError is returned when the API responds with a non-2xx status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api %d: %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

// Is maps well-known statuses onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// errorBody covers the error envelopes the backend is known to emit.
type errorBody struct {
	Message string `json:"message"`
	Error   any    `json:"error"`
}

func (b errorBody) message() string {
	if b.Message != "" {
		return b.Message
	}
	switch e := b.Error.(type) {
	case string:
		return e
	case map[string]any:
		if m, ok := e["message"].(string); ok {
			return m
		}
	}
	return ""
}
