package api

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the backend reports a missing resource.
var ErrNotFound = errors.New("resource not found")

// ErrUnauthorized is returned when the identity token is rejected.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response from the backend. The backend always
// carries a JSON body of the form {"error": "..."} on failure; Message
// holds that text, or the raw body when it is not valid JSON.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
}

// Unwrap maps well-known statuses onto sentinel errors so callers can
// use errors.Is without inspecting status codes.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case 401, 403:
		return ErrUnauthorized
	case 404:
		return ErrNotFound
	}
	return nil
}
