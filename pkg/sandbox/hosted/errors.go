package hosted

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned for HTTP 401 and 403.
	ErrUnauthorized = errors.New("code interpreter rejected the API key")

	// ErrAtCapacity is returned for HTTP 429.
	ErrAtCapacity = errors.New("code interpreter at capacity")
)

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("code interpreter returned HTTP %d: %s", e.StatusCode, e.Body)
}
