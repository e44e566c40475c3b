package fetch

import (
	"errors"
	"fmt"
)

// Transport errors.
// Callers use errors.Is to tell failures that skip a single thread from
// failures that should abort a site.
var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("page not found")

	// ErrRateLimited is returned when the site still answers 429 after all
	// retries were used.
	ErrRateLimited = errors.New("rate limited: retries exhausted")

	// ErrUnexpectedStatus is returned for any other non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrBodyTooLarge is returned when a response exceeds the body limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrInvalidProxyAddress is returned when the proxy URL is malformed or
	// uses an unsupported scheme.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected socks5://host:port or http://host:port")
)

// StatusError carries the status code of a failed response.
// It matches ErrNotFound, ErrRateLimited or ErrUnexpectedStatus with errors.Is.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.URL, e.sentinel(), e.StatusCode)
}

// Is reports the sentinel matching the status code.
func (e *StatusError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *StatusError) sentinel() error {
	switch e.StatusCode {
	case 404:
		return ErrNotFound
	case 429:
		return ErrRateLimited
	default:
		return ErrUnexpectedStatus
	}
}
