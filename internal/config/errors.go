package config

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration validation errors returned by Config.Validate().
// Callers can use errors.Is() to handle them programmatically.
var (
	// ErrNoSite is returned when no site was selected.
	ErrNoSite = errors.New("no site specified: provide a site name such as sv, qq or sb")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidDelay is returned when the request delay or the rate limit
	// wait is negative.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrInvalidRetries is returned when the retry count is negative.
	ErrInvalidRetries = errors.New("invalid max retries: must be non-negative")

	// ErrUnknownSite is matched by UnknownSiteError.
	ErrUnknownSite = errors.New("unknown site")

	// ErrNoIndexPages is returned for a forum site without index pages.
	ErrNoIndexPages = errors.New("site has no index pages configured")

	// ErrInvalidExtractor is returned for an unsupported extractor name.
	ErrInvalidExtractor = errors.New("invalid extractor")
)

// UnknownSiteError reports a site name that is neither built in nor
// defined in the configuration file.
type UnknownSiteError struct {
	Name  string
	Known []string
}

// Error implements error.
func (e *UnknownSiteError) Error() string {
	return fmt.Sprintf("unknown site %q (known: %s)", e.Name, strings.Join(e.Known, ", "))
}

// Is reports ErrUnknownSite as the sentinel for this error.
func (e *UnknownSiteError) Is(target error) bool {
	return target == ErrUnknownSite
}
