// Package errors classifies failures of the services a turn depends on
// (movie search, transit feeds, language models) and retries the ones
// that are worth retrying.
//
// Steps wrap upstream calls with WithRetryContext and decide between
// failing the turn and falling back to a canned reply with Categorize.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryTransient indicates retry will likely help.
	// Examples: rate limits, timeouts, 5xx responses.
	CategoryTransient Category = iota

	// CategoryPermanent indicates retry won't help.
	// Examples: bad credentials, missing configuration.
	CategoryPermanent

	// CategoryUpstream indicates the service answered with something unusable.
	// The turn should fall back rather than retry.
	CategoryUpstream

	// CategoryCancelled indicates the caller gave up.
	CategoryCancelled
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryPermanent:
		return "permanent"
	case CategoryUpstream:
		return "upstream"
	case CategoryCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CategorizedError wraps an error with its category and context.
type CategorizedError struct {
	// Err is the underlying error.
	Err error

	// Category indicates how this error should be handled.
	Category Category

	// Attempts is the number of attempts that were made.
	Attempts int

	// Context describes what operation was being attempted.
	Context string
}

// Error implements the error interface.
func (e *CategorizedError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (category: %s, attempts: %d)",
			e.Context, e.Err, e.Category, e.Attempts)
	}
	return fmt.Sprintf("%s (category: %s, attempts: %d)",
		e.Err, e.Category, e.Attempts)
}

// Unwrap returns the underlying error.
func (e *CategorizedError) Unwrap() error {
	return e.Err
}

// NewCategorized creates a new categorized error.
func NewCategorized(err error, category Category, context string) *CategorizedError {
	return &CategorizedError{
		Err:      err,
		Category: category,
		Context:  context,
	}
}

// Transient creates a transient error.
func Transient(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryTransient, context)
}

// Permanent creates a permanent error.
func Permanent(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryPermanent, context)
}

// Upstream creates an upstream error.
func Upstream(err error, context string) *CategorizedError {
	return NewCategorized(err, CategoryUpstream, context)
}

// Categorize determines how an error should be handled.
// Unknown errors are permanent.
func Categorize(err error) Category {
	if err == nil {
		return CategoryPermanent
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr.Category
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryCancelled
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == 429, httpErr.StatusCode == 408:
			return CategoryTransient
		case httpErr.StatusCode == 401, httpErr.StatusCode == 403:
			return CategoryPermanent
		case httpErr.StatusCode >= 500:
			return CategoryTransient
		default:
			return CategoryUpstream
		}
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return CategoryUpstream
	}

	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return CategoryTransient
	}

	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return CategoryPermanent
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryTransient
	}

	return CategoryPermanent
}

// IsRetryable reports whether the error should be retried.
func IsRetryable(err error) bool {
	return Categorize(err) == CategoryTransient
}

// ShouldFallback reports whether a turn should answer with a fallback reply
// instead of failing. Everything except cancellation falls back.
func ShouldFallback(err error) bool {
	return err != nil && Categorize(err) != CategoryCancelled
}
