package errors

import (
	"fmt"
	"time"
)

// HTTPError represents a non-2xx response from an upstream API.
type HTTPError struct {
	StatusCode int
	Message    string
	Endpoint   string
	// RetryAfter is the server-requested delay, zero if none was sent.
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("HTTP %d at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// DecodeError indicates an upstream payload that could not be decoded.
type DecodeError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

// Unwrap returns the decoding error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates an operation timed out.
type TimeoutError struct {
	Operation string
	Duration  time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s: %s", e.Duration, e.Operation)
}

// ConfigError indicates missing or invalid configuration for a service.
type ConfigError struct {
	Key     string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Message)
}
