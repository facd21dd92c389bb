package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotInitialised indicates the form controller has not completed Init.
	ErrNotInitialised = errors.New("form not initialised")

	// Remote and storage failure classes. Typed errors below match these
	// through errors.Is so callers can branch without type assertions.

	// ErrNetwork indicates a transport failure or a non-success HTTP status.
	ErrNetwork = errors.New("network error")

	// ErrFormat indicates a response body without the expected shape.
	ErrFormat = errors.New("format error")

	// ErrSubmit indicates the remote store rejected a create or update.
	ErrSubmit = errors.New("submit error")

	// ErrStorage indicates a local storage read or write failure.
	// It never escapes the local cache.
	ErrStorage = errors.New("storage error")

	// ErrValidation indicates required form input is missing.
	ErrValidation = errors.New("validation error")

	// ErrReport indicates the document generation pipeline failed.
	ErrReport = errors.New("report generation error")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// NetworkError reports a failed request against a remote resource.
type NetworkError struct {
	// Op names the operation, e.g. "fetch case list".
	Op string
	// Status is the HTTP status code, zero for transport failures.
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *NetworkError) Unwrap() error { return e.Err }

// Is reports whether target is ErrNetwork.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// FormatError reports a response that lacks the expected top-level field.
type FormatError struct {
	Op    string
	Field string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: invalid response: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: response missing %q", e.Op, e.Field)
}

// Unwrap returns the underlying decode error, if any.
func (e *FormatError) Unwrap() error { return e.Err }

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// SubmitError carries the raw HTTP status and body of a rejected create or update.
type SubmitError struct {
	Method string
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *SubmitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s failed with status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// Unwrap returns the underlying transport error, if any.
func (e *SubmitError) Unwrap() error { return e.Err }

// Is reports whether target is ErrSubmit.
func (e *SubmitError) Is(target error) bool { return target == ErrSubmit }

// StorageError reports a local storage failure for a cache key.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying storage error.
func (e *StorageError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// ValidationError lists the form inputs that must be supplied before submit.
type ValidationError struct {
	Missing []string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
