package google

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/r3form/internal/core/domain"
)

// Common Google API errors.
var (
	// ErrUnauthorized indicates invalid or expired credentials.
	ErrUnauthorized = errors.New("google: unauthorised (invalid credentials)")

	// ErrForbidden indicates the credentials cannot reach the spreadsheet.
	ErrForbidden = errors.New("google: forbidden (spreadsheet not shared with these credentials)")

	// ErrNotFound indicates the spreadsheet or sheet was not found.
	ErrNotFound = errors.New("google: resource not found")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = fmt.Errorf("google: %w", domain.ErrRateLimited)
)

// IsUnauthorized returns true if the error indicates invalid credentials.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || hasCode(err, http.StatusUnauthorized)
}

// IsForbidden returns true if the error indicates insufficient permissions.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden) || hasCode(err, http.StatusForbidden)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || hasCode(err, http.StatusNotFound)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited) || hasCode(err, http.StatusTooManyRequests)
}

func hasCode(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}

// statusOf returns the HTTP status of a Google API error, or zero.
func statusOf(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// RetryAfterFromError returns the Retry-After of a Google API error, or zero.
func RetryAfterFromError(err error) time.Duration {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return RetryAfter(gerr.Header)
	}
	return 0
}

// classify converts a Google API error to one of the package errors.
func classify(err error) error {
	switch statusOf(err) {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return err
	}
}

// WrapError converts a failed read into a domain network error.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &domain.NetworkError{Op: op, Status: statusOf(err), Err: classify(err)}
}

// WrapWriteError converts a failed write into a domain submit error.
func WrapWriteError(method, target string, err error) error {
	if err == nil {
		return nil
	}
	se := &domain.SubmitError{Method: method, URL: target, Status: statusOf(err), Err: classify(err)}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		se.Body = gerr.Message
		if se.Body == "" {
			se.Body = gerr.Body
		}
	}
	return se
}
