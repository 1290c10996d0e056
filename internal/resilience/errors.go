package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies an external failure for retry purposes
type ErrorKind int

const (
	// KindPermanent failures are not retried (bad request, auth, malformed input)
	KindPermanent ErrorKind = iota
	// KindTransient failures may succeed on retry (timeouts, 429, 5xx)
	KindTransient
)

func (k ErrorKind) String() string {
	if k == KindTransient {
		return "transient"
	}
	return "permanent"
}

// ErrCircuitOpen is returned when the breaker refuses a call
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ExternalError is a classified failure from an external dependency
type ExternalError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ExternalError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s external error (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s external error: %v", e.Kind, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

// Transient marks err as retryable
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &ExternalError{Kind: KindTransient, Err: err}
}

// Permanent marks err as not retryable
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &ExternalError{Kind: KindPermanent, Err: err}
}

// FromStatus classifies an HTTP status: 429 and 5xx are transient, anything
// else is permanent.
func FromStatus(code int, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(code))
	}
	kind := KindPermanent
	if code == http.StatusTooManyRequests || code >= 500 {
		kind = KindTransient
	}
	return &ExternalError{Kind: kind, StatusCode: code, Err: err}
}

// IsTransient reports whether err is worth retrying. Classified errors use
// their kind; deadline and network errors are transient; anything else is
// permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ext *ExternalError
	if errors.As(err, &ext) {
		return ext.Kind == KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// UnavailableError means the external dependency could not be used: the
// circuit was open or retries were exhausted.
type UnavailableError struct {
	Attempts int
	Cause    error
}

func (e *UnavailableError) Error() string {
	if errors.Is(e.Cause, ErrCircuitOpen) {
		return fmt.Sprintf("external service unavailable after %d attempt(s): %v", e.Attempts, e.Cause)
	}
	return fmt.Sprintf("external service unavailable after %d attempt(s), last error: %v", e.Attempts, e.Cause)
}

func (e *UnavailableError) Unwrap() error { return e.Cause }
