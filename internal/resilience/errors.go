package resilience

import (
	"context"
	"errors"
	"net"
)

// ErrCircuitOpen is returned without touching the network while an
// endpoint's breaker is open. Callers surface it as "temporarily
// unavailable" rather than a content failure.
var ErrCircuitOpen = errors.New("circuit open")

type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

// Transient marks an error as retryable (timeouts, 5xx-equivalents,
// rate-limit responses). Anything not marked transient bypasses retry and
// breaker bookkeeping.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked retryable, or is a
// timeout-flavored error from the runtime.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}
