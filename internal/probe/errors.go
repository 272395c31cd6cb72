package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrProbeFailed is matched by every transport-level probe failure
var ErrProbeFailed = errors.New("probe failed")

// Kind classifies a probe failure
type Kind string

const (
	KindTimeout    Kind = "Timeout"
	KindConnection Kind = "ConnectionError"
)

// Error is returned by Probe when no HTTP response could be obtained.
// 4xx and 5xx responses are not errors.
type Error struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v (%s) for %s: %v", ErrProbeFailed, e.Kind, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports ErrProbeFailed as a match.
func (e *Error) Is(target error) bool { return target == ErrProbeFailed }

// classify maps a transport error onto a probe failure kind
func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindConnection
}

func newError(target string, err error) *Error {
	return &Error{Kind: classify(err), URL: target, Err: err}
}
