package resolve

import (
	"errors"
	"fmt"

	"chainHTTP/internal/parser"
	"chainHTTP/internal/probe"
)

var (
	// ErrMissingLocation is returned when a 3xx response has no usable Location header
	ErrMissingLocation = errors.New("redirect response without location")
	// ErrRedirectLoop is returned when a hop revisits a URL already in the chain
	ErrRedirectLoop = errors.New("redirect loop detected")
	// ErrTooManyRedirects is returned when a chain exceeds the configured redirect limit
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Error kinds reported by KindOf
const (
	KindInvalidURL      = "InvalidURL"
	KindMissingLocation = "MissingRedirectLocation"
	KindRedirectLoop    = "RedirectLoop"
	KindTooManyRedirect = "TooManyRedirects"
	KindUnknown         = "Unknown"
)

// CheckError reports the hop at which a resolution failed. Hop is the
// number of redirects followed before the failing URL.
type CheckError struct {
	URL string
	Hop int
	Err error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("health check failed at hop %d (%s): %v", e.Hop, e.URL, e.Err)
}

func (e *CheckError) Unwrap() error { return e.Err }

// KindOf returns a stable name for the failure class of err
func KindOf(err error) string {
	var probeErr *probe.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, parser.ErrInvalidURL):
		return KindInvalidURL
	case errors.As(err, &probeErr):
		return string(probeErr.Kind)
	case errors.Is(err, ErrMissingLocation):
		return KindMissingLocation
	case errors.Is(err, ErrRedirectLoop):
		return KindRedirectLoop
	case errors.Is(err, ErrTooManyRedirects):
		return KindTooManyRedirect
	default:
		return KindUnknown
	}
}
