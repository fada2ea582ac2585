package backend

import (
	"errors"
	"fmt"
)

// Typed outcomes of non-2xx responses. Adapters map every mapped status to
// one of these; anything unmapped becomes an UnexpectedResponseError, never
// a silent pass.
var (
	ErrInvalidClient     = errors.New("backend: invalid client id")
	ErrInvalidParameters = errors.New("backend: invalid parameters")
	ErrNotFound          = errors.New("backend: not found")
	ErrAccessDenied      = errors.New("backend: access denied")
	ErrTokenExpired      = errors.New("backend: access token expired")
)

// FailureResponse carries the numeric status and, where the backend provided
// one, the machine-readable error label of a mapped failure.
type FailureResponse struct {
	Code  int
	Label string
	Err   error
}

func (e *FailureResponse) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("backend failure %d (%s): %v", e.Code, e.Label, e.Err)
	}
	return fmt.Sprintf("backend failure %d: %v", e.Code, e.Err)
}

func (e *FailureResponse) Unwrap() error { return e.Err }

// UnexpectedResponseError reports a status no parser registration matched.
// The raw body is kept for diagnostics.
type UnexpectedResponseError struct {
	Code int
	Body []byte
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("backend: unexpected response %d: %s", e.Code, truncate(e.Body, 256))
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// IsTerminal reports whether an error can not succeed on retry within the
// same sync attempt. 4xx-mapped failures are terminal; transport hiccups and
// 5xx are not.
func IsTerminal(err error) bool {
	var failure *FailureResponse
	if errors.As(err, &failure) {
		return failure.Code >= 400 && failure.Code < 500
	}
	var unexpected *UnexpectedResponseError
	if errors.As(err, &unexpected) {
		return unexpected.Code >= 400 && unexpected.Code < 500
	}
	return errors.Is(err, ErrTokenExpired)
}
