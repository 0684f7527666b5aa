package token

import (
	"errors"
	"fmt"
)

var (
	ErrPromptCancelled = errors.New("token prompt cancelled")
	ErrMissingToken    = errors.New("response has no token")
	ErrBadStatus       = errors.New("unexpected status")
	ErrNotJSON         = errors.New("response is not JSON")
)

// FetchError reports a failure to obtain a credential, either from the
// token endpoint or from the operator.
type FetchError struct {
	Op      string
	Err     error
	Details string
}

func (e *FetchError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func newError(op string, err error) *FetchError {
	return &FetchError{Op: op, Err: err}
}

func wrapError(op string, err error, details string) *FetchError {
	return &FetchError{Op: op, Err: err, Details: details}
}
