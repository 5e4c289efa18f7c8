package sdk

import "fmt"

// FatalError marks a collaborator error that makes further batch execution
// pointless: the signer or its connection is unusable, or persistence is
// unavailable. The engine aborts the remaining batch when it sees one;
// anything else is treated as a per-item failure.
type FatalError struct {
	Err error
}

// NewFatalError creates a new FatalError wrapping err.
func NewFatalError(err error) *FatalError {
	return &FatalError{Err: err}
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %s", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}
