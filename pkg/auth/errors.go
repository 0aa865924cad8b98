package auth

import (
	"errors"
	"fmt"
)

// ErrInstanceNotFound is wrapped into an InitError when the configured
// database instance name does not resolve on the control plane.
var ErrInstanceNotFound = errors.New("database instance not found")

// InitError is a fatal construction failure: the control plane was
// unreachable, the instance name did not resolve, or the eager initial
// mint failed. A manager that returns one is unusable.
type InitError struct {
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("credential manager initialization failed: %v", e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// MintError is a single failed credential mint. It is recoverable: the
// background loop retries at the next interval, and consumers keep the
// last good snapshot until then.
type MintError struct {
	Err error
}

func (e *MintError) Error() string {
	return fmt.Sprintf("credential mint failed: %v", e.Err)
}

func (e *MintError) Unwrap() error {
	return e.Err
}

// NotInitializedError means connection parameters were requested from a
// manager that never completed a successful mint. Correct callers never
// see it; it marks a construction-order bug, not a runtime condition.
type NotInitializedError struct{}

func (e *NotInitializedError) Error() string {
	return "credential manager not initialized: no credential has been minted"
}

// IsInstanceNotFound reports whether err stems from an unresolvable
// database instance name.
func IsInstanceNotFound(err error) bool {
	return errors.Is(err, ErrInstanceNotFound)
}
