package secrets

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by sources when a reference points at a secret
// that does not exist in the backend.
var ErrNotFound = errors.New("secret not found")

// IsNotFound reports whether err indicates a missing secret.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// SourceOpError wraps a backend failure with the operation and path that
// triggered it.
type SourceOpError struct {
	Scheme string
	Op     string // "auth", "fetch", "check"
	Path   string
	Err    error
}

func (e *SourceOpError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s error for %s: %v", e.Scheme, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s error: %v", e.Scheme, e.Op, e.Err)
}

func (e *SourceOpError) Unwrap() error {
	return e.Err
}
