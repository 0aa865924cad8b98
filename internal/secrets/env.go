package secrets

import (
	"context"
	"fmt"
	"os"
)

// EnvSource resolves env://VAR references against the process environment.
// A #field selector extracts a key from a JSON-valued variable.
type EnvSource struct{}

// NewEnvSource returns the environment source.
func NewEnvSource() *EnvSource {
	return &EnvSource{}
}

// Scheme returns "env".
func (s *EnvSource) Scheme() string {
	return SchemeEnv
}

// Resolve looks up the named variable.
func (s *EnvSource) Resolve(_ context.Context, ref Ref) (string, error) {
	value, ok := os.LookupEnv(ref.Path)
	if !ok {
		return "", fmt.Errorf("%w: environment variable %s is not set", ErrNotFound, ref.Path)
	}
	if ref.Field != "" {
		return extractField(value, ref.Field)
	}
	return value, nil
}

// Check always succeeds; the environment has no backend to probe.
func (s *EnvSource) Check(context.Context) error {
	return nil
}
