// Package secrets resolves scheme-prefixed references to values held in
// external secret stores. Values that are not references pass through
// untouched, so literals and references can be mixed in the same
// configuration surface.
package secrets

import (
	"context"
	"fmt"
	"sort"
	"sync"

	lberrors "github.com/systmms/lakebench/internal/errors"
	"github.com/systmms/lakebench/internal/logging"
)

// Source retrieves secrets for a single reference scheme.
// Implementations must be safe for concurrent use.
type Source interface {
	// Scheme returns the reference scheme this source serves ("aws-sm").
	Scheme() string

	// Resolve fetches the secret a reference points at.
	Resolve(ctx context.Context, ref Ref) (string, error)

	// Check verifies the source is reachable with the current
	// credentials, using the cheapest call the backend offers.
	Check(ctx context.Context) error
}

// SourceFactory builds a Source on first use. Construction is deferred so
// that a host only pays for (and needs credentials for) the backends its
// references actually name.
type SourceFactory func() (Source, error)

// Resolver dispatches references to registered sources.
type Resolver struct {
	mu        sync.Mutex
	factories map[string]SourceFactory
	sources   map[string]Source
	logger    *logging.Logger
}

// NewResolver returns a resolver with every built-in scheme registered.
func NewResolver(logger *logging.Logger) *Resolver {
	r := &Resolver{
		factories: make(map[string]SourceFactory),
		sources:   make(map[string]Source),
		logger:    logger,
	}

	r.RegisterFactory(SchemeEnv, func() (Source, error) { return NewEnvSource(), nil })
	r.RegisterFactory(SchemeKeyring, func() (Source, error) { return NewKeyringSource(nil), nil })
	r.RegisterFactory(SchemeAWSSM, func() (Source, error) { return NewSecretsManagerSource(logger) })
	r.RegisterFactory(SchemeAWSSSM, func() (Source, error) { return NewParameterStoreSource(logger) })
	r.RegisterFactory(SchemeAzureKV, func() (Source, error) { return NewAzureKeyVaultSource(logger) })
	r.RegisterFactory(SchemeGCPSM, func() (Source, error) { return NewGCPSource(logger) })
	r.RegisterFactory(SchemeAkeyless, func() (Source, error) { return NewAkeylessSource(logger) })

	return r
}

// RegisterFactory installs (or replaces) the factory for a scheme.
func (r *Resolver) RegisterFactory(scheme string, factory SourceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[scheme] = factory
	delete(r.sources, scheme)
}

// Register installs an already-constructed source, bypassing its factory.
// Used by tests to inject fakes.
func (r *Resolver) Register(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[src.Scheme()] = src
}

func (r *Resolver) source(scheme string) (Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if src, ok := r.sources[scheme]; ok {
		return src, nil
	}
	factory, ok := r.factories[scheme]
	if !ok {
		return nil, fmt.Errorf("no source registered for scheme %q", scheme)
	}
	src, err := factory()
	if err != nil {
		return nil, lberrors.SourceError(scheme, "initialize", err)
	}
	r.sources[scheme] = src
	return src, nil
}

// Resolve expands a single value. Non-references are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}

	ref, err := ParseRef(value)
	if err != nil {
		return "", err
	}

	src, err := r.source(ref.Scheme)
	if err != nil {
		return "", err
	}

	r.logger.Debug("Resolving %s reference %s", ref.Scheme, logging.Secret(ref.Path))

	resolved, err := src.Resolve(ctx, ref)
	if err != nil {
		return "", lberrors.SourceError(ref.Scheme, "resolve", err)
	}
	return resolved, nil
}

// Check probes a single scheme's backend. Used by doctor.
func (r *Resolver) Check(ctx context.Context, scheme string) error {
	src, err := r.source(scheme)
	if err != nil {
		return err
	}
	if err := src.Check(ctx); err != nil {
		return lberrors.SourceError(scheme, "check", err)
	}
	return nil
}

// Schemes lists every registered scheme, sorted.
func (r *Resolver) Schemes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(r.factories)+len(r.sources))
	for scheme := range r.factories {
		seen[scheme] = true
	}
	for scheme := range r.sources {
		seen[scheme] = true
	}
	schemes := make([]string, 0, len(seen))
	for scheme := range seen {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}
