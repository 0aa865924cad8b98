package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/systmms/lakebench/internal/logging"
)

// Default rotation windows. Each sits strictly inside the next; the outer
// bound is the control plane's ~60m token validity.
const (
	DefaultCacheTTL         = 5 * time.Minute
	DefaultMaxCredentialAge = 45 * time.Minute
	DefaultRotationInterval = 50 * time.Minute
)

// Options sets the manager's rotation windows. Zero fields take the
// package defaults. These are tunable because only the server-side
// validity window is grounded in an external contract; the rest are
// margins layered under it.
type Options struct {
	// CacheTTL bounds how long one parameter snapshot is handed out
	// before being rebuilt.
	CacheTTL time.Duration

	// MaxCredentialAge is the staleness net: a cache miss on a credential
	// older than this remints synchronously instead of re-serving it.
	MaxCredentialAge time.Duration

	// RotationInterval is the background remint period.
	RotationInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.MaxCredentialAge <= 0 {
		o.MaxCredentialAge = DefaultMaxCredentialAge
	}
	if o.RotationInterval <= 0 {
		o.RotationInterval = DefaultRotationInterval
	}
	return o
}

// Option adjusts manager internals that only tests and embedders need.
type Option func(*Manager)

// WithClock substitutes the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithTicks replaces the rotation ticker with an injected channel, so a
// test can fire rotation cycles deterministically.
func WithTicks(ticks <-chan time.Time) Option {
	return func(m *Manager) {
		m.ticks = ticks
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithLogger sets the logger. The default logs to stderr without color.
func WithLogger(logger *logging.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// rotationState is the handle on one background loop.
type rotationState struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns one credential and its rotation lifecycle. See the package
// documentation for the window model.
//
// Two locks split the hot path from the slow path: mintMu serializes mint
// operations (held across the control-plane call), stateMu guards the
// snapshot fields (held only for field reads and swaps). Cache hits never
// wait on an in-flight mint.
type Manager struct {
	source   CredentialSource
	endpoint Endpoint
	opts     Options
	logger   *logging.Logger
	metrics  *Metrics
	now      func() time.Time
	ticks    <-chan time.Time

	mintMu sync.Mutex

	stateMu     sync.RWMutex
	initialized bool
	cred        Credential
	issuedAt    time.Time
	cacheExpiry time.Time
	params      ConnectionParameters
	mints       uint64
	failures    uint64
	lastMint    time.Time
	rotation    *rotationState
}

// Mint triggers, for logs and metrics.
const (
	triggerInitial   = "initial"
	triggerStaleness = "staleness"
	triggerRotation  = "rotation"
	triggerManual    = "manual"
)

// NewManager builds a manager and eagerly mints the first credential.
// A mint failure here is fatal and returned as *InitError; this is the
// only blocking, failable step in an otherwise best-effort lifecycle.
func NewManager(ctx context.Context, source CredentialSource, opts Options, extra ...Option) (*Manager, error) {
	m := &Manager{
		source:  source,
		opts:    opts.withDefaults(),
		logger:  logging.New(false, true),
		metrics: NewMetrics(),
		now:     time.Now,
	}
	for _, opt := range extra {
		opt(m)
	}
	m.endpoint = source.Endpoint()

	if err := m.mint(ctx, triggerInitial); err != nil {
		return nil, &InitError{Err: err}
	}

	m.stateMu.RLock()
	subject := m.cred.Subject
	m.stateMu.RUnlock()
	m.logger.Debug("Minted initial credential for %s:%d as %s", m.endpoint.Host, m.endpoint.Port, subject)

	return m, nil
}

// mint performs one serialized credential mint and swaps the snapshot.
// A failed mint leaves the previous state untouched.
func (m *Manager) mint(ctx context.Context, trigger string) error {
	m.mintMu.Lock()
	defer m.mintMu.Unlock()
	return m.mintLocked(ctx, trigger)
}

func (m *Manager) mintLocked(ctx context.Context, trigger string) error {
	start := m.now()

	cred, err := m.source.Mint(ctx)
	if err != nil {
		m.stateMu.Lock()
		m.failures++
		m.stateMu.Unlock()
		m.metrics.recordMint(trigger, "failure", m.now().Sub(start))
		return asMintError(err)
	}

	now := m.now()
	m.stateMu.Lock()
	m.cred = cred
	m.issuedAt = now
	m.cacheExpiry = now.Add(m.opts.CacheTTL)
	m.params = m.buildParams(cred)
	m.mints++
	m.lastMint = now
	m.initialized = true
	m.stateMu.Unlock()

	m.metrics.recordMint(trigger, "success", now.Sub(start))
	m.metrics.recordCredentialAge(0)
	return nil
}

func asMintError(err error) error {
	var mintErr *MintError
	if errors.As(err, &mintErr) {
		return err
	}
	return &MintError{Err: err}
}

func (m *Manager) buildParams(cred Credential) ConnectionParameters {
	return ConnectionParameters{
		Host:     m.endpoint.Host,
		Port:     m.endpoint.Port,
		Database: m.endpoint.Database,
		User:     cred.Subject,
		Password: cred.Token,
		SSLMode:  m.endpoint.SSLMode,
	}
}

// ConnectionParams returns a complete parameter snapshot for opening a
// connection. Within the cache TTL it returns the cached snapshot. On a
// miss it rebuilds from the current credential, unless the credential has
// aged past MaxCredentialAge, in which case it synchronously remints and
// can surface a *MintError: by that point continuing to serve the old
// credential risks outright rejection by the database.
func (m *Manager) ConnectionParams(ctx context.Context) (ConnectionParameters, error) {
	m.stateMu.RLock()
	if !m.initialized {
		m.stateMu.RUnlock()
		return ConnectionParameters{}, &NotInitializedError{}
	}
	now := m.now()
	if now.Before(m.cacheExpiry) {
		params := m.params
		age := now.Sub(m.issuedAt)
		m.stateMu.RUnlock()
		m.metrics.recordCacheHit()
		m.metrics.recordCredentialAge(age)
		return params, nil
	}
	stale := now.Sub(m.issuedAt) > m.opts.MaxCredentialAge
	m.stateMu.RUnlock()
	m.metrics.recordCacheMiss()

	if stale {
		if err := m.mintIfStale(ctx); err != nil {
			return ConnectionParameters{}, err
		}
	} else {
		m.recache()
	}

	m.stateMu.RLock()
	params := m.params
	m.stateMu.RUnlock()
	return params, nil
}

// mintIfStale re-checks staleness once the mint lock is held: a rotation
// that completed while this caller was waiting makes the remint redundant.
func (m *Manager) mintIfStale(ctx context.Context) error {
	m.mintMu.Lock()
	defer m.mintMu.Unlock()

	m.stateMu.RLock()
	stale := m.now().Sub(m.issuedAt) > m.opts.MaxCredentialAge
	m.stateMu.RUnlock()
	if !stale {
		return nil
	}
	return m.mintLocked(ctx, triggerStaleness)
}

// recache rebuilds the snapshot from the still-fresh credential and
// restarts the cache window. No network involved.
func (m *Manager) recache() {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.params = m.buildParams(m.cred)
	m.cacheExpiry = m.now().Add(m.opts.CacheTTL)
}

// Snapshot returns the last known parameters without any refresh logic or
// network access. It keeps working after StopRotation and Close: open
// connections outlive rotation, so their parameters must too.
func (m *Manager) Snapshot() (ConnectionParameters, error) {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	if !m.initialized {
		return ConnectionParameters{}, &NotInitializedError{}
	}
	return m.params, nil
}

// Refresh forces a mint, serialized with every other mint path.
func (m *Manager) Refresh(ctx context.Context) error {
	return m.mint(ctx, triggerManual)
}

// StartRotation launches the background rotation loop. Idempotent: a
// second call while a loop is running is a no-op. The loop observes
// cancellation only at its tick suspension point, so it never abandons a
// mint halfway.
func (m *Manager) StartRotation(ctx context.Context) {
	m.stateMu.Lock()
	if m.rotation != nil {
		m.stateMu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	state := &rotationState{cancel: cancel, done: make(chan struct{})}
	m.rotation = state
	m.stateMu.Unlock()

	go m.rotate(loopCtx, state)
	m.logger.Debug("Started background credential rotation (interval %s)", m.opts.RotationInterval)
}

func (m *Manager) rotate(ctx context.Context, state *rotationState) {
	defer close(state.done)

	ticks := m.ticks
	if ticks == nil {
		ticker := time.NewTicker(m.opts.RotationInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			if err := m.mint(ctx, triggerRotation); err != nil {
				// One failed cycle must not kill the loop; the
				// credential is still inside its validity window and
				// the next tick retries.
				m.logger.Warn("Credential rotation failed, retrying next interval: %v", err)
				continue
			}
			m.logger.Debug("Rotated credential for %s:%d", m.endpoint.Host, m.endpoint.Port)
		}
	}
}

// StopRotation cancels the background loop and waits for it to finish.
// Idempotent and safe when no loop is running. Snapshot reads continue to
// succeed afterwards.
func (m *Manager) StopRotation() {
	m.stateMu.Lock()
	state := m.rotation
	m.rotation = nil
	m.stateMu.Unlock()

	if state == nil {
		return
	}
	state.cancel()
	<-state.done
	m.logger.Debug("Stopped background credential rotation")
}

// Stats is a point-in-time view of the manager's lifecycle counters.
type Stats struct {
	Subject        string
	IssuedAt       time.Time
	ExpiresAt      time.Time
	CacheExpiry    time.Time
	CredentialAge  time.Duration
	RotationActive bool
	Mints          uint64
	MintFailures   uint64
	LastMint       time.Time
}

// Stats reports the current lifecycle state.
func (m *Manager) Stats() Stats {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()

	s := Stats{
		Subject:        m.cred.Subject,
		IssuedAt:       m.issuedAt,
		ExpiresAt:      m.cred.ExpiresAt,
		CacheExpiry:    m.cacheExpiry,
		RotationActive: m.rotation != nil,
		Mints:          m.mints,
		MintFailures:   m.failures,
		LastMint:       m.lastMint,
	}
	if m.initialized && m.now != nil {
		s.CredentialAge = m.now().Sub(m.issuedAt)
	}
	return s
}

// Close stops background rotation. The manager remains readable via
// Snapshot; it simply stops rotating.
func (m *Manager) Close() {
	m.StopRotation()
}
