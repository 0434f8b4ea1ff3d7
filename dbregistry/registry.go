package dbregistry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

const (
	logMsgDatabaseRegistered  = "database registered"
	logMsgPoolReleased        = "connection pool released"
	logMsgCloseSessionFailed  = "failed to close session"
	logMsgHealthProbeFailed   = "health probe failed"
	logAttrDBName             = "db_name"
	logAttrError              = "error"
	logAttrPoolSize           = "pool_size"
	logAttrHost               = "host"
	logAttrDatabase           = "database"
	metricSessionAcquire      = "dbregistry.session.acquire"
	metricHealthProbe         = "dbregistry.health.probe"
	metricHealthProbeFailures = "dbregistry.health.probe.failures"
	labelDBName               = "db_name"
)

type registryState int

const (
	stateUninitialized registryState = iota
	stateReady
	stateReleased
)

// Registry maps logical database names to their configuration and session factory.
//
// Lifecycle: a Registry starts uninitialized, becomes ready after one successful
// Setup or SetupAll call, and is released by Shutdown. Released is terminal: the
// maps stay readable for introspection but no sessions can be acquired and the
// registry cannot be configured again.
//
// Setup, SetupAll and Shutdown must be sequenced by the caller at process
// boundaries; they must not run concurrently with each other or with session
// acquisition. Between them the name maps are read-only, so WithSession and
// StatusInfo may be called from many goroutines.
type Registry struct {
	opener    Opener
	logger    Logger
	metrics   MetricsCollector
	factories map[string]SessionFactory
	configs   map[string]Config
	names     []string
	state     registryState
}

// Option defines a functional option for configuring a Registry.
type Option func(*Registry) error

// WithLogger sets the logger for the Registry.
//
// Info level: database registration and pool release (production-safe)
// Warn level: non-critical issues like session close failures
// Error level: failed health probes with the underlying error detail.
func WithLogger(logger Logger) Option {
	return func(r *Registry) error {
		r.logger = logger
		return nil
	}
}

// WithMetricsCollector sets the metrics collector for the Registry.
// Session acquire and health probe durations are recorded as histograms,
// probe failures as a counter labeled with the database name.
func WithMetricsCollector(metrics MetricsCollector) Option {
	return func(r *Registry) error {
		r.metrics = metrics
		return nil
	}
}

// NewRegistry creates an empty Registry that will open pools through the given Opener.
func NewRegistry(opener Opener, options ...Option) (*Registry, error) {
	if opener == nil {
		return nil, ErrNilOpener
	}

	r := &Registry{opener: opener}

	for _, option := range options {
		if err := option(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Setup configures the registry with a single database bound to DefaultDBName.
// It is equivalent to SetupAll with a one-entry map keyed by DefaultDBName.
func (r *Registry) Setup(ctx context.Context, cfg Config) error {
	return r.SetupAll(ctx, map[string]Config{DefaultDBName: cfg})
}

// SetupAll configures the registry with one database per logical name.
//
// Every config is validated before any pool is opened, so an invalid entry
// fails the whole call without side effects. Names are bound in sorted order
// and that order is retained for health probing. If opening one pool fails,
// the pools opened so far are closed and the registry stays unconfigured.
//
// Calling SetupAll on a ready registry returns ErrAlreadyConfigured instead of
// silently leaking the first set of pools; call Shutdown first.
func (r *Registry) SetupAll(ctx context.Context, cfgs map[string]Config) error {
	switch r.state {
	case stateReady:
		return ErrAlreadyConfigured
	case stateReleased:
		return ErrRegistryReleased
	}

	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if validateErr := cfgs[name].Validate(); validateErr != nil {
			return fmt.Errorf("database %q: %w", name, validateErr)
		}
	}

	factories := make(map[string]SessionFactory, len(cfgs))
	configs := make(map[string]Config, len(cfgs))

	for _, name := range names {
		factory, openErr := r.opener(ctx, cfgs[name])
		if openErr != nil {
			for _, opened := range factories {
				opened.Close()
			}

			return fmt.Errorf("database %q: %w", name, openErr)
		}

		factories[name] = factory
		configs[name] = cfgs[name]

		r.logRegistered(name, cfgs[name])
	}

	r.factories = factories
	r.configs = configs
	r.names = names
	r.state = stateReady

	return nil
}

// Shutdown releases every registered factory's pool resources and moves the
// registry to its terminal released state. The name maps are retained, so the
// post-shutdown state is "configured but released", not "uninitialized".
// Calling Shutdown before Setup returns ErrNotConfigured; calling it twice
// returns ErrRegistryReleased.
func (r *Registry) Shutdown() error {
	switch r.state {
	case stateUninitialized:
		return ErrNotConfigured
	case stateReleased:
		return ErrRegistryReleased
	}

	for _, name := range r.names {
		r.factories[name].Close()

		if r.logger != nil {
			r.logger.Info(logMsgPoolReleased, logAttrDBName, name)
		}
	}

	r.state = stateReleased

	return nil
}

// WithSession acquires a session for the named database, invokes fn with it,
// and closes the session on every exit path. An error returned by fn propagates
// to the caller after the session is closed; the registry never swallows it.
func (r *Registry) WithSession(ctx context.Context, dbName string, fn func(ctx context.Context, session Session) error) error {
	session, release, acquireErr := r.AcquireSession(ctx, dbName)
	if acquireErr != nil {
		return acquireErr
	}
	defer release()

	return fn(ctx, session)
}

// WithDefaultSession is WithSession for DefaultDBName.
func (r *Registry) WithDefaultSession(ctx context.Context, fn func(ctx context.Context, session Session) error) error {
	return r.WithSession(ctx, DefaultDBName, fn)
}

// AcquireSession hands out a session for the named database together with its
// release func. The release func is idempotent, closes the session exactly once,
// and must be called on every exit path; prefer WithSession unless a framework
// needs the bare provider form.
func (r *Registry) AcquireSession(ctx context.Context, dbName string) (Session, func(), error) {
	factory, factoryErr := r.factoryFor(dbName)
	if factoryErr != nil {
		return nil, nil, factoryErr
	}

	start := time.Now()
	session, acquireErr := factory.Acquire(ctx)
	r.recordDuration(metricSessionAcquire, time.Since(start), map[string]string{labelDBName: dbName})

	if acquireErr != nil {
		return nil, nil, fmt.Errorf("database %q: %w", dbName, errors.Join(ErrAcquiringSessionFailed, acquireErr))
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			if closeErr := session.Close(ctx); closeErr != nil && r.logger != nil {
				r.logger.Warn(logMsgCloseSessionFailed, logAttrDBName, dbName, logAttrError, closeErr.Error())
			}
		})
	}

	return session, release, nil
}

// Logger returns the logger installed via WithLogger, or nil. Engine openers
// use it to route statement echo logging through the registry's logger.
func (r *Registry) Logger() Logger {
	return r.logger
}

// Names returns the registered logical names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)

	return names
}

// ConfigFor returns the Config registered under the given logical name.
func (r *Registry) ConfigFor(dbName string) (Config, bool) {
	cfg, ok := r.configs[dbName]

	return cfg, ok
}

func (r *Registry) factoryFor(dbName string) (SessionFactory, error) {
	switch r.state {
	case stateUninitialized:
		return nil, ErrNotConfigured
	case stateReleased:
		return nil, ErrRegistryReleased
	}

	factory, ok := r.factories[dbName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDatabase, dbName)
	}

	return factory, nil
}

func (r *Registry) logRegistered(dbName string, cfg Config) {
	if r.logger == nil {
		return
	}

	locator, locatorErr := cfg.Locator()
	if locatorErr != nil {
		r.logger.Info(logMsgDatabaseRegistered, logAttrDBName, dbName, logAttrPoolSize, cfg.PoolSize)
		return
	}

	r.logger.Info(
		logMsgDatabaseRegistered,
		logAttrDBName, dbName,
		logAttrHost, locator.Host,
		logAttrDatabase, locator.Database,
		logAttrPoolSize, cfg.PoolSize,
	)
}

func (r *Registry) recordDuration(metric string, duration time.Duration, labels map[string]string) {
	if r.metrics != nil {
		r.metrics.RecordDuration(metric, duration, labels)
	}
}

func (r *Registry) incrementCounter(metric string, labels map[string]string) {
	if r.metrics != nil {
		r.metrics.IncrementCounter(metric, labels)
	}
}
