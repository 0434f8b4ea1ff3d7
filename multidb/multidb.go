// Package multidb exposes one process-wide registry with the same contract as
// dbregistry.Registry, for frameworks that expect bare provider functions
// rather than an injected registry object.
//
// Ordering is the caller's responsibility and mirrors the registry's lifecycle:
// call Setup (or SetupAll) once during process start-up before any session or
// status operation, and Shutdown exactly once at graceful termination. The
// process registry opens pools through postgresengine.Open.
package multidb

import (
	"context"

	"github.com/AntonStoeckl/multidb-registry-go/dbregistry"
	"github.com/AntonStoeckl/multidb-registry-go/dbregistry/postgresengine"
)

var processRegistry = mustNewProcessRegistry(nil)

// engineOpenFunc matches postgresengine.Open, so tests can substitute an open
// func backed by a caller-provided database handle.
type engineOpenFunc func(ctx context.Context, cfg dbregistry.Config, options ...postgresengine.Option) (dbregistry.SessionFactory, error)

// newProcessOpener adapts an engine open func to the registry's Opener seam,
// forwarding the registry's logger so Config.Echo statement logging reaches it.
// loggerOf is resolved per open call because the opener is built before the
// registry it serves.
func newProcessOpener(open engineOpenFunc, loggerOf func() dbregistry.Logger) dbregistry.Opener {
	return func(ctx context.Context, cfg dbregistry.Config) (dbregistry.SessionFactory, error) {
		return open(ctx, cfg, postgresengine.WithLogger(loggerOf()))
	}
}

func mustNewProcessRegistry(options []dbregistry.Option) *dbregistry.Registry {
	var registry *dbregistry.Registry

	opener := newProcessOpener(postgresengine.Open, func() dbregistry.Logger {
		return registry.Logger()
	})

	built, err := dbregistry.NewRegistry(opener, options...)
	if err != nil {
		panic(err)
	}

	registry = built

	return registry
}

// Setup configures the process registry with a single database bound to
// dbregistry.DefaultDBName.
func Setup(ctx context.Context, cfg dbregistry.Config) error {
	return processRegistry.Setup(ctx, cfg)
}

// SetupAll configures the process registry with one database per logical name.
func SetupAll(ctx context.Context, cfgs map[string]dbregistry.Config) error {
	return processRegistry.SetupAll(ctx, cfgs)
}

// Shutdown releases every pool held by the process registry.
func Shutdown() error {
	return processRegistry.Shutdown()
}

// WithSession runs fn inside a scoped session for the named database,
// closing the session on every exit path.
func WithSession(ctx context.Context, dbName string, fn func(ctx context.Context, session dbregistry.Session) error) error {
	return processRegistry.WithSession(ctx, dbName, fn)
}

// WithDefaultSession is WithSession for dbregistry.DefaultDBName.
func WithDefaultSession(ctx context.Context, fn func(ctx context.Context, session dbregistry.Session) error) error {
	return processRegistry.WithDefaultSession(ctx, fn)
}

// GetSession hands out a session for the named database together with its
// release func, for dependency-injection systems that expect a bare resource
// provider. The release func closes the session exactly once and must be
// called on every exit path, typically via defer at the acquisition site.
func GetSession(ctx context.Context, dbName string) (dbregistry.Session, func(), error) {
	return processRegistry.AcquireSession(ctx, dbName)
}

// StatusInfo probes every database registered in the process registry.
func StatusInfo(ctx context.Context) (map[string]dbregistry.Status, bool, error) {
	return processRegistry.StatusInfo(ctx)
}

// Registry returns the process registry for introspection.
func Registry() *dbregistry.Registry {
	return processRegistry
}

// Reset replaces the process registry with a fresh, unconfigured one built with
// the given options. It does not shut the old registry down. Intended for tests
// that need a clean lifecycle; production code sets up the registry once.
func Reset(options ...dbregistry.Option) {
	processRegistry = mustNewProcessRegistry(options)
}
