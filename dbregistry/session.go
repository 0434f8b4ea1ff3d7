package dbregistry

import "context"

// Session is a transactional unit of work bound to one physical connection.
// A session is exclusively owned by the caller that acquired it until released;
// it must never be shared across goroutines.
type Session interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Exec(ctx context.Context, query string, args ...any) (Result, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}

// Rows defines the interface for query result rows. Err reports errors the
// server raised after the query was sent (connection loss mid-result,
// statement timeout); drivers surface those only during iteration, so callers
// must check Err once Next returns false.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Result defines the interface for execution results.
type Result interface {
	RowsAffected() (int64, error)
}

// SessionFactory hands out sessions backed by one connection pool.
type SessionFactory interface {
	Acquire(ctx context.Context) (Session, error)
	Close()
}

// Opener builds a SessionFactory for one Config. It is the seam between the
// registry and a concrete engine, so the registry stays engine-agnostic and
// tests can substitute fakes.
type Opener func(ctx context.Context, cfg Config) (SessionFactory, error)
