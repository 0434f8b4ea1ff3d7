package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AntonStoeckl/multidb-registry-go/dbregistry"
)

// PGXSessionFactory implements dbregistry.SessionFactory over a pgxpool.Pool.
type PGXSessionFactory struct {
	pool     *pgxpool.Pool
	behavior Behavior
}

// NewPGXSessionFactory creates a session factory backed by the given pool.
func NewPGXSessionFactory(pool *pgxpool.Pool, behavior Behavior) *PGXSessionFactory {
	return &PGXSessionFactory{pool: pool, behavior: behavior}
}

// Acquire checks out one physical connection and wraps it as a session.
// Unless the factory runs in autocommit mode, a transaction is begun on acquire
// and the session's statements execute inside it.
func (f *PGXSessionFactory) Acquire(ctx context.Context) (dbregistry.Session, error) {
	conn, acquireErr := f.pool.Acquire(ctx)
	if acquireErr != nil {
		return nil, acquireErr
	}

	session := &pgxSession{
		conn:      conn,
		behavior:  f.behavior,
		sessionID: f.behavior.NewSessionID(),
	}

	if !f.behavior.AutoCommit {
		tx, beginErr := conn.Begin(ctx)
		if beginErr != nil {
			conn.Release()
			return nil, beginErr
		}

		session.tx = tx
	}

	return session, nil
}

// Close releases the underlying pool's resources.
func (f *PGXSessionFactory) Close() {
	f.pool.Close()
}

// pgxSession implements dbregistry.Session over a pooled pgx connection.
type pgxSession struct {
	conn      *pgxpool.Conn
	tx        pgx.Tx
	behavior  Behavior
	sessionID string
	closed    bool
}

// Query executes a query within the session's transaction, or directly in autocommit mode.
func (s *pgxSession) Query(ctx context.Context, query string, args ...any) (dbregistry.Rows, error) {
	start := time.Now()

	var rows pgx.Rows
	var queryErr error

	if s.tx != nil {
		rows, queryErr = s.tx.Query(ctx, query, args...)
	} else {
		rows, queryErr = s.conn.Query(ctx, query, args...)
	}

	s.behavior.LogStatement(query, s.sessionID, time.Since(start))

	if queryErr != nil {
		return nil, queryErr
	}

	return &pgxRows{rows: rows}, nil
}

// Exec executes a statement within the session's transaction, or directly in autocommit mode.
func (s *pgxSession) Exec(ctx context.Context, query string, args ...any) (dbregistry.Result, error) {
	start := time.Now()

	var tag pgconn.CommandTag
	var execErr error

	if s.tx != nil {
		tag, execErr = s.tx.Exec(ctx, query, args...)
	} else {
		tag, execErr = s.conn.Exec(ctx, query, args...)
	}

	s.behavior.LogStatement(query, s.sessionID, time.Since(start))

	if execErr != nil {
		return nil, execErr
	}

	return &pgxResult{tag: tag}, nil
}

// Commit commits the session's transaction. In autocommit mode it is a no-op.
func (s *pgxSession) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}

	commitErr := s.tx.Commit(ctx)
	s.tx = nil

	return commitErr
}

// Rollback rolls back the session's transaction. In autocommit mode it is a no-op.
func (s *pgxSession) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}

	rollbackErr := s.tx.Rollback(ctx)
	s.tx = nil

	return rollbackErr
}

// Close rolls back an open transaction and returns the connection to the pool.
// Closing an already closed session is a no-op.
func (s *pgxSession) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	var rollbackErr error

	if s.tx != nil {
		rollbackErr = s.tx.Rollback(ctx)
		if errors.Is(rollbackErr, pgx.ErrTxClosed) {
			rollbackErr = nil
		}

		s.tx = nil
	}

	s.conn.Release()

	return rollbackErr
}

// pgxRows wraps pgx.Rows to implement the dbregistry.Rows interface.
type pgxRows struct {
	rows pgx.Rows
}

// Next advances to the next row.
func (p *pgxRows) Next() bool {
	return p.rows.Next()
}

// Scan copies row values into provided destinations.
func (p *pgxRows) Scan(dest ...any) error {
	return p.rows.Scan(dest...)
}

// Err returns any error raised while reading the result, including failures
// the server reported after the query was sent.
func (p *pgxRows) Err() error {
	return p.rows.Err()
}

// Close closes the rows iterator.
func (p *pgxRows) Close() error {
	p.rows.Close()
	return nil
}

// pgxResult wraps pgconn.CommandTag to implement the dbregistry.Result interface.
type pgxResult struct {
	tag pgconn.CommandTag
}

// RowsAffected returns the number of rows affected by the command.
func (p *pgxResult) RowsAffected() (int64, error) {
	return p.tag.RowsAffected(), nil
}
