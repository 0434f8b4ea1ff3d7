package adapters

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/multidb-registry-go/dbregistry"
)

// SQLXSessionFactory implements dbregistry.SessionFactory over a sqlx.DB.
type SQLXSessionFactory struct {
	db       *sqlx.DB
	behavior Behavior
}

// NewSQLXSessionFactory creates a session factory backed by the given sqlx.DB.
func NewSQLXSessionFactory(db *sqlx.DB, behavior Behavior) *SQLXSessionFactory {
	return &SQLXSessionFactory{db: db, behavior: behavior}
}

// Acquire checks out one physical connection and wraps it as a session.
func (f *SQLXSessionFactory) Acquire(ctx context.Context) (dbregistry.Session, error) {
	conn, connErr := f.db.Connx(ctx)
	if connErr != nil {
		return nil, connErr
	}

	session := &sqlxSession{
		conn:      conn,
		behavior:  f.behavior,
		sessionID: f.behavior.NewSessionID(),
	}

	if !f.behavior.AutoCommit {
		tx, beginErr := conn.BeginTxx(ctx, nil)
		if beginErr != nil {
			_ = conn.Close()
			return nil, beginErr
		}

		session.tx = tx
	}

	return session, nil
}

// Close releases the underlying handle's pooled connections.
func (f *SQLXSessionFactory) Close() {
	_ = f.db.Close()
}

// sqlxSession implements dbregistry.Session over a sqlx connection.
type sqlxSession struct {
	conn      *sqlx.Conn
	tx        *sqlx.Tx
	behavior  Behavior
	sessionID string
	closed    bool
}

// Query executes a query within the session's transaction, or directly in autocommit mode.
func (s *sqlxSession) Query(ctx context.Context, query string, args ...any) (dbregistry.Rows, error) {
	start := time.Now()

	var rows *sqlx.Rows
	var queryErr error

	if s.tx != nil {
		rows, queryErr = s.tx.QueryxContext(ctx, query, args...)
	} else {
		rows, queryErr = s.conn.QueryxContext(ctx, query, args...)
	}

	s.behavior.LogStatement(query, s.sessionID, time.Since(start))

	if queryErr != nil {
		return nil, queryErr
	}

	return &stdRows{rows: rows.Rows}, nil
}

// Exec executes a statement within the session's transaction, or directly in autocommit mode.
func (s *sqlxSession) Exec(ctx context.Context, query string, args ...any) (dbregistry.Result, error) {
	start := time.Now()

	var result sql.Result
	var execErr error

	if s.tx != nil {
		result, execErr = s.tx.ExecContext(ctx, query, args...)
	} else {
		result, execErr = s.conn.ExecContext(ctx, query, args...)
	}

	s.behavior.LogStatement(query, s.sessionID, time.Since(start))

	if execErr != nil {
		return nil, execErr
	}

	return &stdResult{result: result}, nil
}

// Commit commits the session's transaction. In autocommit mode it is a no-op.
func (s *sqlxSession) Commit(_ context.Context) error {
	if s.tx == nil {
		return nil
	}

	commitErr := s.tx.Commit()
	s.tx = nil

	return commitErr
}

// Rollback rolls back the session's transaction. In autocommit mode it is a no-op.
func (s *sqlxSession) Rollback(_ context.Context) error {
	if s.tx == nil {
		return nil
	}

	rollbackErr := s.tx.Rollback()
	s.tx = nil

	return rollbackErr
}

// Close rolls back an open transaction and returns the connection to the pool.
// Closing an already closed session is a no-op.
func (s *sqlxSession) Close(_ context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	var rollbackErr error

	if s.tx != nil {
		rollbackErr = s.tx.Rollback()
		if errors.Is(rollbackErr, sql.ErrTxDone) {
			rollbackErr = nil
		}

		s.tx = nil
	}

	closeErr := s.conn.Close()
	if rollbackErr != nil {
		return rollbackErr
	}

	return closeErr
}
