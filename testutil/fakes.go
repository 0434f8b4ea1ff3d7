// Package testutil provides in-memory fakes for the dbregistry session
// interfaces, so registry lifecycle and health behavior can be tested without
// a live database.
package testutil

import (
	"context"
	"fmt"

	"github.com/AntonStoeckl/multidb-registry-go/dbregistry"
)

// FakeVersionString is what a fake session's probe row scans into a *string.
const FakeVersionString = "PostgreSQL 16.3 (fake)"

// FakeSessionFactory implements dbregistry.SessionFactory and records every
// session it handed out, so tests can assert on close counts after the fact.
type FakeSessionFactory struct {
	AcquireErr error // returned by Acquire when set
	QueryErr   error // injected into every session handed out
	ExecErr    error // injected into every session handed out
	RowsErr    error // deferred to Rows.Err on every result handed out
	CloseCalls int
	Sessions   []*FakeSession
}

// Acquire hands out a new fake session, or AcquireErr when set.
func (f *FakeSessionFactory) Acquire(_ context.Context) (dbregistry.Session, error) {
	if f.AcquireErr != nil {
		return nil, f.AcquireErr
	}

	session := &FakeSession{QueryErr: f.QueryErr, ExecErr: f.ExecErr, RowsErr: f.RowsErr}
	f.Sessions = append(f.Sessions, session)

	return session, nil
}

// Close records the pool release.
func (f *FakeSessionFactory) Close() {
	f.CloseCalls++
}

// LastSession returns the most recently acquired session, or nil.
func (f *FakeSessionFactory) LastSession() *FakeSession {
	if len(f.Sessions) == 0 {
		return nil
	}

	return f.Sessions[len(f.Sessions)-1]
}

// FakeSession implements dbregistry.Session and counts lifecycle calls.
type FakeSession struct {
	QueryErr   error
	ExecErr    error
	RowsErr    error // result iterates zero rows and reports this from Err
	Statements []string
	CloseCalls int
	Commits    int
	Rollbacks  int
}

// Query records the statement and returns a single fake version row, or QueryErr
// when set. When RowsErr is set the result instead mimics a driver deferring the
// failure: zero rows iterated, the error reported only from Rows.Err.
func (s *FakeSession) Query(_ context.Context, query string, _ ...any) (dbregistry.Rows, error) {
	s.Statements = append(s.Statements, query)

	if s.QueryErr != nil {
		return nil, s.QueryErr
	}

	return &fakeRows{deferredErr: s.RowsErr}, nil
}

// Exec records the statement and reports one row affected, or ExecErr when set.
func (s *FakeSession) Exec(_ context.Context, query string, _ ...any) (dbregistry.Result, error) {
	s.Statements = append(s.Statements, query)

	if s.ExecErr != nil {
		return nil, s.ExecErr
	}

	return fakeResult{}, nil
}

// Commit counts the call.
func (s *FakeSession) Commit(_ context.Context) error {
	s.Commits++
	return nil
}

// Rollback counts the call.
func (s *FakeSession) Rollback(_ context.Context) error {
	s.Rollbacks++
	return nil
}

// Close counts the call.
func (s *FakeSession) Close(_ context.Context) error {
	s.CloseCalls++
	return nil
}

type fakeRows struct {
	deferredErr error
	consumed    bool
}

func (r *fakeRows) Next() bool {
	if r.consumed || r.deferredErr != nil {
		return false
	}
	r.consumed = true

	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if len(dest) != 1 {
		return fmt.Errorf("expected 1 scan destination, got %d", len(dest))
	}

	target, ok := dest[0].(*string)
	if !ok {
		return fmt.Errorf("expected *string scan destination, got %T", dest[0])
	}

	*target = FakeVersionString

	return nil
}

func (r *fakeRows) Err() error {
	return r.deferredErr
}

func (r *fakeRows) Close() error {
	return nil
}

type fakeResult struct{}

func (fakeResult) RowsAffected() (int64, error) {
	return 1, nil
}

// OpenerForDSNs returns a dbregistry.Opener that resolves factories by the
// Config's DSN, so tests can wire one fake factory per logical database.
func OpenerForDSNs(factoriesByDSN map[string]*FakeSessionFactory) dbregistry.Opener {
	return func(_ context.Context, cfg dbregistry.Config) (dbregistry.SessionFactory, error) {
		factory, ok := factoriesByDSN[cfg.DSN]
		if !ok {
			return nil, fmt.Errorf("no fake factory wired for DSN %q", cfg.DSN)
		}

		return factory, nil
	}
}

// OpenerReturning returns a dbregistry.Opener that always fails with err.
func OpenerReturning(err error) dbregistry.Opener {
	return func(_ context.Context, _ dbregistry.Config) (dbregistry.SessionFactory, error) {
		return nil, err
	}
}

// SingleOpener returns a dbregistry.Opener that always hands out the given factory.
func SingleOpener(factory *FakeSessionFactory) dbregistry.Opener {
	return func(_ context.Context, _ dbregistry.Config) (dbregistry.SessionFactory, error) {
		return factory, nil
	}
}
