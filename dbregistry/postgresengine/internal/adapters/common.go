package adapters

import (
	"database/sql"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/multidb-registry-go/dbregistry"
)

const (
	logMsgStatementExecuted = "executed sql statement"
	logAttrSessionID        = "session_id"
	logAttrDurationMS       = "duration_ms"
	logAttrQuery            = "query"
)

// Behavior carries the session tuning shared by all adapters: whether sessions
// run a transaction per unit of work (AutoCommit false, the default) or execute
// statements directly, and whether executed statements are echoed to the logger.
type Behavior struct {
	AutoCommit bool
	Echo       bool
	Logger     dbregistry.Logger
}

// NewSessionID returns a correlation id for statement echo logging.
// Only assigned when echo logging is active.
func (b Behavior) NewSessionID() string {
	if !b.Echo || b.Logger == nil {
		return ""
	}

	return uuid.NewString()
}

// LogStatement echoes an executed statement with its duration at debug level.
func (b Behavior) LogStatement(query string, sessionID string, duration time.Duration) {
	if !b.Echo || b.Logger == nil {
		return
	}

	b.Logger.Debug(
		logMsgStatementExecuted,
		logAttrSessionID, sessionID,
		logAttrDurationMS, durationToMilliseconds(duration),
		logAttrQuery, query,
	)
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// stdRows wraps standard library sql.Rows to implement the dbregistry.Rows interface.
type stdRows struct {
	rows *sql.Rows
}

// Next advances to the next row.
func (s *stdRows) Next() bool {
	return s.rows.Next()
}

// Scan copies row values into provided destinations.
func (s *stdRows) Scan(dest ...any) error {
	return s.rows.Scan(dest...)
}

// Err returns any error raised during iteration.
func (s *stdRows) Err() error {
	return s.rows.Err()
}

// Close closes the rows iterator.
func (s *stdRows) Close() error {
	return s.rows.Close()
}

// stdResult wraps standard library sql.Result to implement the dbregistry.Result interface.
type stdResult struct {
	result sql.Result
}

// RowsAffected returns the number of rows affected by the command.
func (s *stdResult) RowsAffected() (int64, error) {
	return s.result.RowsAffected()
}
