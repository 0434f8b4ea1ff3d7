package dbregistry

import (
	"context"
	"errors"
	"time"
)

const probeQuery = "SELECT version()"

// errProbeNoRows marks a liveness query that came back without a version row.
// pgx defers some query failures to Rows.Err, so an empty result is either a
// deferred error or a server misbehaving; both count as a failed probe.
var errProbeNoRows = errors.New("liveness query returned no rows")

// Per-database status values reported by StatusInfo.
const (
	StatusOK     = "OK"
	StatusFailed = "FAILED"
)

// Status is the health record of one registered database.
type Status struct {
	Status string `json:"status"`
}

// StatusInfo probes every registered database in registration order and returns
// a per-database status record plus one aggregate bool that is true only if
// every database reported OK. A registry with zero entries reports an empty
// map and true.
//
// Each probe is an isolated error containment boundary: a failure on one
// database is logged and recorded as FAILED without aborting the probe of the
// remaining databases, and probe failures never surface as the returned error.
// The error is only the registry state check (ErrNotConfigured before Setup,
// ErrRegistryReleased after Shutdown).
func (r *Registry) StatusInfo(ctx context.Context) (map[string]Status, bool, error) {
	switch r.state {
	case stateUninitialized:
		return nil, false, ErrNotConfigured
	case stateReleased:
		return nil, false, ErrRegistryReleased
	}

	statusInfo := make(map[string]Status, len(r.names))
	allOK := true

	for _, name := range r.names {
		if probeErr := r.probe(ctx, name); probeErr != nil {
			if r.logger != nil {
				r.logger.Error(logMsgHealthProbeFailed, logAttrDBName, name, logAttrError, probeErr.Error())
			}
			r.incrementCounter(metricHealthProbeFailures, map[string]string{labelDBName: name})

			statusInfo[name] = Status{Status: StatusFailed}
			allOK = false

			continue
		}

		statusInfo[name] = Status{Status: StatusOK}
	}

	return statusInfo, allOK, nil
}

// probe runs one lightweight liveness query against the named database using a
// freshly acquired session, releasing the session regardless of outcome.
func (r *Registry) probe(ctx context.Context, dbName string) error {
	start := time.Now()
	defer func() {
		r.recordDuration(metricHealthProbe, time.Since(start), map[string]string{labelDBName: dbName})
	}()

	session, acquireErr := r.factories[dbName].Acquire(ctx)
	if acquireErr != nil {
		return acquireErr
	}

	defer func() {
		if closeErr := session.Close(ctx); closeErr != nil && r.logger != nil {
			r.logger.Warn(logMsgCloseSessionFailed, logAttrDBName, dbName, logAttrError, closeErr.Error())
		}
	}()

	rows, queryErr := session.Query(ctx, probeQuery)
	if queryErr != nil {
		return queryErr
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if iterErr := rows.Err(); iterErr != nil {
			return iterErr
		}

		return errProbeNoRows
	}

	var serverVersion string
	if scanErr := rows.Scan(&serverVersion); scanErr != nil {
		return scanErr
	}

	return rows.Err()
}
