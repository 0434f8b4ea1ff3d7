package dbregistry

import (
	"errors"
)

var ErrInvalidConfig = errors.New("invalid database configuration")
var ErrNotConfigured = errors.New("registry is not configured, call Setup first")
var ErrAlreadyConfigured = errors.New("registry is already configured, call Shutdown before configuring again")
var ErrRegistryReleased = errors.New("registry pools have been released")
var ErrUnknownDatabase = errors.New("unknown database name")
var ErrNilOpener = errors.New("nil opener supplied")
var ErrNilDatabaseHandle = errors.New("nil database handle supplied")
var ErrOpeningPoolFailed = errors.New("opening connection pool failed")
var ErrAcquiringSessionFailed = errors.New("acquiring session failed")
