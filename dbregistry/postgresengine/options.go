package postgresengine

import (
	"github.com/AntonStoeckl/multidb-registry-go/dbregistry"
	"github.com/AntonStoeckl/multidb-registry-go/dbregistry/postgresengine/internal/adapters"
)

type settings struct {
	logger     dbregistry.Logger
	echo       bool
	autoCommit bool
}

// Option defines a functional option for configuring a session factory.
type Option func(*settings) error

// WithLogger sets the logger used for statement echo logging.
func WithLogger(logger dbregistry.Logger) Option {
	return func(s *settings) error {
		s.logger = logger
		return nil
	}
}

// WithEcho enables or disables verbose statement logging. Statements are logged
// at debug level with their duration and a per-session correlation id.
func WithEcho(echo bool) Option {
	return func(s *settings) error {
		s.echo = echo
		return nil
	}
}

// WithAutoCommit switches sessions between transaction-per-unit-of-work
// (the default) and direct statement execution.
func WithAutoCommit(autoCommit bool) Option {
	return func(s *settings) error {
		s.autoCommit = autoCommit
		return nil
	}
}

func applyOptions(base settings, options []Option) (settings, error) {
	for _, option := range options {
		if err := option(&base); err != nil {
			return settings{}, err
		}
	}

	return base, nil
}

func (s settings) behavior() adapters.Behavior {
	return adapters.Behavior{
		AutoCommit: s.autoCommit,
		Echo:       s.echo,
		Logger:     s.logger,
	}
}
