package dbregistry

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"github.com/kelseyhightower/envconfig"
)

// DefaultDBName is the logical name bound when Setup is called with a single Config.
const DefaultDBName = "default"

const defaultPoolSize = int32(50)

// Recognized ExecuteManyMode values. An empty mode leaves the engine default in place.
const (
	ExecuteManySimpleProtocol = "simple_protocol"
	ExecuteManyExec           = "exec"
	ExecuteManyCacheStatement = "cache_statement"
	ExecuteManyCacheDescribe  = "cache_describe"
)

// SerializerFunc encodes a structured column value to its wire representation.
type SerializerFunc = func(v any) ([]byte, error)

// DeserializerFunc decodes a structured column value from its wire representation.
type DeserializerFunc = func(data []byte, v any) error

var stdJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Config describes how to reach and tune one database.
// It is a value object: built by the caller before Setup and never mutated by the registry.
//
// AutoFlush and ExpireOnCommit are ORM-session hints kept for configuration parity
// and diagnostic display; they have no engine-level effect in this layer.
type Config struct {
	DSN             string
	PoolSize        int32
	PoolPrePing     bool
	Echo            bool
	AutoCommit      bool
	AutoFlush       bool
	ExpireOnCommit  bool
	ExecuteManyMode string
	Serializer      SerializerFunc
	Deserializer    DeserializerFunc
}

// NewConfig builds a Config for the given DSN with default tuning:
// pool size 50, liveness pre-ping enabled, transactional sessions,
// and a stdlib-compatible JSON codec pair for structured column values.
func NewConfig(dsn string) Config {
	return Config{
		DSN:          dsn,
		PoolSize:     defaultPoolSize,
		PoolPrePing:  true,
		Serializer:   stdJSON.Marshal,
		Deserializer: stdJSON.Unmarshal,
	}
}

// Validate checks that the Config describes a reachable, sanely tuned database.
// All failures are reported as ErrInvalidConfig joined with the underlying detail.
func (c Config) Validate() error {
	if c.DSN == "" {
		return errors.Join(ErrInvalidConfig, errors.New("empty DSN supplied"))
	}

	if _, parseErr := pgxpool.ParseConfig(c.DSN); parseErr != nil {
		return errors.Join(ErrInvalidConfig, parseErr)
	}

	if c.PoolSize <= 0 {
		return errors.Join(ErrInvalidConfig, fmt.Errorf("pool size must be positive, got %d", c.PoolSize))
	}

	switch c.ExecuteManyMode {
	case "", ExecuteManySimpleProtocol, ExecuteManyExec, ExecuteManyCacheStatement, ExecuteManyCacheDescribe:
	default:
		return errors.Join(ErrInvalidConfig, fmt.Errorf("unknown executemany mode %q", c.ExecuteManyMode))
	}

	return nil
}

// Locator is the decomposed connection target of a Config, for diagnostic display.
// It never carries the password.
type Locator struct {
	Host     string
	Port     uint16
	User     string
	Database string
}

// Locator decomposes the DSN into its connection target fields.
func (c Config) Locator() (Locator, error) {
	poolCfg, parseErr := pgxpool.ParseConfig(c.DSN)
	if parseErr != nil {
		return Locator{}, errors.Join(ErrInvalidConfig, parseErr)
	}

	connCfg := poolCfg.ConnConfig

	return Locator{
		Host:     connCfg.Host,
		Port:     connCfg.Port,
		User:     connCfg.User,
		Database: connCfg.Database,
	}, nil
}

type envSpec struct {
	DSN             string `envconfig:"DSN" required:"true"`
	PoolSize        int32  `envconfig:"POOL_SIZE" default:"50"`
	PoolPrePing     bool   `envconfig:"POOL_PRE_PING" default:"true"`
	Echo            bool   `envconfig:"ECHO" default:"false"`
	AutoCommit      bool   `envconfig:"AUTO_COMMIT" default:"false"`
	AutoFlush       bool   `envconfig:"AUTO_FLUSH" default:"false"`
	ExpireOnCommit  bool   `envconfig:"EXPIRE_ON_COMMIT" default:"false"`
	ExecuteManyMode string `envconfig:"EXECUTEMANY_MODE" default:""`
}

// ConfigFromEnv loads a validated Config from environment variables carrying the
// given prefix, e.g. prefix "APPDB" reads APPDB_DSN, APPDB_POOL_SIZE and so on.
// The serializer pair keeps the NewConfig default.
func ConfigFromEnv(prefix string) (Config, error) {
	var spec envSpec

	if processErr := envconfig.Process(prefix, &spec); processErr != nil {
		return Config{}, errors.Join(ErrInvalidConfig, processErr)
	}

	cfg := NewConfig(spec.DSN)
	cfg.PoolSize = spec.PoolSize
	cfg.PoolPrePing = spec.PoolPrePing
	cfg.Echo = spec.Echo
	cfg.AutoCommit = spec.AutoCommit
	cfg.AutoFlush = spec.AutoFlush
	cfg.ExpireOnCommit = spec.ExpireOnCommit
	cfg.ExecuteManyMode = spec.ExecuteManyMode

	if validateErr := cfg.Validate(); validateErr != nil {
		return Config{}, validateErr
	}

	return cfg, nil
}
