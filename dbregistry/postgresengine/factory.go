package postgresengine

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/multidb-registry-go/dbregistry"
	"github.com/AntonStoeckl/multidb-registry-go/dbregistry/postgresengine/internal/adapters"
)

// Open builds a pgxpool-backed session factory from the given Config.
// It is the production dbregistry.Opener: pool size, liveness pre-ping,
// executemany mode, and the JSON column codec pair are all applied from the
// Config. The pool connects lazily; the first physical connection is opened on
// first acquisition.
func Open(ctx context.Context, cfg dbregistry.Config, options ...Option) (dbregistry.SessionFactory, error) {
	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, validateErr
	}

	poolCfg, parseErr := pgxpool.ParseConfig(cfg.DSN)
	if parseErr != nil {
		return nil, errors.Join(dbregistry.ErrInvalidConfig, parseErr)
	}

	poolCfg.MaxConns = cfg.PoolSize

	if mode, ok := queryExecModeFor(cfg.ExecuteManyMode); ok {
		poolCfg.ConnConfig.DefaultQueryExecMode = mode
	}

	if cfg.PoolPrePing {
		poolCfg.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
			return conn.Ping(ctx) == nil
		}
	}

	if cfg.Serializer != nil && cfg.Deserializer != nil {
		poolCfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
			registerJSONCodecs(conn, cfg.Serializer, cfg.Deserializer)
			return nil
		}
	}

	pool, poolErr := pgxpool.NewWithConfig(ctx, poolCfg)
	if poolErr != nil {
		return nil, errors.Join(dbregistry.ErrOpeningPoolFailed, poolErr)
	}

	applied, optionErr := applyOptions(settings{echo: cfg.Echo, autoCommit: cfg.AutoCommit}, options)
	if optionErr != nil {
		pool.Close()
		return nil, optionErr
	}

	return adapters.NewPGXSessionFactory(pool, applied.behavior()), nil
}

// NewSessionFactoryFromPGXPool creates a session factory over a caller-provided pgx pool.
func NewSessionFactoryFromPGXPool(pool *pgxpool.Pool, options ...Option) (dbregistry.SessionFactory, error) {
	if pool == nil {
		return nil, dbregistry.ErrNilDatabaseHandle
	}

	applied, optionErr := applyOptions(settings{}, options)
	if optionErr != nil {
		return nil, optionErr
	}

	return adapters.NewPGXSessionFactory(pool, applied.behavior()), nil
}

// NewSessionFactoryFromSQLDB creates a session factory over a caller-provided sql.DB.
func NewSessionFactoryFromSQLDB(db *sql.DB, options ...Option) (dbregistry.SessionFactory, error) {
	if db == nil {
		return nil, dbregistry.ErrNilDatabaseHandle
	}

	applied, optionErr := applyOptions(settings{}, options)
	if optionErr != nil {
		return nil, optionErr
	}

	return adapters.NewSQLSessionFactory(db, applied.behavior()), nil
}

// NewSessionFactoryFromSQLX creates a session factory over a caller-provided sqlx.DB.
func NewSessionFactoryFromSQLX(db *sqlx.DB, options ...Option) (dbregistry.SessionFactory, error) {
	if db == nil {
		return nil, dbregistry.ErrNilDatabaseHandle
	}

	applied, optionErr := applyOptions(settings{}, options)
	if optionErr != nil {
		return nil, optionErr
	}

	return adapters.NewSQLXSessionFactory(db, applied.behavior()), nil
}

// queryExecModeFor maps a Config executemany mode to the pgx query exec mode.
// An empty mode keeps the pgx default.
func queryExecModeFor(mode string) (pgx.QueryExecMode, bool) {
	switch mode {
	case dbregistry.ExecuteManySimpleProtocol:
		return pgx.QueryExecModeSimpleProtocol, true
	case dbregistry.ExecuteManyExec:
		return pgx.QueryExecModeExec, true
	case dbregistry.ExecuteManyCacheStatement:
		return pgx.QueryExecModeCacheStatement, true
	case dbregistry.ExecuteManyCacheDescribe:
		return pgx.QueryExecModeCacheDescribe, true
	default:
		return 0, false
	}
}

// registerJSONCodecs installs the Config's serializer pair as the json and
// jsonb column codecs on a freshly opened connection.
func registerJSONCodecs(conn *pgx.Conn, serializer dbregistry.SerializerFunc, deserializer dbregistry.DeserializerFunc) {
	typeMap := conn.TypeMap()

	typeMap.RegisterType(&pgtype.Type{
		Name: "json",
		OID:  pgtype.JSONOID,
		Codec: &pgtype.JSONCodec{
			Marshal:   serializer,
			Unmarshal: deserializer,
		},
	})

	typeMap.RegisterType(&pgtype.Type{
		Name: "jsonb",
		OID:  pgtype.JSONBOID,
		Codec: &pgtype.JSONBCodec{
			Marshal:   serializer,
			Unmarshal: deserializer,
		},
	})
}
