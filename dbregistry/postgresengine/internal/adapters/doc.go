// Package adapters provides session adapters over the supported database
// backends (pgxpool.Pool, database/sql, sqlx), implementing the
// dbregistry.Session and dbregistry.SessionFactory interfaces.
package adapters
