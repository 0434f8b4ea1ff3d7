// Package postgresengine turns a dbregistry.Config into a live, poolable
// connection resource and a session factory bound to it.
//
// Open is the production dbregistry.Opener and builds a pgxpool-backed factory.
// For callers that already manage a database handle, factories can be built
// over an existing pgxpool.Pool, database/sql DB (with a postgres driver such
// as lib/pq), or sqlx.DB.
package postgresengine
