// Package adapters provides database abstraction implementations for the lending store.
//
// It supports pgx.Pool, sql.DB and sqlx.DB through common interfaces, so the
// engine's transaction and query logic stays driver-agnostic.
package adapters
