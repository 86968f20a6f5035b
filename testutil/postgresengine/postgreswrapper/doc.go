// Package postgreswrapper provides multi-adapter test wrappers for the
// PostgreSQL lending store.
//
// Adapter selection is controlled by the ADAPTER_TYPE environment variable
// (pgx.pool, sql.db, sqlx.db), so the same test suite exercises every
// supported driver.
package postgreswrapper
