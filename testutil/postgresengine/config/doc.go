// Package config provides PostgreSQL database configuration for lending store
// testing.
//
// It contains factory functions for creating database connections with each of
// the supported PostgreSQL adapters (pgx.Pool, sql.DB, sqlx.DB) against the
// pre-configured test database DSN.
package config
