// Package postgresengine provides the PostgreSQL implementation of the lending
// store: atomic borrow/return transactions guarded by exclusive row locks,
// read-only loan scans, and catalog management for books and borrowers.
//
// The engine works through a small database adapter interface and supports
// pgx pools, database/sql and sqlx connections interchangeably. All SQL is
// built with goqu and executed without bind parameters.
package postgresengine
