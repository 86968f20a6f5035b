package postgreswrapper

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/askard/lendingstore-go/lendingstore/postgresengine"
	"github.com/askard/lendingstore-go/testutil/postgresengine/config"
)

// Engine type constants
const (
	typePGXPool = "pgx.pool"
	typeSQLDB   = "sql.db"
	typeSQLXDB  = "sqlx.db"
)

// allTables lists every table the lending store touches, in FK-safe truncation order.
var allTables = []string{"loans", "books", "borrowers"}

// Wrapper interface to abstract over different engine types
type Wrapper interface {
	GetLendingStore() *postgresengine.LendingStore
	Close()
}

// PGXPoolWrapper wraps pgxpool-based testing
type PGXPoolWrapper struct {
	pool  *pgxpool.Pool
	store *postgresengine.LendingStore
}

func (w *PGXPoolWrapper) GetLendingStore() *postgresengine.LendingStore {
	return w.store
}

func (w *PGXPoolWrapper) Close() {
	w.pool.Close()
}

// SQLDBWrapper wraps sql.DB-based testing
type SQLDBWrapper struct {
	db    *sql.DB
	store *postgresengine.LendingStore
}

func (w *SQLDBWrapper) GetLendingStore() *postgresengine.LendingStore {
	return w.store
}

func (w *SQLDBWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// SQLXWrapper wraps sqlx.DB-based testing
type SQLXWrapper struct {
	db    *sqlx.DB
	store *postgresengine.LendingStore
}

func (w *SQLXWrapper) GetLendingStore() *postgresengine.LendingStore {
	return w.store
}

func (w *SQLXWrapper) Close() {
	_ = w.db.Close() // ignore error
}

// CreateWrapperWithTestConfig creates the appropriate wrapper based on the
// ADAPTER_TYPE environment variable (pgx.pool, sql.db, sqlx.db; empty means
// pgx.pool). The given options are passed through to the lending store.
func CreateWrapperWithTestConfig(t testing.TB, options ...postgresengine.Option) Wrapper {
	engineTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch engineTypeFromEnv {
	case typePGXPool, "":
		connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
		assert.NoError(t, err, "error connecting to DB pool in test setup")

		store, err := postgresengine.NewLendingStoreFromPGXPool(connPool, options...)
		assert.NoError(t, err, "error creating lending store")

		return &PGXPoolWrapper{pool: connPool, store: store}

	case typeSQLDB:
		db := config.PostgresSQLDBTestConfig()

		store, err := postgresengine.NewLendingStoreFromSQLDB(db, options...)
		assert.NoError(t, err, "error creating lending store")

		return &SQLDBWrapper{db: db, store: store}

	case typeSQLXDB:
		db := config.PostgresSQLXTestConfig()

		store, err := postgresengine.NewLendingStoreFromSQLX(db, options...)
		assert.NoError(t, err, "error creating lending store")

		return &SQLXWrapper{db: db, store: store}

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", engineTypeFromEnv))
	}
}

// TryCreateLendingStoreWithOptions tries to create a lending store with the
// given options and returns the error, for testing option validation.
func TryCreateLendingStoreWithOptions(t testing.TB, options ...postgresengine.Option) error {
	engineTypeFromEnv := strings.ToLower(os.Getenv("ADAPTER_TYPE"))

	switch engineTypeFromEnv {
	case typePGXPool, "":
		connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolTestConfig())
		assert.NoError(t, err, "error connecting to DB pool in test setup")
		defer connPool.Close()

		_, err = postgresengine.NewLendingStoreFromPGXPool(connPool, options...)

		return err

	case typeSQLDB:
		db := config.PostgresSQLDBTestConfig()
		defer func(db *sql.DB) {
			_ = db.Close() // makes no sense to handle this
		}(db)

		_, err := postgresengine.NewLendingStoreFromSQLDB(db, options...)

		return err

	case typeSQLXDB:
		db := config.PostgresSQLXTestConfig()
		defer func(db *sqlx.DB) {
			_ = db.Close() // makes no sense to handle this
		}(db)

		_, err := postgresengine.NewLendingStoreFromSQLX(db, options...)

		return err

	default: // neither one of the known types nor empty
		panic(fmt.Sprintf("unsupported wrapper type from env: %s", engineTypeFromEnv))
	}
}

// CleanUp truncates all lending tables for test isolation.
func CleanUp(t testing.TB, wrapper Wrapper) {
	query := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(allTables, ", "))

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		_, err := w.pool.Exec(context.Background(), query)
		assert.NoError(t, err, "error cleaning up the lending tables")

	case *SQLDBWrapper:
		_, err := w.db.Exec(query)
		assert.NoError(t, err, "error cleaning up the lending tables")

	case *SQLXWrapper:
		_, err := w.db.Exec(query)
		assert.NoError(t, err, "error cleaning up the lending tables")

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}
}

// GetAvailableQuantityFromDB reads a book's available quantity directly,
// bypassing the store, to verify committed state.
func GetAvailableQuantityFromDB(t testing.TB, wrapper Wrapper, bookID int64) int {
	query := fmt.Sprintf("SELECT available_quantity FROM books WHERE id = %d", bookID)

	var quantity int
	var err error

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		row := w.pool.QueryRow(context.Background(), query)
		err = row.Scan(&quantity)

	case *SQLDBWrapper:
		row := w.db.QueryRow(query)
		err = row.Scan(&quantity)

	case *SQLXWrapper:
		row := w.db.QueryRow(query)
		err = row.Scan(&quantity)

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}

	assert.NoError(t, err, "error reading available quantity")

	return quantity
}

// CountOpenLoansFromDB counts loans without a returned date directly in the DB.
func CountOpenLoansFromDB(t testing.TB, wrapper Wrapper, bookID int64) int {
	query := fmt.Sprintf("SELECT count(*) FROM loans WHERE book_id = %d AND returned_date IS NULL", bookID)

	var count int
	var err error

	switch w := wrapper.(type) {
	case *PGXPoolWrapper:
		row := w.pool.QueryRow(context.Background(), query)
		err = row.Scan(&count)

	case *SQLDBWrapper:
		row := w.db.QueryRow(query)
		err = row.Scan(&count)

	case *SQLXWrapper:
		row := w.db.QueryRow(query)
		err = row.Scan(&count)

	default:
		panic(fmt.Sprintf("unsupported wrapper type: %T", w))
	}

	assert.NoError(t, err, "error counting open loans")

	return count
}
