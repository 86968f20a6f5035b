package postgresengine

import (
	"time"

	"github.com/askard/lendingstore-go/lendingstore"
)

// Option defines a functional option for configuring a LendingStore.
type Option func(*LendingStore) error

// WithBooksTableName sets the table name for the book inventory records.
func WithBooksTableName(tableName string) Option {
	return func(ls *LendingStore) error {
		if tableName == "" {
			return lendingstore.ErrEmptyTableName
		}

		ls.booksTableName = tableName

		return nil
	}
}

// WithBorrowersTableName sets the table name for the borrower records.
func WithBorrowersTableName(tableName string) Option {
	return func(ls *LendingStore) error {
		if tableName == "" {
			return lendingstore.ErrEmptyTableName
		}

		ls.borrowersTableName = tableName

		return nil
	}
}

// WithLoansTableName sets the table name for the loan records.
func WithLoansTableName(tableName string) Option {
	return func(ls *LendingStore) error {
		if tableName == "" {
			return lendingstore.ErrEmptyTableName
		}

		ls.loansTableName = tableName

		return nil
	}
}

// WithLockTimeout bounds how long a lending transaction waits for a contended
// row lock before failing with lendingstore.ErrLockTimeout. The bound is applied
// with SET LOCAL inside each transaction, so it never leaks onto the connection.
func WithLockTimeout(timeout time.Duration) Option {
	return func(ls *LendingStore) error {
		if timeout <= 0 {
			return lendingstore.ErrInvalidLockTimeout
		}

		ls.lockTimeout = timeout

		return nil
	}
}

// WithLogger sets the logger for the LendingStore.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: operation outcomes, durations, conflicts (production-safe)
// Warn level: non-critical issues like cleanup failures
// Error level: critical failures that cause operation failures.
func WithLogger(logger lendingstore.Logger) Option {
	return func(ls *LendingStore) error {
		ls.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the LendingStore.
// The contextual logger receives log messages with context information including
// automatic trace/span correlation when tracing is enabled.
func WithContextualLogger(logger lendingstore.ContextualLogger) Option {
	return func(ls *LendingStore) error {
		ls.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the LendingStore.
// The collector receives borrow/return/query durations, conflict counts,
// lock timeouts and database errors.
func WithMetrics(collector lendingstore.MetricsCollector) Option {
	return func(ls *LendingStore) error {
		ls.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the LendingStore.
// The collector receives span creation for borrow/return/query operations,
// context propagation, and error tracking.
func WithTracing(collector lendingstore.TracingCollector) Option {
	return func(ls *LendingStore) error {
		ls.tracingCollector = collector
		return nil
	}
}
