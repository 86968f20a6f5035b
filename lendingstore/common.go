package lendingstore

import (
	"errors"
)

var ErrNilDatabaseConnection = errors.New("database connection must not be nil")
var ErrEmptyTableName = errors.New("empty table name supplied")
var ErrInvalidLockTimeout = errors.New("lock timeout must be positive")

// Not-found failures: the referenced row does not exist. Client-visible, not retryable.
var ErrBookNotFound = errors.New("book not found")
var ErrBorrowerNotFound = errors.New("borrower not found")
var ErrLoanNotFound = errors.New("loan not found")

// Conflict failures: a business rule rejected the request. Resubmitting the same
// request verbatim will fail again.
var ErrBookUnavailable = errors.New("book has no available copies")
var ErrLoanAlreadyReturned = errors.New("loan was already returned")
var ErrDuplicateISBN = errors.New("a book with this isbn already exists")
var ErrDuplicateEmail = errors.New("a borrower with this email already exists")

// ErrLockTimeout signals that a row lock could not be acquired within the configured
// bound. The whole operation is safe to retry, see RetryWithExponentialBackoff.
var ErrLockTimeout = errors.New("row lock could not be acquired in time")

var ErrMissingDueDate = errors.New("due date must be supplied")

var ErrBuildingQueryFailed = errors.New("building sql query failed")
var ErrQueryingFailed = errors.New("database query execution failed")
var ErrExecFailed = errors.New("database statement execution failed")
var ErrScanningDBRowFailed = errors.New("scanning database row failed")
var ErrBeginTxFailed = errors.New("beginning transaction failed")
var ErrCommitFailed = errors.New("committing transaction failed")
var ErrGettingRowsAffectedFailed = errors.New("getting rows affected count failed")

// IDInt64 is a type alias for int64, representing the stable identifier of a
// book, borrower or loan row.
type IDInt64 = int64
