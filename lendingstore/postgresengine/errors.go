package postgresengine

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/askard/lendingstore-go/lendingstore"
)

const (
	sqlStateLockNotAvailable = "55P03"
	sqlStateUniqueViolation  = "23505"
)

// sqlStateOf extracts the SQLSTATE code from a driver error, for both the pgx
// and the lib/pq driver families. Returns "" for non-driver errors.
func sqlStateOf(err error) string {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	return ""
}

// isLockTimeout reports whether the error means a row lock wait exceeded the
// configured lock_timeout (SQLSTATE 55P03).
func isLockTimeout(err error) bool {
	return sqlStateOf(err) == sqlStateLockNotAvailable
}

// isUniqueViolation reports whether the error is a unique constraint violation
// (SQLSTATE 23505), raised for duplicate ISBNs and borrower emails.
func isUniqueViolation(err error) bool {
	return sqlStateOf(err) == sqlStateUniqueViolation
}

// mapLockError translates a driver error from a lock-taking query into the
// store's error taxonomy: transient lock timeouts become ErrLockTimeout,
// everything else is joined onto the given sentinel.
func mapLockError(err error, sentinel error) error {
	if isLockTimeout(err) {
		return errors.Join(lendingstore.ErrLockTimeout, err)
	}

	return errors.Join(sentinel, err)
}
