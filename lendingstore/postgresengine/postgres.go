package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/askard/lendingstore-go/lendingstore"
	"github.com/askard/lendingstore-go/lendingstore/postgresengine/internal/adapters"
)

const (
	defaultBooksTableName     = "books"
	defaultBorrowersTableName = "borrowers"
	defaultLoansTableName     = "loans"
	defaultLockTimeout        = 3 * time.Second

	dialectPostgres = "postgres"

	colID                = "id"
	colTitle             = "title"
	colAuthor            = "author"
	colISBN              = "isbn"
	colAvailableQuantity = "available_quantity"
	colShelfLocation     = "shelf_location"
	colName              = "name"
	colEmail             = "email"
	colRegisteredDate    = "registered_date"
	colBookID            = "book_id"
	colBorrowerID        = "borrower_id"
	colBorrowedDate      = "borrowed_date"
	colDueDate           = "due_date"
	colReturnedDate      = "returned_date"
	colCreatedAt         = "created_at"
	colUpdatedAt         = "updated_at"

	logMsgBuildQueryFailed    = "failed to build sql query"
	logMsgBeginTxFailed       = "failed to begin transaction"
	logMsgCommitFailed        = "failed to commit transaction"
	logMsgRollbackFailed      = "failed to roll back transaction"
	logMsgDBQueryFailed       = "database query execution failed"
	logMsgDBExecFailed        = "database statement execution failed"
	logMsgCloseRowsFailed     = "failed to close database rows"
	logMsgScanRowFailed       = "failed to scan database row"
	logMsgRowsAffectedFailed  = "failed to get rows affected count"
	logMsgBookNotFound        = "book not found"
	logMsgBorrowerNotFound    = "borrower not found"
	logMsgLoanNotFound        = "loan not found"
	logMsgBookUnavailable     = "book has no available copies"
	logMsgAlreadyReturned     = "loan was already returned"
	logMsgLockTimeout         = "row lock wait timed out"
	logMsgBookBorrowed        = "book borrowed"
	logMsgBookReturned        = "book returned"
	logMsgLoansQueried        = "loans queried"
	logMsgSQLExecuted         = "executed sql for: "
	logMsgOperation           = "lendingstore operation: "
	logAttrError              = "error"
	logAttrQuery              = "query"
	logAttrDurationMS         = "duration_ms"
	logAttrBookID             = "book_id"
	logAttrBorrowerID         = "borrower_id"
	logAttrLoanID             = "loan_id"
	logAttrLoanCount          = "loan_count"
	logAttrAvailableQuantity  = "available_quantity"

	actionLockBook       = "lock book row"
	actionLockLoan       = "lock loan row"
	actionReadBorrower   = "read borrower"
	actionUpdateBook     = "update book quantity"
	actionInsertLoan     = "insert loan"
	actionUpdateLoan     = "mark loan returned"
	actionSetLockTimeout = "set lock timeout"
	actionFindLoans      = "find loans"
	actionCountLoans     = "count loans"
	actionPing           = "ping"

	opBorrow = "borrow"
	opReturn = "return"
	opQuery  = "query"

	statusOK    = "ok"
	statusError = "error"

	reasonBookUnavailable = "book_unavailable"
	reasonAlreadyReturned = "already_returned"
	reasonNotFound        = "not_found"
	reasonLockTimeout     = "lock_timeout"
	reasonStorage         = "storage"

	metricOperationDuration = "lendingstore_operation_duration"
	metricConflicts         = "lendingstore_conflicts"
	metricLockTimeouts      = "lendingstore_lock_timeouts"
	metricDatabaseErrors    = "lendingstore_database_errors"

	spanBorrow = "lendingstore.borrow"
	spanReturn = "lendingstore.return"

	labelOperation = "operation"
	labelStatus    = "status"
	labelReason    = "reason"
)

type sqlQueryString = string

// dbOperations is the subset of database operations shared by an adapter and an
// open transaction, so row helpers work in both settings.
type dbOperations interface {
	Query(ctx context.Context, query string) (adapters.DBRows, error)
	Exec(ctx context.Context, query string) (adapters.DBResult, error)
}

// LendingStore is the transactional engine for lending a finite inventory of book
// copies to registered borrowers, backed by PostgreSQL.
//
// Borrow and Return run as single atomic transactions serialized per book row by
// an exclusive row lock (SELECT ... FOR UPDATE), which keeps the available-copy
// counter from ever going negative and a loan from being returned twice, even
// under concurrent access from many request handlers or service instances.
// All reads outside those two operations are unlocked and see committed state only.
type LendingStore struct {
	db                 adapters.DBAdapter
	booksTableName     string
	borrowersTableName string
	loansTableName     string
	lockTimeout        time.Duration
	logger             lendingstore.Logger
	contextualLogger   lendingstore.ContextualLogger
	metricsCollector   lendingstore.MetricsCollector
	tracingCollector   lendingstore.TracingCollector
}

// NewLendingStoreFromPGXPool creates a new LendingStore using a pgx Pool with optional configuration.
func NewLendingStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*LendingStore, error) {
	if db == nil {
		return nil, lendingstore.ErrNilDatabaseConnection
	}

	return newLendingStore(adapters.NewPGXAdapter(db), options...)
}

// NewLendingStoreFromSQLDB creates a new LendingStore using a sql.DB with optional configuration.
func NewLendingStoreFromSQLDB(db *sql.DB, options ...Option) (*LendingStore, error) {
	if db == nil {
		return nil, lendingstore.ErrNilDatabaseConnection
	}

	return newLendingStore(adapters.NewSQLAdapter(db), options...)
}

// NewLendingStoreFromSQLX creates a new LendingStore using a sqlx.DB with optional configuration.
func NewLendingStoreFromSQLX(db *sqlx.DB, options ...Option) (*LendingStore, error) {
	if db == nil {
		return nil, lendingstore.ErrNilDatabaseConnection
	}

	return newLendingStore(adapters.NewSQLXAdapter(db), options...)
}

func newLendingStore(db adapters.DBAdapter, options ...Option) (*LendingStore, error) {
	ls := &LendingStore{
		db:                 db,
		booksTableName:     defaultBooksTableName,
		borrowersTableName: defaultBorrowersTableName,
		loansTableName:     defaultLoansTableName,
		lockTimeout:        defaultLockTimeout,
	}

	for _, option := range options {
		if err := option(ls); err != nil {
			return nil, err
		}
	}

	return ls, nil
}

// Borrow lends one copy of a book to a borrower as a single atomic transaction:
// it locks the book row exclusively, verifies availability, decrements the
// available-copy counter and creates the loan record. On any failure the whole
// transaction is rolled back - partial mutation is never visible.
//
// Failure modes: lendingstore.ErrBookNotFound, lendingstore.ErrBorrowerNotFound,
// lendingstore.ErrBookUnavailable (no copies left), lendingstore.ErrLockTimeout
// (contended book row, safe to retry), lendingstore.ErrMissingDueDate.
func (ls *LendingStore) Borrow(ctx context.Context, command lendingstore.BorrowBookCommand) (lendingstore.LoanDetails, error) {
	var empty lendingstore.LoanDetails

	if command.DueDate.IsZero() {
		return empty, lendingstore.ErrMissingDueDate
	}

	start := time.Now()
	ctx, span := ls.startSpan(ctx, spanBorrow, map[string]string{
		logAttrBookID:     strconv.FormatInt(command.BookID, 10),
		logAttrBorrowerID: strconv.FormatInt(command.BorrowerID, 10),
	})

	details, err := ls.borrowInTx(ctx, command)
	duration := time.Since(start)

	if err != nil {
		ls.finishSpan(span, statusError)
		ls.recordDurationMetric(ctx, metricOperationDuration, duration, opBorrow, statusError)
		ls.recordFailureMetric(ctx, opBorrow, err)

		return empty, err
	}

	ls.finishSpan(span, statusOK)
	ls.recordDurationMetric(ctx, metricOperationDuration, duration, opBorrow, statusOK)
	ls.logOperation(
		ctx,
		logMsgBookBorrowed,
		logAttrLoanID, details.ID,
		logAttrBookID, details.BookID,
		logAttrBorrowerID, details.BorrowerID,
		logAttrDurationMS, ls.toMilliseconds(duration))

	return details, nil
}

func (ls *LendingStore) borrowInTx(ctx context.Context, command lendingstore.BorrowBookCommand) (lendingstore.LoanDetails, error) {
	var empty lendingstore.LoanDetails

	tx, err := ls.beginTx(ctx)
	if err != nil {
		return empty, err
	}

	committed := false
	defer func() {
		if !committed {
			ls.rollbackTx(ctx, tx)
		}
	}()

	if err = ls.applyLockTimeout(ctx, tx); err != nil {
		return empty, err
	}

	book, err := ls.lockBookRow(ctx, tx, command.BookID)
	if err != nil {
		return empty, err
	}

	if book.AvailableQuantity <= 0 {
		ls.logWarn(ctx, logMsgBookUnavailable, logAttrBookID, book.ID)
		return empty, lendingstore.ErrBookUnavailable
	}

	// Borrower identity is immutable, a plain read inside the transaction suffices.
	borrower, err := ls.readBorrowerRow(ctx, tx, command.BorrowerID)
	if err != nil {
		return empty, err
	}

	now := time.Now().UTC()

	if err = ls.adjustBookQuantity(ctx, tx, book.ID, book.AvailableQuantity-1, now); err != nil {
		return empty, err
	}

	borrowedDate := command.BorrowedDate
	if borrowedDate.IsZero() {
		borrowedDate = now
	}

	loan, err := ls.insertLoanRow(ctx, tx, book.ID, borrower.ID, borrowedDate, command.DueDate, now)
	if err != nil {
		return empty, err
	}

	if err = ls.commitTx(ctx, tx); err != nil {
		return empty, err
	}
	committed = true

	return lendingstore.LoanDetails{
		Loan:         loan,
		BookTitle:    book.Title,
		BorrowerName: borrower.Name,
	}, nil
}

// Return closes a loan as a single atomic transaction: it locks the loan row,
// then the book row (always in that order, so concurrent returns cannot
// deadlock), rejects a second return of the same loan, increments the
// available-copy counter and records the returned date. On any failure the
// whole transaction is rolled back.
//
// A second return of the same loan is deliberately an error
// (lendingstore.ErrLoanAlreadyReturned), not an idempotent no-op: it surfaces
// accidental double submission to the caller.
func (ls *LendingStore) Return(ctx context.Context, command lendingstore.ReturnBookCommand) (lendingstore.LoanDetails, error) {
	var empty lendingstore.LoanDetails

	start := time.Now()
	ctx, span := ls.startSpan(ctx, spanReturn, map[string]string{
		logAttrLoanID: strconv.FormatInt(command.LoanID, 10),
	})

	details, err := ls.returnInTx(ctx, command)
	duration := time.Since(start)

	if err != nil {
		ls.finishSpan(span, statusError)
		ls.recordDurationMetric(ctx, metricOperationDuration, duration, opReturn, statusError)
		ls.recordFailureMetric(ctx, opReturn, err)

		return empty, err
	}

	ls.finishSpan(span, statusOK)
	ls.recordDurationMetric(ctx, metricOperationDuration, duration, opReturn, statusOK)
	ls.logOperation(
		ctx,
		logMsgBookReturned,
		logAttrLoanID, details.ID,
		logAttrBookID, details.BookID,
		logAttrDurationMS, ls.toMilliseconds(duration))

	return details, nil
}

func (ls *LendingStore) returnInTx(ctx context.Context, command lendingstore.ReturnBookCommand) (lendingstore.LoanDetails, error) {
	var empty lendingstore.LoanDetails

	tx, err := ls.beginTx(ctx)
	if err != nil {
		return empty, err
	}

	committed := false
	defer func() {
		if !committed {
			ls.rollbackTx(ctx, tx)
		}
	}()

	if err = ls.applyLockTimeout(ctx, tx); err != nil {
		return empty, err
	}

	loan, err := ls.lockLoanRow(ctx, tx, command.LoanID)
	if err != nil {
		return empty, err
	}

	// A missing book row here is a data-integrity anomaly, the FK should prevent it.
	book, err := ls.lockBookRow(ctx, tx, loan.BookID)
	if err != nil {
		return empty, err
	}

	if loan.IsReturned() {
		ls.logWarn(ctx, logMsgAlreadyReturned, logAttrLoanID, loan.ID)
		return empty, lendingstore.ErrLoanAlreadyReturned
	}

	now := time.Now().UTC()

	if err = ls.adjustBookQuantity(ctx, tx, book.ID, book.AvailableQuantity+1, now); err != nil {
		return empty, err
	}

	if err = ls.markLoanReturned(ctx, tx, loan.ID, now); err != nil {
		return empty, err
	}
	loan.ReturnedDate = &now
	loan.UpdatedAt = now

	borrower, err := ls.readBorrowerRow(ctx, tx, loan.BorrowerID)
	if err != nil {
		return empty, err
	}

	if err = ls.commitTx(ctx, tx); err != nil {
		return empty, err
	}
	committed = true

	return lendingstore.LoanDetails{
		Loan:         loan,
		BookTitle:    book.Title,
		BorrowerName: borrower.Name,
	}, nil
}

// Ping verifies database connectivity, for health checks.
func (ls *LendingStore) Ping(ctx context.Context) error {
	rows, err := ls.db.Query(ctx, "SELECT 1")
	if err != nil {
		return errors.Join(lendingstore.ErrQueryingFailed, err)
	}
	ls.closeRows(ctx, rows)

	return nil
}

/***** transaction plumbing *****/

func (ls *LendingStore) beginTx(ctx context.Context) (adapters.DBTx, error) {
	tx, err := ls.db.Begin(ctx)
	if err != nil {
		ls.logError(ctx, logMsgBeginTxFailed, err)
		return nil, errors.Join(lendingstore.ErrBeginTxFailed, err)
	}

	return tx, nil
}

func (ls *LendingStore) commitTx(ctx context.Context, tx adapters.DBTx) error {
	if err := tx.Commit(ctx); err != nil {
		ls.logError(ctx, logMsgCommitFailed, err)
		return errors.Join(lendingstore.ErrCommitFailed, err)
	}

	return nil
}

func (ls *LendingStore) rollbackTx(ctx context.Context, tx adapters.DBTx) {
	if err := tx.Rollback(ctx); err != nil {
		ls.logWarn(ctx, logMsgRollbackFailed, logAttrError, err.Error())
	}
}

// applyLockTimeout bounds all row lock waits in this transaction.
// SET LOCAL expires with the transaction, so the setting never leaks onto the
// pooled connection.
func (ls *LendingStore) applyLockTimeout(ctx context.Context, tx adapters.DBTx) error {
	sqlQuery := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", ls.lockTimeout.Milliseconds())

	if _, err := ls.executeStatement(ctx, tx, sqlQuery, actionSetLockTimeout); err != nil {
		return err
	}

	return nil
}

/***** row operations *****/

func (ls *LendingStore) lockBookRow(ctx context.Context, tx adapters.DBTx, bookID lendingstore.IDInt64) (lendingstore.Book, error) {
	var empty lendingstore.Book

	sqlQuery, err := ls.buildSelectBookQuery(bookID, true)
	if err != nil {
		return empty, err
	}

	var book lendingstore.Book
	found, err := ls.querySingleRow(ctx, tx, sqlQuery, actionLockBook, func(rows adapters.DBRows) error {
		return scanBook(rows, &book)
	})
	if err != nil {
		return empty, err
	}

	if !found {
		ls.logWarn(ctx, logMsgBookNotFound, logAttrBookID, bookID)
		return empty, lendingstore.ErrBookNotFound
	}

	return book, nil
}

func (ls *LendingStore) lockLoanRow(ctx context.Context, tx adapters.DBTx, loanID lendingstore.IDInt64) (lendingstore.Loan, error) {
	var empty lendingstore.Loan

	stmt := goqu.Dialect(dialectPostgres).
		From(ls.loansTableName).
		Select(colID, colBookID, colBorrowerID, colBorrowedDate, colDueDate, colReturnedDate, colCreatedAt, colUpdatedAt).
		Where(goqu.Ex{colID: loanID}).
		ForUpdate(exp.Wait)

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		ls.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
		return empty, errors.Join(lendingstore.ErrBuildingQueryFailed, toSQLErr)
	}

	var loan lendingstore.Loan
	found, err := ls.querySingleRow(ctx, tx, sqlQuery, actionLockLoan, func(rows adapters.DBRows) error {
		return scanLoan(rows, &loan)
	})
	if err != nil {
		return empty, err
	}

	if !found {
		ls.logWarn(ctx, logMsgLoanNotFound, logAttrLoanID, loanID)
		return empty, lendingstore.ErrLoanNotFound
	}

	return loan, nil
}

func (ls *LendingStore) readBorrowerRow(ctx context.Context, db dbOperations, borrowerID lendingstore.IDInt64) (lendingstore.Borrower, error) {
	var empty lendingstore.Borrower

	sqlQuery, err := ls.buildSelectBorrowerQuery(borrowerID)
	if err != nil {
		return empty, err
	}

	var borrower lendingstore.Borrower
	found, err := ls.querySingleRow(ctx, db, sqlQuery, actionReadBorrower, func(rows adapters.DBRows) error {
		return scanBorrower(rows, &borrower)
	})
	if err != nil {
		return empty, err
	}

	if !found {
		ls.logWarn(ctx, logMsgBorrowerNotFound, logAttrBorrowerID, borrowerID)
		return empty, lendingstore.ErrBorrowerNotFound
	}

	return borrower, nil
}

func (ls *LendingStore) adjustBookQuantity(
	ctx context.Context,
	tx adapters.DBTx,
	bookID lendingstore.IDInt64,
	newQuantity int,
	now time.Time,
) error {

	stmt := goqu.Dialect(dialectPostgres).
		Update(ls.booksTableName).
		Set(goqu.Record{colAvailableQuantity: newQuantity, colUpdatedAt: now}).
		Where(goqu.Ex{colID: bookID})

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		ls.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
		return errors.Join(lendingstore.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, err := ls.executeStatement(ctx, tx, sqlQuery, actionUpdateBook)
	if err != nil {
		return err
	}

	if rowsAffected != 1 {
		return lendingstore.ErrExecFailed
	}

	return nil
}

func (ls *LendingStore) insertLoanRow(
	ctx context.Context,
	tx adapters.DBTx,
	bookID lendingstore.IDInt64,
	borrowerID lendingstore.IDInt64,
	borrowedDate time.Time,
	dueDate time.Time,
	now time.Time,
) (lendingstore.Loan, error) {

	var empty lendingstore.Loan

	stmt := goqu.Dialect(dialectPostgres).
		Insert(ls.loansTableName).
		Rows(goqu.Record{
			colBookID:       bookID,
			colBorrowerID:   borrowerID,
			colBorrowedDate: borrowedDate,
			colDueDate:      dueDate,
			colCreatedAt:    now,
			colUpdatedAt:    now,
		}).
		Returning(colID)

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		ls.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
		return empty, errors.Join(lendingstore.ErrBuildingQueryFailed, toSQLErr)
	}

	var loanID lendingstore.IDInt64
	found, err := ls.querySingleRow(ctx, tx, sqlQuery, actionInsertLoan, func(rows adapters.DBRows) error {
		return rows.Scan(&loanID)
	})
	if err != nil {
		return empty, err
	}

	if !found {
		return empty, lendingstore.ErrExecFailed
	}

	return lendingstore.Loan{
		ID:           loanID,
		BookID:       bookID,
		BorrowerID:   borrowerID,
		BorrowedDate: borrowedDate,
		DueDate:      dueDate,
		ReturnedDate: nil,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (ls *LendingStore) markLoanReturned(ctx context.Context, tx adapters.DBTx, loanID lendingstore.IDInt64, now time.Time) error {
	stmt := goqu.Dialect(dialectPostgres).
		Update(ls.loansTableName).
		Set(goqu.Record{colReturnedDate: now, colUpdatedAt: now}).
		Where(goqu.Ex{colID: loanID})

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		ls.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
		return errors.Join(lendingstore.ErrBuildingQueryFailed, toSQLErr)
	}

	rowsAffected, err := ls.executeStatement(ctx, tx, sqlQuery, actionUpdateLoan)
	if err != nil {
		return err
	}

	if rowsAffected != 1 {
		return lendingstore.ErrExecFailed
	}

	return nil
}

/***** query building *****/

func (ls *LendingStore) buildSelectBookQuery(bookID lendingstore.IDInt64, forUpdate bool) (sqlQueryString, error) {
	stmt := goqu.Dialect(dialectPostgres).
		From(ls.booksTableName).
		Select(colID, colTitle, colAuthor, colISBN, colAvailableQuantity, colShelfLocation, colCreatedAt, colUpdatedAt).
		Where(goqu.Ex{colID: bookID})

	if forUpdate {
		stmt = stmt.ForUpdate(exp.Wait)
	}

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lendingstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func (ls *LendingStore) buildSelectBorrowerQuery(borrowerID lendingstore.IDInt64) (sqlQueryString, error) {
	stmt := goqu.Dialect(dialectPostgres).
		From(ls.borrowersTableName).
		Select(colID, colName, colEmail, colRegisteredDate, colCreatedAt, colUpdatedAt).
		Where(goqu.Ex{colID: borrowerID})

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lendingstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

/***** execution helpers *****/

// executeQuery executes a SQL query with timing and debug logging.
// Driver errors are mapped into the store's taxonomy, lock timeouts included.
func (ls *LendingStore) executeQuery(ctx context.Context, db dbOperations, sqlQuery string, action string) (adapters.DBRows, error) {
	start := time.Now()
	rows, queryErr := db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	ls.logQueryWithDuration(ctx, sqlQuery, action, duration)

	if queryErr != nil {
		if isLockTimeout(queryErr) {
			ls.logWarn(ctx, logMsgLockTimeout, logAttrQuery, sqlQuery)
			ls.incrementCounterMetric(ctx, metricLockTimeouts, action, reasonLockTimeout)
		} else {
			ls.logError(ctx, logMsgDBQueryFailed, queryErr, logAttrQuery, sqlQuery)
			ls.incrementCounterMetric(ctx, metricDatabaseErrors, action, reasonStorage)
		}

		return nil, mapLockError(queryErr, lendingstore.ErrQueryingFailed)
	}

	return rows, nil
}

// executeStatement executes a SQL statement and returns the number of rows affected.
func (ls *LendingStore) executeStatement(ctx context.Context, db dbOperations, sqlQuery string, action string) (int64, error) {
	start := time.Now()
	result, execErr := db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	ls.logQueryWithDuration(ctx, sqlQuery, action, duration)

	if execErr != nil {
		if isLockTimeout(execErr) {
			ls.logWarn(ctx, logMsgLockTimeout, logAttrQuery, sqlQuery)
			ls.incrementCounterMetric(ctx, metricLockTimeouts, action, reasonLockTimeout)
		} else {
			ls.logError(ctx, logMsgDBExecFailed, execErr, logAttrQuery, sqlQuery)
			ls.incrementCounterMetric(ctx, metricDatabaseErrors, action, reasonStorage)
		}

		return 0, mapLockError(execErr, lendingstore.ErrExecFailed)
	}

	rowsAffected, rowsAffectedErr := result.RowsAffected()
	if rowsAffectedErr != nil {
		ls.logError(ctx, logMsgRowsAffectedFailed, rowsAffectedErr)
		return 0, errors.Join(lendingstore.ErrGettingRowsAffectedFailed, rowsAffectedErr)
	}

	return rowsAffected, nil
}

// querySingleRow runs a query expected to yield at most one row and scans it
// with scanFn. It reports whether a row was found.
func (ls *LendingStore) querySingleRow(
	ctx context.Context,
	db dbOperations,
	sqlQuery string,
	action string,
	scanFn func(rows adapters.DBRows) error,
) (bool, error) {

	rows, err := ls.executeQuery(ctx, db, sqlQuery, action)
	if err != nil {
		return false, err
	}
	defer ls.closeRows(ctx, rows)

	if rows.Next() {
		if scanErr := scanFn(rows); scanErr != nil {
			ls.logError(ctx, logMsgScanRowFailed, scanErr)
			return false, errors.Join(lendingstore.ErrScanningDBRowFailed, scanErr)
		}

		return true, nil
	}

	// Some drivers only surface execution errors during iteration.
	if rowsErr := rows.Err(); rowsErr != nil {
		if isLockTimeout(rowsErr) {
			ls.logWarn(ctx, logMsgLockTimeout, logAttrQuery, sqlQuery)
			ls.incrementCounterMetric(ctx, metricLockTimeouts, action, reasonLockTimeout)
		} else {
			ls.logError(ctx, logMsgDBQueryFailed, rowsErr, logAttrQuery, sqlQuery)
		}

		return false, mapLockError(rowsErr, lendingstore.ErrQueryingFailed)
	}

	return false, nil
}

// closeRows safely closes database rows and logs any errors.
func (ls *LendingStore) closeRows(ctx context.Context, rows adapters.DBRows) {
	if closeErr := rows.Close(); closeErr != nil {
		ls.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, closeErr.Error())
	}
}

// recordFailureMetric classifies a failed operation for the conflict/error counters.
func (ls *LendingStore) recordFailureMetric(ctx context.Context, operation string, err error) {
	switch {
	case errors.Is(err, lendingstore.ErrBookUnavailable):
		ls.incrementCounterMetric(ctx, metricConflicts, operation, reasonBookUnavailable)
	case errors.Is(err, lendingstore.ErrLoanAlreadyReturned):
		ls.incrementCounterMetric(ctx, metricConflicts, operation, reasonAlreadyReturned)
	case errors.Is(err, lendingstore.ErrBookNotFound),
		errors.Is(err, lendingstore.ErrBorrowerNotFound),
		errors.Is(err, lendingstore.ErrLoanNotFound):
		ls.incrementCounterMetric(ctx, metricConflicts, operation, reasonNotFound)
	case errors.Is(err, lendingstore.ErrLockTimeout):
		// already counted by the execution helpers
	default:
		ls.incrementCounterMetric(ctx, metricDatabaseErrors, operation, reasonStorage)
	}
}

/***** row scanning *****/

func scanBook(rows adapters.DBRows, book *lendingstore.Book) error {
	return rows.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.ISBN,
		&book.AvailableQuantity,
		&book.ShelfLocation,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
}

func scanBorrower(rows adapters.DBRows, borrower *lendingstore.Borrower) error {
	return rows.Scan(
		&borrower.ID,
		&borrower.Name,
		&borrower.Email,
		&borrower.RegisteredDate,
		&borrower.CreatedAt,
		&borrower.UpdatedAt,
	)
}

func scanLoan(rows adapters.DBRows, loan *lendingstore.Loan) error {
	var returnedDate sql.NullTime

	if err := rows.Scan(
		&loan.ID,
		&loan.BookID,
		&loan.BorrowerID,
		&loan.BorrowedDate,
		&loan.DueDate,
		&returnedDate,
		&loan.CreatedAt,
		&loan.UpdatedAt,
	); err != nil {
		return err
	}

	if returnedDate.Valid {
		returned := returnedDate.Time
		loan.ReturnedDate = &returned
	}

	return nil
}
