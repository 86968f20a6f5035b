package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/askard/lendingstore-go/lendingstore"
	"github.com/askard/lendingstore-go/lendingstore/postgresengine/internal/adapters"
)

const (
	loansTableAlias     = "l"
	booksTableAlias     = "b"
	borrowersTableAlias = "br"
)

// FindLoans executes a loan scan and returns the matching loans joined with
// book title and borrower name, plus the total match count across all pages.
//
// For a paginated scan the total comes from a separate count query in the same
// committed-read view, so an empty page beyond the last result still reports
// the true total. Unpaginated scans return everything and the total equals the
// slice length.
func (ls *LendingStore) FindLoans(ctx context.Context, scan lendingstore.LoanScan) ([]lendingstore.LoanDetails, int64, error) {
	start := time.Now()

	loans, err := ls.queryLoanPage(ctx, scan)
	if err != nil {
		ls.recordDurationMetric(ctx, metricOperationDuration, time.Since(start), opQuery, statusError)
		return nil, 0, err
	}

	total := int64(len(loans))
	if _, paginated := scan.Pagination(); paginated {
		total, err = ls.countLoans(ctx, scan)
		if err != nil {
			ls.recordDurationMetric(ctx, metricOperationDuration, time.Since(start), opQuery, statusError)
			return nil, 0, err
		}
	}

	duration := time.Since(start)
	ls.recordDurationMetric(ctx, metricOperationDuration, duration, opQuery, statusOK)
	ls.logOperation(
		ctx,
		logMsgLoansQueried,
		logAttrLoanCount, len(loans),
		logAttrDurationMS, ls.toMilliseconds(duration))

	return loans, total, nil
}

// FindAll returns a page of all loans, open and returned alike.
func (ls *LendingStore) FindAll(ctx context.Context, pagination lendingstore.Pagination) (lendingstore.PagedLoans, error) {
	return ls.findPaged(ctx, lendingstore.ScanLoans(), pagination)
}

// FindOverdue returns a page of open loans whose due date lies before asOf.
// Returned loans are never overdue, no matter how late they came back.
func (ls *LendingStore) FindOverdue(ctx context.Context, asOf time.Time, pagination lendingstore.Pagination) (lendingstore.PagedLoans, error) {
	return ls.findPaged(ctx, lendingstore.ScanLoans().WithOverdueAsOf(asOf), pagination)
}

// FindByBorrower returns a page of all loans of one borrower.
func (ls *LendingStore) FindByBorrower(ctx context.Context, borrowerID lendingstore.IDInt64, pagination lendingstore.Pagination) (lendingstore.PagedLoans, error) {
	return ls.findPaged(ctx, lendingstore.ScanLoans().WithBorrower(borrowerID), pagination)
}

// FindByPeriod returns all loans with a borrowed date inside the inclusive
// [from, until] window, unpaginated.
func (ls *LendingStore) FindByPeriod(ctx context.Context, from time.Time, until time.Time) ([]lendingstore.LoanDetails, error) {
	loans, _, err := ls.FindLoans(ctx, lendingstore.ScanLoans().WithBorrowedFrom(from).WithBorrowedUntil(until))
	return loans, err
}

// FindInLastMonth returns all loans borrowed within the last calendar month,
// for the periodic lending report.
func (ls *LendingStore) FindInLastMonth(ctx context.Context) ([]lendingstore.LoanDetails, error) {
	now := time.Now().UTC()
	return ls.FindByPeriod(ctx, now.AddDate(0, -1, 0), now)
}

func (ls *LendingStore) findPaged(
	ctx context.Context,
	scan lendingstore.LoanScan,
	pagination lendingstore.Pagination,
) (lendingstore.PagedLoans, error) {

	loans, total, err := ls.FindLoans(ctx, scan.WithPagination(pagination))
	if err != nil {
		return lendingstore.PagedLoans{}, err
	}

	return lendingstore.PagedLoans{
		Items:    loans,
		Total:    total,
		Page:     pagination.Page(),
		PageSize: pagination.PageSize(),
	}, nil
}

func (ls *LendingStore) queryLoanPage(ctx context.Context, scan lendingstore.LoanScan) ([]lendingstore.LoanDetails, error) {
	sqlQuery, err := ls.buildLoanScanQuery(scan)
	if err != nil {
		ls.logError(ctx, logMsgBuildQueryFailed, err)
		return nil, err
	}

	rows, err := ls.executeQuery(ctx, ls.db, sqlQuery, actionFindLoans)
	if err != nil {
		return nil, err
	}
	defer ls.closeRows(ctx, rows)

	loans := make([]lendingstore.LoanDetails, 0)

	for rows.Next() {
		var details lendingstore.LoanDetails

		if scanErr := scanLoanDetails(rows, &details); scanErr != nil {
			ls.logError(ctx, logMsgScanRowFailed, scanErr)
			return nil, errors.Join(lendingstore.ErrScanningDBRowFailed, scanErr)
		}

		loans = append(loans, details)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		ls.logError(ctx, logMsgDBQueryFailed, rowsErr, logAttrQuery, sqlQuery)
		return nil, errors.Join(lendingstore.ErrQueryingFailed, rowsErr)
	}

	return loans, nil
}

func (ls *LendingStore) countLoans(ctx context.Context, scan lendingstore.LoanScan) (int64, error) {
	sqlQuery, err := ls.buildLoanCountQuery(scan)
	if err != nil {
		ls.logError(ctx, logMsgBuildQueryFailed, err)
		return 0, err
	}

	var total int64
	found, err := ls.querySingleRow(ctx, ls.db, sqlQuery, actionCountLoans, func(rows adapters.DBRows) error {
		return rows.Scan(&total)
	})
	if err != nil {
		return 0, err
	}

	if !found {
		return 0, lendingstore.ErrQueryingFailed
	}

	return total, nil
}

/***** query building *****/

func (ls *LendingStore) buildLoanScanQuery(scan lendingstore.LoanScan) (sqlQueryString, error) {
	loans := goqu.T(ls.loansTableName).As(loansTableAlias)
	books := goqu.T(ls.booksTableName).As(booksTableAlias)
	borrowers := goqu.T(ls.borrowersTableName).As(borrowersTableAlias)

	stmt := goqu.Dialect(dialectPostgres).
		From(loans).
		InnerJoin(books, goqu.On(loans.Col(colBookID).Eq(books.Col(colID)))).
		InnerJoin(borrowers, goqu.On(loans.Col(colBorrowerID).Eq(borrowers.Col(colID)))).
		Select(
			loans.Col(colID),
			loans.Col(colBookID),
			loans.Col(colBorrowerID),
			loans.Col(colBorrowedDate),
			loans.Col(colDueDate),
			loans.Col(colReturnedDate),
			loans.Col(colCreatedAt),
			loans.Col(colUpdatedAt),
			books.Col(colTitle),
			borrowers.Col(colName),
		).
		Where(loanScanConditions(scan, loans)...).
		Order(loans.Col(colBorrowedDate).Desc(), loans.Col(colID).Desc())

	if pagination, paginated := scan.Pagination(); paginated {
		stmt = stmt.Limit(uint(pagination.PageSize())).Offset(uint(pagination.Offset()))
	}

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lendingstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

// buildLoanCountQuery counts matches over the loans table alone: every scan
// condition references loan columns, so the joins are not needed for the total.
func (ls *LendingStore) buildLoanCountQuery(scan lendingstore.LoanScan) (sqlQueryString, error) {
	loans := goqu.T(ls.loansTableName).As(loansTableAlias)

	stmt := goqu.Dialect(dialectPostgres).
		From(loans).
		Select(goqu.COUNT(goqu.Star())).
		Where(loanScanConditions(scan, loans)...)

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		return "", errors.Join(lendingstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return sqlQuery, nil
}

func loanScanConditions(scan lendingstore.LoanScan, loans exp.AliasedExpression) []exp.Expression {
	conditions := make([]exp.Expression, 0)

	if borrowerID := scan.BorrowerID(); borrowerID != 0 {
		conditions = append(conditions, loans.Col(colBorrowerID).Eq(borrowerID))
	}

	if scan.OpenOnly() {
		conditions = append(conditions, loans.Col(colReturnedDate).IsNull())
	}

	if deadline := scan.OverdueAsOf(); !deadline.IsZero() {
		conditions = append(conditions, loans.Col(colDueDate).Lt(deadline))
	}

	if from := scan.BorrowedFrom(); !from.IsZero() {
		conditions = append(conditions, loans.Col(colBorrowedDate).Gte(from))
	}

	if until := scan.BorrowedUntil(); !until.IsZero() {
		conditions = append(conditions, loans.Col(colBorrowedDate).Lte(until))
	}

	return conditions
}

/***** row scanning *****/

func scanLoanDetails(rows adapters.DBRows, details *lendingstore.LoanDetails) error {
	var returnedDate sql.NullTime

	if err := rows.Scan(
		&details.ID,
		&details.BookID,
		&details.BorrowerID,
		&details.BorrowedDate,
		&details.DueDate,
		&returnedDate,
		&details.CreatedAt,
		&details.UpdatedAt,
		&details.BookTitle,
		&details.BorrowerName,
	); err != nil {
		return err
	}

	if returnedDate.Valid {
		returned := returnedDate.Time
		details.ReturnedDate = &returned
	}

	return nil
}
