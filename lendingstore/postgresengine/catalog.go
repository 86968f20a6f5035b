package postgresengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/askard/lendingstore-go/lendingstore"
	"github.com/askard/lendingstore-go/lendingstore/postgresengine/internal/adapters"
)

const (
	actionInsertBook     = "insert book"
	actionReadBook       = "read book"
	actionSearchBooks    = "search books"
	actionCountBooks     = "count books"
	actionUpdateCatalog  = "update book record"
	actionDeleteBook     = "delete book"
	actionInsertBorrower = "insert borrower"
	actionListBorrowers  = "list borrowers"
	actionCountBorrowers = "count borrowers"
	actionUpdateBorrower = "update borrower"
	actionDeleteBorrower = "delete borrower"
)

/***** books *****/

// CreateBook adds a new title to the catalog. The ISBN must be unique;
// a duplicate yields lendingstore.ErrDuplicateISBN.
func (ls *LendingStore) CreateBook(ctx context.Context, command lendingstore.CreateBookCommand) (lendingstore.Book, error) {
	var empty lendingstore.Book

	now := time.Now().UTC()

	stmt := goqu.Dialect(dialectPostgres).
		Insert(ls.booksTableName).
		Rows(goqu.Record{
			colTitle:             command.Title,
			colAuthor:            command.Author,
			colISBN:              command.ISBN,
			colAvailableQuantity: command.AvailableQuantity,
			colShelfLocation:     command.ShelfLocation,
			colCreatedAt:         now,
			colUpdatedAt:         now,
		}).
		Returning(colID)

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		ls.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
		return empty, errors.Join(lendingstore.ErrBuildingQueryFailed, toSQLErr)
	}

	var bookID lendingstore.IDInt64
	found, err := ls.querySingleRow(ctx, ls.db, sqlQuery, actionInsertBook, func(rows adapters.DBRows) error {
		return rows.Scan(&bookID)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return empty, lendingstore.ErrDuplicateISBN
		}

		return empty, err
	}

	if !found {
		return empty, lendingstore.ErrExecFailed
	}

	return lendingstore.Book{
		ID:                bookID,
		Title:             command.Title,
		Author:            command.Author,
		ISBN:              command.ISBN,
		AvailableQuantity: command.AvailableQuantity,
		ShelfLocation:     command.ShelfLocation,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// GetBook reads one catalog entry by ID.
func (ls *LendingStore) GetBook(ctx context.Context, bookID lendingstore.IDInt64) (lendingstore.Book, error) {
	var empty lendingstore.Book

	sqlQuery, err := ls.buildSelectBookQuery(bookID, false)
	if err != nil {
		ls.logError(ctx, logMsgBuildQueryFailed, err)
		return empty, err
	}

	var book lendingstore.Book
	found, err := ls.querySingleRow(ctx, ls.db, sqlQuery, actionReadBook, func(rows adapters.DBRows) error {
		return scanBook(rows, &book)
	})
	if err != nil {
		return empty, err
	}

	if !found {
		return empty, lendingstore.ErrBookNotFound
	}

	return book, nil
}

// SearchBooks lists the catalog filtered by case-insensitive substring matches
// on title, author and ISBN. Empty filter fields match everything; a zero
// pagination defaults to the first page.
func (ls *LendingStore) SearchBooks(ctx context.Context, query lendingstore.SearchBooksQuery) (lendingstore.PagedBooks, error) {
	var empty lendingstore.PagedBooks

	pagination := query.Page
	if pagination.IsZero() {
		pagination = lendingstore.DefaultPagination()
	}

	conditions := bookSearchConditions(query)

	pageStmt := goqu.Dialect(dialectPostgres).
		From(ls.booksTableName).
		Select(colID, colTitle, colAuthor, colISBN, colAvailableQuantity, colShelfLocation, colCreatedAt, colUpdatedAt).
		Where(conditions...).
		Order(goqu.C(colTitle).Asc(), goqu.C(colID).Asc()).
		Limit(uint(pagination.PageSize())).
		Offset(uint(pagination.Offset()))

	pageQuery, _, toSQLErr := pageStmt.ToSQL()
	if toSQLErr != nil {
		ls.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
		return empty, errors.Join(lendingstore.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, err := ls.executeQuery(ctx, ls.db, pageQuery, actionSearchBooks)
	if err != nil {
		return empty, err
	}
	defer ls.closeRows(ctx, rows)

	books := make([]lendingstore.Book, 0)

	for rows.Next() {
		var book lendingstore.Book

		if scanErr := scanBook(rows, &book); scanErr != nil {
			ls.logError(ctx, logMsgScanRowFailed, scanErr)
			return empty, errors.Join(lendingstore.ErrScanningDBRowFailed, scanErr)
		}

		books = append(books, book)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		ls.logError(ctx, logMsgDBQueryFailed, rowsErr, logAttrQuery, pageQuery)
		return empty, errors.Join(lendingstore.ErrQueryingFailed, rowsErr)
	}

	total, err := ls.countRows(ctx, ls.booksTableName, conditions, actionCountBooks)
	if err != nil {
		return empty, err
	}

	return lendingstore.PagedBooks{
		Items:    books,
		Total:    total,
		Page:     pagination.Page(),
		PageSize: pagination.PageSize(),
	}, nil
}

// UpdateBook applies a partial update to a catalog entry and returns the
// updated record. Nil command fields are left unchanged; changing the ISBN to
// one already in use yields lendingstore.ErrDuplicateISBN.
func (ls *LendingStore) UpdateBook(ctx context.Context, bookID lendingstore.IDInt64, command lendingstore.UpdateBookCommand) (lendingstore.Book, error) {
	var empty lendingstore.Book

	record := goqu.Record{}

	if command.Title != nil {
		record[colTitle] = *command.Title
	}
	if command.Author != nil {
		record[colAuthor] = *command.Author
	}
	if command.ISBN != nil {
		record[colISBN] = *command.ISBN
	}
	if command.AvailableQuantity != nil {
		record[colAvailableQuantity] = *command.AvailableQuantity
	}
	if command.ShelfLocation != nil {
		record[colShelfLocation] = *command.ShelfLocation
	}

	if len(record) == 0 {
		return ls.GetBook(ctx, bookID)
	}

	record[colUpdatedAt] = time.Now().UTC()

	rowsAffected, err := ls.updateRowByID(ctx, ls.booksTableName, bookID, record, actionUpdateCatalog)
	if err != nil {
		if isUniqueViolation(err) {
			return empty, lendingstore.ErrDuplicateISBN
		}

		return empty, err
	}

	if rowsAffected == 0 {
		return empty, lendingstore.ErrBookNotFound
	}

	return ls.GetBook(ctx, bookID)
}

// DeleteBook removes a catalog entry. Deleting a book with recorded loans fails
// on the foreign key, past lending history is never silently dropped.
func (ls *LendingStore) DeleteBook(ctx context.Context, bookID lendingstore.IDInt64) error {
	rowsAffected, err := ls.deleteRowByID(ctx, ls.booksTableName, bookID, actionDeleteBook)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return lendingstore.ErrBookNotFound
	}

	return nil
}

/***** borrowers *****/

// RegisterBorrower adds a new library member. The email must be unique;
// a duplicate yields lendingstore.ErrDuplicateEmail.
func (ls *LendingStore) RegisterBorrower(ctx context.Context, command lendingstore.RegisterBorrowerCommand) (lendingstore.Borrower, error) {
	var empty lendingstore.Borrower

	now := time.Now().UTC()

	stmt := goqu.Dialect(dialectPostgres).
		Insert(ls.borrowersTableName).
		Rows(goqu.Record{
			colName:           command.Name,
			colEmail:          command.Email,
			colRegisteredDate: now,
			colCreatedAt:      now,
			colUpdatedAt:      now,
		}).
		Returning(colID)

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		ls.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
		return empty, errors.Join(lendingstore.ErrBuildingQueryFailed, toSQLErr)
	}

	var borrowerID lendingstore.IDInt64
	found, err := ls.querySingleRow(ctx, ls.db, sqlQuery, actionInsertBorrower, func(rows adapters.DBRows) error {
		return rows.Scan(&borrowerID)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return empty, lendingstore.ErrDuplicateEmail
		}

		return empty, err
	}

	if !found {
		return empty, lendingstore.ErrExecFailed
	}

	return lendingstore.Borrower{
		ID:             borrowerID,
		Name:           command.Name,
		Email:          command.Email,
		RegisteredDate: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// GetBorrower reads one borrower by ID.
func (ls *LendingStore) GetBorrower(ctx context.Context, borrowerID lendingstore.IDInt64) (lendingstore.Borrower, error) {
	return ls.readBorrowerRow(ctx, ls.db, borrowerID)
}

// ListBorrowers lists all borrowers, paginated, ordered by name.
func (ls *LendingStore) ListBorrowers(ctx context.Context, pagination lendingstore.Pagination) (lendingstore.PagedBorrowers, error) {
	var empty lendingstore.PagedBorrowers

	if pagination.IsZero() {
		pagination = lendingstore.DefaultPagination()
	}

	pageStmt := goqu.Dialect(dialectPostgres).
		From(ls.borrowersTableName).
		Select(colID, colName, colEmail, colRegisteredDate, colCreatedAt, colUpdatedAt).
		Order(goqu.C(colName).Asc(), goqu.C(colID).Asc()).
		Limit(uint(pagination.PageSize())).
		Offset(uint(pagination.Offset()))

	pageQuery, _, toSQLErr := pageStmt.ToSQL()
	if toSQLErr != nil {
		ls.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
		return empty, errors.Join(lendingstore.ErrBuildingQueryFailed, toSQLErr)
	}

	rows, err := ls.executeQuery(ctx, ls.db, pageQuery, actionListBorrowers)
	if err != nil {
		return empty, err
	}
	defer ls.closeRows(ctx, rows)

	borrowers := make([]lendingstore.Borrower, 0)

	for rows.Next() {
		var borrower lendingstore.Borrower

		if scanErr := scanBorrower(rows, &borrower); scanErr != nil {
			ls.logError(ctx, logMsgScanRowFailed, scanErr)
			return empty, errors.Join(lendingstore.ErrScanningDBRowFailed, scanErr)
		}

		borrowers = append(borrowers, borrower)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		ls.logError(ctx, logMsgDBQueryFailed, rowsErr, logAttrQuery, pageQuery)
		return empty, errors.Join(lendingstore.ErrQueryingFailed, rowsErr)
	}

	total, err := ls.countRows(ctx, ls.borrowersTableName, nil, actionCountBorrowers)
	if err != nil {
		return empty, err
	}

	return lendingstore.PagedBorrowers{
		Items:    borrowers,
		Total:    total,
		Page:     pagination.Page(),
		PageSize: pagination.PageSize(),
	}, nil
}

// UpdateBorrower applies a partial update to a borrower and returns the updated
// record. Changing the email to one already in use yields
// lendingstore.ErrDuplicateEmail.
func (ls *LendingStore) UpdateBorrower(ctx context.Context, borrowerID lendingstore.IDInt64, command lendingstore.UpdateBorrowerCommand) (lendingstore.Borrower, error) {
	var empty lendingstore.Borrower

	record := goqu.Record{}

	if command.Name != nil {
		record[colName] = *command.Name
	}
	if command.Email != nil {
		record[colEmail] = *command.Email
	}

	if len(record) == 0 {
		return ls.GetBorrower(ctx, borrowerID)
	}

	record[colUpdatedAt] = time.Now().UTC()

	rowsAffected, err := ls.updateRowByID(ctx, ls.borrowersTableName, borrowerID, record, actionUpdateBorrower)
	if err != nil {
		if isUniqueViolation(err) {
			return empty, lendingstore.ErrDuplicateEmail
		}

		return empty, err
	}

	if rowsAffected == 0 {
		return empty, lendingstore.ErrBorrowerNotFound
	}

	return ls.GetBorrower(ctx, borrowerID)
}

// DeleteBorrower removes a borrower. Deleting a borrower with recorded loans
// fails on the foreign key.
func (ls *LendingStore) DeleteBorrower(ctx context.Context, borrowerID lendingstore.IDInt64) error {
	rowsAffected, err := ls.deleteRowByID(ctx, ls.borrowersTableName, borrowerID, actionDeleteBorrower)
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return lendingstore.ErrBorrowerNotFound
	}

	return nil
}

/***** shared helpers *****/

func (ls *LendingStore) countRows(ctx context.Context, tableName string, conditions []exp.Expression, action string) (int64, error) {
	stmt := goqu.Dialect(dialectPostgres).
		From(tableName).
		Select(goqu.COUNT(goqu.Star())).
		Where(conditions...)

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		ls.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
		return 0, errors.Join(lendingstore.ErrBuildingQueryFailed, toSQLErr)
	}

	var total int64
	found, err := ls.querySingleRow(ctx, ls.db, sqlQuery, action, func(rows adapters.DBRows) error {
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

func (ls *LendingStore) updateRowByID(
	ctx context.Context,
	tableName string,
	id lendingstore.IDInt64,
	record goqu.Record,
	action string,
) (int64, error) {

	stmt := goqu.Dialect(dialectPostgres).
		Update(tableName).
		Set(record).
		Where(goqu.Ex{colID: id})

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		ls.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
		return 0, errors.Join(lendingstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return ls.executeStatement(ctx, ls.db, sqlQuery, action)
}

func (ls *LendingStore) deleteRowByID(ctx context.Context, tableName string, id lendingstore.IDInt64, action string) (int64, error) {
	stmt := goqu.Dialect(dialectPostgres).
		Delete(tableName).
		Where(goqu.Ex{colID: id})

	sqlQuery, _, toSQLErr := stmt.ToSQL()
	if toSQLErr != nil {
		ls.logError(ctx, logMsgBuildQueryFailed, toSQLErr)
		return 0, errors.Join(lendingstore.ErrBuildingQueryFailed, toSQLErr)
	}

	return ls.executeStatement(ctx, ls.db, sqlQuery, action)
}

func bookSearchConditions(query lendingstore.SearchBooksQuery) []exp.Expression {
	conditions := make([]exp.Expression, 0)

	if query.Title != "" {
		conditions = append(conditions, goqu.C(colTitle).ILike("%"+query.Title+"%"))
	}

	if query.Author != "" {
		conditions = append(conditions, goqu.C(colAuthor).ILike("%"+query.Author+"%"))
	}

	if query.ISBN != "" {
		conditions = append(conditions, goqu.C(colISBN).ILike("%"+query.ISBN+"%"))
	}

	return conditions
}
