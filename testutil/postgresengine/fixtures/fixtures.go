// Package fixtures provides Given-style test data builders for the lending
// store tests. All builders go through the store's own operations, so fixture
// data always satisfies the same constraints as production data.
package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/askard/lendingstore-go/lendingstore"
	"github.com/askard/lendingstore-go/lendingstore/postgresengine"
)

// GivenBookInCirculation creates a catalog entry with the given number of
// available copies. Title and ISBN are unique per call.
func GivenBookInCirculation(t testing.TB, store *postgresengine.LendingStore, copies int) lendingstore.Book {
	t.Helper()

	suffix := uuid.New().String()[:8]

	book, err := store.CreateBook(context.Background(), lendingstore.CreateBookCommand{
		Title:             "The Pragmatic Go Programmer " + suffix,
		Author:            "A. Gopher",
		ISBN:              "978-" + suffix,
		AvailableQuantity: copies,
		ShelfLocation:     "A-12",
	})
	require.NoError(t, err, "error creating fixture book")

	return book
}

// GivenRegisteredBorrower creates a borrower with a unique email.
func GivenRegisteredBorrower(t testing.TB, store *postgresengine.LendingStore) lendingstore.Borrower {
	t.Helper()

	suffix := uuid.New().String()[:8]

	borrower, err := store.RegisterBorrower(context.Background(), lendingstore.RegisterBorrowerCommand{
		Name:  "Reader " + suffix,
		Email: "reader-" + suffix + "@example.com",
	})
	require.NoError(t, err, "error creating fixture borrower")

	return borrower
}

// GivenOpenLoan lends one copy of the book to the borrower with the given due
// date. A past due date makes the loan overdue.
func GivenOpenLoan(
	t testing.TB,
	store *postgresengine.LendingStore,
	book lendingstore.Book,
	borrower lendingstore.Borrower,
	dueDate time.Time,
) lendingstore.LoanDetails {

	t.Helper()

	loan, err := store.Borrow(context.Background(), lendingstore.BorrowBookCommand{
		BookID:     book.ID,
		BorrowerID: borrower.ID,
		DueDate:    dueDate,
	})
	require.NoError(t, err, "error creating fixture loan")

	return loan
}

// GivenReturnedLoan creates a loan and immediately returns it.
func GivenReturnedLoan(
	t testing.TB,
	store *postgresengine.LendingStore,
	book lendingstore.Book,
	borrower lendingstore.Borrower,
	dueDate time.Time,
) lendingstore.LoanDetails {

	t.Helper()

	open := GivenOpenLoan(t, store, book, borrower, dueDate)

	returned, err := store.Return(context.Background(), lendingstore.ReturnBookCommand{LoanID: open.ID})
	require.NoError(t, err, "error returning fixture loan")

	return returned
}
