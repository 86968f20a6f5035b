package postgresengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askard/lendingstore-go/lendingstore"
	"github.com/askard/lendingstore-go/testutil/postgresengine/fixtures"
	"github.com/askard/lendingstore-go/testutil/postgresengine/postgreswrapper"
)

func Test_CreateBook_And_GetBook(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)

	// act
	created, err := store.CreateBook(ctxWithTimeout, lendingstore.CreateBookCommand{
		Title:             "Clean Architecture",
		Author:            "Robert C. Martin",
		ISBN:              "978-0134494166",
		AvailableQuantity: 4,
		ShelfLocation:     "B-07",
	})
	assert.NoError(t, err, "error creating the book")

	fetched, err := store.GetBook(ctxWithTimeout, created.ID)
	assert.NoError(t, err, "error fetching the book")

	// assert
	assert.NotZero(t, created.ID)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "Clean Architecture", fetched.Title)
	assert.Equal(t, "978-0134494166", fetched.ISBN)
	assert.Equal(t, 4, fetched.AvailableQuantity)
	assert.False(t, fetched.CreatedAt.IsZero(), "created timestamp must be set")
}

func Test_CreateBook_When_ISBNAlreadyExists(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	existing := fixtures.GivenBookInCirculation(t, store, 1)

	// act
	_, err := store.CreateBook(ctxWithTimeout, lendingstore.CreateBookCommand{
		Title:             "A Different Title",
		Author:            "Someone Else",
		ISBN:              existing.ISBN,
		AvailableQuantity: 1,
	})

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrDuplicateISBN)
}

func Test_GetBook_When_BookDoesNotExist(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)

	// act
	_, err := wrapper.GetLendingStore().GetBook(ctxWithTimeout, 999999)

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrBookNotFound)
}

func Test_SearchBooks_When_FilteringByTitle(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)

	_, err := store.CreateBook(ctxWithTimeout, lendingstore.CreateBookCommand{
		Title: "Domain-Driven Design", Author: "Eric Evans", ISBN: "978-0321125217", AvailableQuantity: 2,
	})
	require.NoError(t, err)
	_, err = store.CreateBook(ctxWithTimeout, lendingstore.CreateBookCommand{
		Title: "Implementing Domain-Driven Design", Author: "Vaughn Vernon", ISBN: "978-0321834577", AvailableQuantity: 2,
	})
	require.NoError(t, err)
	_, err = store.CreateBook(ctxWithTimeout, lendingstore.CreateBookCommand{
		Title: "The Go Programming Language", Author: "Donovan and Kernighan", ISBN: "978-0134190440", AvailableQuantity: 2,
	})
	require.NoError(t, err)

	// act - matching is case-insensitive and matches substrings
	page, err := store.SearchBooks(ctxWithTimeout, lendingstore.SearchBooksQuery{Title: "domain-driven"})

	// assert
	assert.NoError(t, err, "error searching the catalog")
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(2), page.Total)
}

func Test_SearchBooks_When_NoFilterIsGiven(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	fixtures.GivenBookInCirculation(t, store, 1)
	fixtures.GivenBookInCirculation(t, store, 1)

	// act
	page, err := store.SearchBooks(ctxWithTimeout, lendingstore.SearchBooksQuery{})

	// assert
	assert.NoError(t, err)
	assert.Len(t, page.Items, 2, "an empty query lists the whole catalog")
	assert.Equal(t, lendingstore.DefaultPagination().Page(), page.Page)
}

func Test_UpdateBook_When_UpdateIsPartial(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	book := fixtures.GivenBookInCirculation(t, store, 3)
	newLocation := "C-21"

	// act
	updated, err := store.UpdateBook(ctxWithTimeout, book.ID, lendingstore.UpdateBookCommand{
		ShelfLocation: &newLocation,
	})

	// assert
	assert.NoError(t, err, "error updating the book")
	assert.Equal(t, "C-21", updated.ShelfLocation)
	assert.Equal(t, book.Title, updated.Title, "untouched fields must keep their value")
	assert.Equal(t, book.AvailableQuantity, updated.AvailableQuantity)
}

func Test_UpdateBook_When_BookDoesNotExist(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	newTitle := "Ghost Title"

	// act
	_, err := wrapper.GetLendingStore().UpdateBook(ctxWithTimeout, 999999, lendingstore.UpdateBookCommand{
		Title: &newTitle,
	})

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrBookNotFound)
}

func Test_DeleteBook(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	book := fixtures.GivenBookInCirculation(t, store, 1)

	// act
	err := store.DeleteBook(ctxWithTimeout, book.ID)
	assert.NoError(t, err, "error deleting the book")

	_, err = store.GetBook(ctxWithTimeout, book.ID)

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrBookNotFound)

	err = store.DeleteBook(ctxWithTimeout, book.ID)
	assert.ErrorIs(t, err, lendingstore.ErrBookNotFound, "deleting twice must report not found")
}

func Test_RegisterBorrower_When_EmailAlreadyExists(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	existing := fixtures.GivenRegisteredBorrower(t, store)

	// act
	_, err := store.RegisterBorrower(ctxWithTimeout, lendingstore.RegisterBorrowerCommand{
		Name:  "Another Reader",
		Email: existing.Email,
	})

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrDuplicateEmail)
}

func Test_RegisterBorrower_SetsTheRegisteredDate(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)

	// act
	borrower, err := store.RegisterBorrower(ctxWithTimeout, lendingstore.RegisterBorrowerCommand{
		Name:  "Fresh Reader",
		Email: "fresh.reader@example.com",
	})

	// assert
	assert.NoError(t, err, "error registering the borrower")
	assert.False(t, borrower.RegisteredDate.IsZero(), "registered date must be set by the store")
}

func Test_ListBorrowers(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	fixtures.GivenRegisteredBorrower(t, store)
	fixtures.GivenRegisteredBorrower(t, store)
	fixtures.GivenRegisteredBorrower(t, store)

	pagination, err := lendingstore.PaginationOf(1, 2)
	require.NoError(t, err)

	// act
	page, err := store.ListBorrowers(ctxWithTimeout, pagination)

	// assert
	assert.NoError(t, err, "error listing borrowers")
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(3), page.Total)
}

func Test_UpdateBorrower(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	borrower := fixtures.GivenRegisteredBorrower(t, store)
	newName := "Renamed Reader"

	// act
	updated, err := store.UpdateBorrower(ctxWithTimeout, borrower.ID, lendingstore.UpdateBorrowerCommand{
		Name: &newName,
	})

	// assert
	assert.NoError(t, err, "error updating the borrower")
	assert.Equal(t, "Renamed Reader", updated.Name)
	assert.Equal(t, borrower.Email, updated.Email, "untouched fields must keep their value")
}

func Test_DeleteBorrower_When_BorrowerDoesNotExist(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)

	// act
	err := wrapper.GetLendingStore().DeleteBorrower(ctxWithTimeout, 999999)

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrBorrowerNotFound)
}
