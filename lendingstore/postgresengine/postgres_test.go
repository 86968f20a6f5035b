package postgresengine_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/askard/lendingstore-go/lendingstore"
	"github.com/askard/lendingstore-go/lendingstore/postgresengine"
	"github.com/askard/lendingstore-go/testutil/postgresengine/fixtures"
	"github.com/askard/lendingstore-go/testutil/postgresengine/helper"
	"github.com/askard/lendingstore-go/testutil/postgresengine/postgreswrapper"
)

func Test_Borrow_When_CopiesAreAvailable(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	book := fixtures.GivenBookInCirculation(t, store, 3)
	borrower := fixtures.GivenRegisteredBorrower(t, store)
	dueDate := time.Now().UTC().AddDate(0, 0, 14)

	// act
	details, err := store.Borrow(ctxWithTimeout, lendingstore.BorrowBookCommand{
		BookID:     book.ID,
		BorrowerID: borrower.ID,
		DueDate:    dueDate,
	})

	// assert
	assert.NoError(t, err, "error borrowing the book")
	assert.NotZero(t, details.ID, "loan should have an ID")
	assert.Equal(t, book.ID, details.BookID)
	assert.Equal(t, borrower.ID, details.BorrowerID)
	assert.Equal(t, book.Title, details.BookTitle)
	assert.Equal(t, borrower.Name, details.BorrowerName)
	assert.Nil(t, details.ReturnedDate, "a fresh loan must be open")
	assert.Equal(t, 2, postgreswrapper.GetAvailableQuantityFromDB(t, wrapper, book.ID))
}

func Test_Borrow_When_BookDoesNotExist(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	borrower := fixtures.GivenRegisteredBorrower(t, store)

	// act
	_, err := store.Borrow(ctxWithTimeout, lendingstore.BorrowBookCommand{
		BookID:     999999,
		BorrowerID: borrower.ID,
		DueDate:    time.Now().UTC().AddDate(0, 0, 14),
	})

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrBookNotFound)
}

func Test_Borrow_When_BorrowerDoesNotExist(t *testing.T) {
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
	_, err := store.Borrow(ctxWithTimeout, lendingstore.BorrowBookCommand{
		BookID:     book.ID,
		BorrowerID: 999999,
		DueDate:    time.Now().UTC().AddDate(0, 0, 14),
	})

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrBorrowerNotFound)
	assert.Equal(t, 1, postgreswrapper.GetAvailableQuantityFromDB(t, wrapper, book.ID),
		"failed borrow must not change the stock")
}

func Test_Borrow_When_NoCopiesAreAvailable(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	book := fixtures.GivenBookInCirculation(t, store, 0)
	borrower := fixtures.GivenRegisteredBorrower(t, store)

	// act
	_, err := store.Borrow(ctxWithTimeout, lendingstore.BorrowBookCommand{
		BookID:     book.ID,
		BorrowerID: borrower.ID,
		DueDate:    time.Now().UTC().AddDate(0, 0, 14),
	})

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrBookUnavailable)
	assert.Equal(t, 0, postgreswrapper.GetAvailableQuantityFromDB(t, wrapper, book.ID))
	assert.Equal(t, 0, postgreswrapper.CountOpenLoansFromDB(t, wrapper, book.ID),
		"rejected borrow must not create a loan")
}

func Test_Borrow_When_DueDateIsMissing(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	book := fixtures.GivenBookInCirculation(t, store, 1)
	borrower := fixtures.GivenRegisteredBorrower(t, store)

	// act
	_, err := store.Borrow(ctxWithTimeout, lendingstore.BorrowBookCommand{
		BookID:     book.ID,
		BorrowerID: borrower.ID,
	})

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrMissingDueDate)
}

func Test_Borrow_When_DueDateLiesInThePast(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	book := fixtures.GivenBookInCirculation(t, store, 1)
	borrower := fixtures.GivenRegisteredBorrower(t, store)

	// act - backdated loans are deliberately accepted
	details, err := store.Borrow(ctxWithTimeout, lendingstore.BorrowBookCommand{
		BookID:     book.ID,
		BorrowerID: borrower.ID,
		DueDate:    time.Now().UTC().AddDate(0, 0, -7),
	})

	// assert
	assert.NoError(t, err, "a past due date must not be rejected")
	assert.NotZero(t, details.ID)
}

func Test_Return_When_LoanIsOpen(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	book := fixtures.GivenBookInCirculation(t, store, 2)
	borrower := fixtures.GivenRegisteredBorrower(t, store)
	loan := fixtures.GivenOpenLoan(t, store, book, borrower, time.Now().UTC().AddDate(0, 0, 14))

	// act
	details, err := store.Return(ctxWithTimeout, lendingstore.ReturnBookCommand{LoanID: loan.ID})

	// assert
	assert.NoError(t, err, "error returning the book")
	assert.NotNil(t, details.ReturnedDate, "returned loan must carry a returned date")
	assert.Equal(t, book.Title, details.BookTitle)
	assert.Equal(t, 2, postgreswrapper.GetAvailableQuantityFromDB(t, wrapper, book.ID),
		"return must restore the stock")
	assert.Equal(t, 0, postgreswrapper.CountOpenLoansFromDB(t, wrapper, book.ID))
}

func Test_Return_When_LoanDoesNotExist(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)

	// act
	_, err := store.Return(ctxWithTimeout, lendingstore.ReturnBookCommand{LoanID: 999999})

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrLoanNotFound)
}

func Test_Return_When_LoanWasAlreadyReturned(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	book := fixtures.GivenBookInCirculation(t, store, 1)
	borrower := fixtures.GivenRegisteredBorrower(t, store)
	loan := fixtures.GivenReturnedLoan(t, store, book, borrower, time.Now().UTC().AddDate(0, 0, 14))

	// act
	_, err := store.Return(ctxWithTimeout, lendingstore.ReturnBookCommand{LoanID: loan.ID})

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrLoanAlreadyReturned)
	assert.Equal(t, 1, postgreswrapper.GetAvailableQuantityFromDB(t, wrapper, book.ID),
		"a rejected double return must not inflate the stock")
}

func Test_Borrow_When_ManyConcurrentRequests_CompeteForLimitedCopies(t *testing.T) {
	// setup
	const stock = 3
	const requests = 10

	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	book := fixtures.GivenBookInCirculation(t, store, stock)

	borrowers := make([]lendingstore.Borrower, requests)
	for i := range borrowers {
		borrowers[i] = fixtures.GivenRegisteredBorrower(t, store)
	}

	dueDate := time.Now().UTC().AddDate(0, 0, 14)

	// act
	var succeeded, unavailable, unexpected atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < requests; i++ {
		wg.Add(1)

		go func(borrowerID lendingstore.IDInt64) {
			defer wg.Done()

			borrowOnce := func(ctx context.Context) error {
				_, borrowErr := store.Borrow(ctx, lendingstore.BorrowBookCommand{
					BookID:     book.ID,
					BorrowerID: borrowerID,
					DueDate:    dueDate,
				})

				return borrowErr
			}

			err := lendingstore.RetryWithExponentialBackoff(ctxWithTimeout, borrowOnce)

			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, lendingstore.ErrBookUnavailable):
				unavailable.Add(1)
			default:
				unexpected.Add(1)
			}
		}(borrowers[i].ID)
	}

	wg.Wait()

	// assert
	assert.Equal(t, int64(0), unexpected.Load(), "no borrow may fail with an unexpected error")
	assert.Equal(t, int64(stock), succeeded.Load(), "exactly one borrow per copy must succeed")
	assert.Equal(t, int64(requests-stock), unavailable.Load(), "every other borrow must be rejected")
	assert.Equal(t, 0, postgreswrapper.GetAvailableQuantityFromDB(t, wrapper, book.ID),
		"all copies must be lent out")
	assert.Equal(t, stock, postgreswrapper.CountOpenLoansFromDB(t, wrapper, book.ID),
		"open loans must equal lent copies")
}

func Test_Borrow_Then_Return_Then_Borrow_When_OnlyOneCopyExists(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	book := fixtures.GivenBookInCirculation(t, store, 1)
	readerA := fixtures.GivenRegisteredBorrower(t, store)
	readerB := fixtures.GivenRegisteredBorrower(t, store)
	dueDate := time.Now().UTC().AddDate(0, 0, 14)

	// act + assert
	loanA, err := store.Borrow(ctxWithTimeout, lendingstore.BorrowBookCommand{
		BookID: book.ID, BorrowerID: readerA.ID, DueDate: dueDate,
	})
	assert.NoError(t, err, "first borrow must succeed")

	_, err = store.Borrow(ctxWithTimeout, lendingstore.BorrowBookCommand{
		BookID: book.ID, BorrowerID: readerB.ID, DueDate: dueDate,
	})
	assert.ErrorIs(t, err, lendingstore.ErrBookUnavailable, "second borrow must be rejected")

	_, err = store.Return(ctxWithTimeout, lendingstore.ReturnBookCommand{LoanID: loanA.ID})
	assert.NoError(t, err, "return must succeed")

	_, err = store.Borrow(ctxWithTimeout, lendingstore.BorrowBookCommand{
		BookID: book.ID, BorrowerID: readerB.ID, DueDate: dueDate,
	})
	assert.NoError(t, err, "borrow after return must succeed")
}

func Test_Borrow_RecordsMetrics(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	metricsSpy := helper.NewMetricsCollectorSpy()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t, postgresengine.WithMetrics(metricsSpy))
	defer wrapper.Close()
	store := wrapper.GetLendingStore()

	// arrange
	postgreswrapper.CleanUp(t, wrapper)
	book := fixtures.GivenBookInCirculation(t, store, 1)
	borrower := fixtures.GivenRegisteredBorrower(t, store)
	metricsSpy.Reset()

	// act
	_, err := store.Borrow(ctxWithTimeout, lendingstore.BorrowBookCommand{
		BookID:     book.ID,
		BorrowerID: borrower.ID,
		DueDate:    time.Now().UTC().AddDate(0, 0, 14),
	})
	assert.NoError(t, err, "error borrowing the book")

	_, err = store.Borrow(ctxWithTimeout, lendingstore.BorrowBookCommand{
		BookID:     book.ID,
		BorrowerID: borrower.ID,
		DueDate:    time.Now().UTC().AddDate(0, 0, 14),
	})
	assert.ErrorIs(t, err, lendingstore.ErrBookUnavailable)

	// assert
	assert.True(t, metricsSpy.HasDurationRecord("lendingstore_operation_duration",
		map[string]string{"operation": "borrow", "status": "ok"}),
		"successful borrow must record its duration")
	assert.True(t, metricsSpy.HasCounterRecord("lendingstore_conflicts",
		map[string]string{"operation": "borrow", "reason": "book_unavailable"}),
		"rejected borrow must count a conflict")
}

func Test_Ping(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wrapper := postgreswrapper.CreateWrapperWithTestConfig(t)
	defer wrapper.Close()

	// act
	err := wrapper.GetLendingStore().Ping(ctxWithTimeout)

	// assert
	assert.NoError(t, err, "ping should succeed against the test database")
}
