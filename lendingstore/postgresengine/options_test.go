package postgresengine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/askard/lendingstore-go/lendingstore"
	"github.com/askard/lendingstore-go/lendingstore/postgresengine"
	"github.com/askard/lendingstore-go/testutil/postgresengine/postgreswrapper"
)

func Test_NewLendingStore_When_ConnectionIsNil(t *testing.T) {
	// act
	_, err := postgresengine.NewLendingStoreFromPGXPool(nil)

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrNilDatabaseConnection)
}

func Test_NewLendingStore_When_TableNameIsEmpty(t *testing.T) {
	// act
	err := postgreswrapper.TryCreateLendingStoreWithOptions(t, postgresengine.WithBooksTableName(""))

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrEmptyTableName)
}

func Test_NewLendingStore_When_LoansTableNameIsEmpty(t *testing.T) {
	// act
	err := postgreswrapper.TryCreateLendingStoreWithOptions(t, postgresengine.WithLoansTableName(""))

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrEmptyTableName)
}

func Test_NewLendingStore_When_LockTimeoutIsNotPositive(t *testing.T) {
	// act
	err := postgreswrapper.TryCreateLendingStoreWithOptions(t, postgresengine.WithLockTimeout(0))

	// assert
	assert.ErrorIs(t, err, lendingstore.ErrInvalidLockTimeout)
}

func Test_NewLendingStore_When_CustomTableNamesAreSupplied(t *testing.T) {
	// act
	err := postgreswrapper.TryCreateLendingStoreWithOptions(t,
		postgresengine.WithBooksTableName("books"),
		postgresengine.WithBorrowersTableName("borrowers"),
		postgresengine.WithLoansTableName("loans"),
		postgresengine.WithLockTimeout(2*time.Second),
	)

	// assert
	assert.NoError(t, err, "valid options must be accepted")
}
