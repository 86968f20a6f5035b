package lendingstore_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/askard/lendingstore-go/lendingstore"
)

func Test_Loan_IsReturned(t *testing.T) {
	// arrange
	returnedAt := time.Now().UTC()
	open := lendingstore.Loan{DueDate: returnedAt.AddDate(0, 0, 14)}
	closed := lendingstore.Loan{DueDate: returnedAt.AddDate(0, 0, 14), ReturnedDate: &returnedAt}

	// assert
	assert.False(t, open.IsReturned())
	assert.True(t, closed.IsReturned())
}

func Test_Loan_IsOverdueAt(t *testing.T) {
	// arrange
	now := time.Now().UTC()
	returnedAt := now.AddDate(0, 0, -1)

	pastDue := lendingstore.Loan{DueDate: now.AddDate(0, 0, -3)}
	dueLater := lendingstore.Loan{DueDate: now.AddDate(0, 0, 3)}
	dueExactlyNow := lendingstore.Loan{DueDate: now}
	returnedLate := lendingstore.Loan{DueDate: now.AddDate(0, 0, -3), ReturnedDate: &returnedAt}

	// assert
	assert.True(t, pastDue.IsOverdueAt(now))
	assert.False(t, dueLater.IsOverdueAt(now))
	assert.False(t, dueExactlyNow.IsOverdueAt(now), "overdue means strictly past due")
	assert.False(t, returnedLate.IsOverdueAt(now), "a returned loan is never overdue")
}
