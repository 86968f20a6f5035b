package lendingstore

import (
	"time"
)

// LoanScan describes a read-only query over loan records to be translated into
// DB type-specific SQL by a storage engine. It is designed to only express the
// "useful" combinations for the lending workflows:
//
//   - empty scan (all loans)
//   - open loans only
//   - open loans past a deadline (overdue)
//   - borrowed-date lower/upper bounds, independently applicable
//   - loans of one borrower
//   - any of the above, paginated
//
// Scans never take row locks; they read committed state only and do not
// participate in the invariant-bearing borrow/return transactions.
type LoanScan struct {
	borrowerID    IDInt64
	openOnly      bool
	overdueAsOf   time.Time
	borrowedFrom  time.Time
	borrowedUntil time.Time
	pagination    Pagination
}

// ScanLoans starts an empty scan matching every loan.
func ScanLoans() LoanScan {
	return LoanScan{}
}

// WithBorrower restricts the scan to loans of one borrower.
func (s LoanScan) WithBorrower(borrowerID IDInt64) LoanScan {
	s.borrowerID = borrowerID
	return s
}

// WithOpenOnly restricts the scan to loans that have not been returned.
func (s LoanScan) WithOpenOnly() LoanScan {
	s.openOnly = true
	return s
}

// WithOverdueAsOf restricts the scan to open loans whose due date lies before
// the given deadline. It implies WithOpenOnly.
func (s LoanScan) WithOverdueAsOf(deadline time.Time) LoanScan {
	s.openOnly = true
	s.overdueAsOf = deadline

	return s
}

// WithBorrowedFrom applies an inclusive lower bound on the borrowed date.
func (s LoanScan) WithBorrowedFrom(from time.Time) LoanScan {
	s.borrowedFrom = from
	return s
}

// WithBorrowedUntil applies an inclusive upper bound on the borrowed date.
func (s LoanScan) WithBorrowedUntil(until time.Time) LoanScan {
	s.borrowedUntil = until
	return s
}

// WithPagination pages the scan results.
func (s LoanScan) WithPagination(p Pagination) LoanScan {
	s.pagination = p
	return s
}

// BorrowerID returns the borrower restriction, 0 when unset.
func (s LoanScan) BorrowerID() IDInt64 {
	return s.borrowerID
}

// OpenOnly reports whether returned loans are excluded.
func (s LoanScan) OpenOnly() bool {
	return s.openOnly
}

// OverdueAsOf returns the overdue deadline, the zero time when unset.
func (s LoanScan) OverdueAsOf() time.Time {
	return s.overdueAsOf
}

// BorrowedFrom returns the lower borrowed-date bound, the zero time when unset.
func (s LoanScan) BorrowedFrom() time.Time {
	return s.borrowedFrom
}

// BorrowedUntil returns the upper borrowed-date bound, the zero time when unset.
func (s LoanScan) BorrowedUntil() time.Time {
	return s.borrowedUntil
}

// Pagination returns the pagination and whether one was set.
func (s LoanScan) Pagination() (Pagination, bool) {
	return s.pagination, !s.pagination.IsZero()
}
