package lendingstore

import (
	"time"
)

// Loan is one lending instance: a borrower holding one copy of a title for a
// bounded period.
//
// Lifecycle: created only by a committed Borrow transaction; the only later
// mutation is the one-time transition of ReturnedDate from nil to a timestamp.
// A nil ReturnedDate means the copy is still on loan.
type Loan struct {
	ID           IDInt64    `json:"id"`
	BookID       IDInt64    `json:"bookId"`
	BorrowerID   IDInt64    `json:"borrowerId"`
	BorrowedDate time.Time  `json:"borrowedDate"`
	DueDate      time.Time  `json:"dueDate"`
	ReturnedDate *time.Time `json:"returnedDate"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// IsReturned reports whether the loan has been closed by a return.
func (l Loan) IsReturned() bool {
	return l.ReturnedDate != nil
}

// IsOverdueAt reports whether the loan is open and past due at the given time.
func (l Loan) IsOverdueAt(deadline time.Time) bool {
	return l.ReturnedDate == nil && l.DueDate.Before(deadline)
}

// LoanDetails is a Loan joined with the display fields of its book and borrower,
// the shape returned to callers and fed to the report exporter.
type LoanDetails struct {
	Loan
	BookTitle    string `json:"bookTitle"`
	BorrowerName string `json:"borrowerName"`
}

// PagedLoans is the listing envelope for paginated loan queries.
type PagedLoans struct {
	Items    []LoanDetails `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}

// BorrowBookCommand represents the intent to lend one copy of a book to a
// borrower.
//
// BorrowedDate is optional; the zero value defaults to the transaction time.
// DueDate is required but is deliberately not validated against BorrowedDate:
// callers may record backdated or same-day loans.
type BorrowBookCommand struct {
	BookID       IDInt64   `json:"bookId"`
	BorrowerID   IDInt64   `json:"borrowerId"`
	BorrowedDate time.Time `json:"borrowedDate"`
	DueDate      time.Time `json:"dueDate"`
}

// ReturnBookCommand represents the intent to return a borrowed copy.
type ReturnBookCommand struct {
	LoanID IDInt64 `json:"loanId"`
}
