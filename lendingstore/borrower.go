package lendingstore

import (
	"time"
)

// Borrower is a registered library member. Its identity is immutable once
// created, so lending transactions read it without taking a lock.
type Borrower struct {
	ID             IDInt64   `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	RegisteredDate time.Time `json:"registeredDate"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// PagedBorrowers is the listing envelope for paginated borrower queries.
type PagedBorrowers struct {
	Items    []Borrower `json:"items"`
	Total    int64      `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"pageSize"`
}

// RegisterBorrowerCommand carries the fields for registering a new borrower.
// The registered date is set by the store at registration time.
type RegisterBorrowerCommand struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UpdateBorrowerCommand carries a partial update; nil fields are left unchanged.
type UpdateBorrowerCommand struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}
