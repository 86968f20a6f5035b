package lendingstore

import (
	"time"
)

// Book is the inventory record for one title: a catalog entry plus the contended
// counter of available copies.
//
// AvailableQuantity is never negative. It is mutated exclusively by the lending
// engine's Borrow (decrement) and Return (increment) transactions while the row
// is held under an exclusive lock; a storage-level CHECK constraint backs the
// same invariant.
type Book struct {
	ID                IDInt64   `json:"id"`
	Title             string    `json:"title"`
	Author            string    `json:"author"`
	ISBN              string    `json:"isbn"`
	AvailableQuantity int       `json:"availableQuantity"`
	ShelfLocation     string    `json:"shelfLocation"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// PagedBooks is the listing envelope for paginated book queries.
type PagedBooks struct {
	Items    []Book `json:"items"`
	Total    int64  `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// CreateBookCommand carries the fields for adding a new title to the catalog.
type CreateBookCommand struct {
	Title             string `json:"title"`
	Author            string `json:"author"`
	ISBN              string `json:"isbn"`
	AvailableQuantity int    `json:"availableQuantity"`
	ShelfLocation     string `json:"shelfLocation"`
}

// UpdateBookCommand carries a partial update; nil fields are left unchanged.
//
// AvailableQuantity updates through this path are administrative stock
// corrections - they do not participate in the lending transactions and must
// not be used to work around an exhausted title.
type UpdateBookCommand struct {
	Title             *string `json:"title"`
	Author            *string `json:"author"`
	ISBN              *string `json:"isbn"`
	AvailableQuantity *int    `json:"availableQuantity"`
	ShelfLocation     *string `json:"shelfLocation"`
}

// SearchBooksQuery filters the catalog with case-insensitive substring matches.
// Empty fields are not applied.
type SearchBooksQuery struct {
	Title  string
	Author string
	ISBN   string
	Page   Pagination
}
