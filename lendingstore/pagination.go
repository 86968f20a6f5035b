package lendingstore

import (
	"errors"
)

const (
	// DefaultPage is the first page, pages are 1-based.
	DefaultPage = 1
	// DefaultPageSize is the number of items per page when the caller supplies none.
	DefaultPageSize = 10
)

var ErrInvalidPage = errors.New("page must be >= 1")
var ErrInvalidPageSize = errors.New("page size must be >= 1")

// Pagination is a validated page/pageSize pair for listing queries.
type Pagination struct {
	page     int
	pageSize int
}

// PaginationOf creates a Pagination, rejecting non-positive values.
func PaginationOf(page int, pageSize int) (Pagination, error) {
	if page < 1 {
		return Pagination{}, ErrInvalidPage
	}

	if pageSize < 1 {
		return Pagination{}, ErrInvalidPageSize
	}

	return Pagination{page: page, pageSize: pageSize}, nil
}

// DefaultPagination returns the first page with the default page size.
func DefaultPagination() Pagination {
	return Pagination{page: DefaultPage, pageSize: DefaultPageSize}
}

// Page returns the 1-based page number.
func (p Pagination) Page() int {
	return p.page
}

// PageSize returns the number of items per page.
func (p Pagination) PageSize() int {
	return p.pageSize
}

// Offset returns the number of rows to skip for this page.
func (p Pagination) Offset() int {
	return (p.page - 1) * p.pageSize
}

// IsZero reports whether the pagination was never initialized.
func (p Pagination) IsZero() bool {
	return p.page == 0 && p.pageSize == 0
}
