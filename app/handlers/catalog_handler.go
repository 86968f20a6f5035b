package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/askard/lendingstore-go/lendingstore"
)

// BookCatalog is the part of the lending store the catalog handler uses.
type BookCatalog interface {
	CreateBook(ctx context.Context, command lendingstore.CreateBookCommand) (lendingstore.Book, error)
	GetBook(ctx context.Context, bookID lendingstore.IDInt64) (lendingstore.Book, error)
	SearchBooks(ctx context.Context, query lendingstore.SearchBooksQuery) (lendingstore.PagedBooks, error)
	UpdateBook(ctx context.Context, bookID lendingstore.IDInt64, command lendingstore.UpdateBookCommand) (lendingstore.Book, error)
	DeleteBook(ctx context.Context, bookID lendingstore.IDInt64) error
}

// CatalogHandler serves book catalog management.
type CatalogHandler struct {
	catalog BookCatalog
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(catalog BookCatalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// CreateBook handles POST /books.
func (h *CatalogHandler) CreateBook(c *fiber.Ctx) error {
	var command lendingstore.CreateBookCommand
	if err := c.BodyParser(&command); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "invalid request body")
	}

	if command.Title == "" || command.ISBN == "" {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "title and isbn are required")
	}

	if command.AvailableQuantity < 0 {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "available quantity must not be negative")
	}

	book, err := h.catalog.CreateBook(c.Context(), command)
	if err != nil {
		return respondWithError(c, err)
	}

	return createdResponse(c, "book created", book)
}

// GetBook handles GET /books/:id.
func (h *CatalogHandler) GetBook(c *fiber.Ctx) error {
	bookID, err := c.ParamsInt("id")
	if err != nil || bookID <= 0 {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "invalid book id")
	}

	book, err := h.catalog.GetBook(c.Context(), int64(bookID))
	if err != nil {
		return respondWithError(c, err)
	}

	return successResponse(c, "book found", book)
}

// SearchBooks handles GET /books.
func (h *CatalogHandler) SearchBooks(c *fiber.Ctx) error {
	pagination, err := paginationFromQuery(c)
	if err != nil {
		return respondWithError(c, err)
	}

	query := lendingstore.SearchBooksQuery{
		Title:  c.Query("title"),
		Author: c.Query("author"),
		ISBN:   c.Query("isbn"),
		Page:   pagination,
	}

	books, err := h.catalog.SearchBooks(c.Context(), query)
	if err != nil {
		return respondWithError(c, err)
	}

	return successResponse(c, "books listed", books)
}

// UpdateBook handles PATCH /books/:id.
func (h *CatalogHandler) UpdateBook(c *fiber.Ctx) error {
	bookID, err := c.ParamsInt("id")
	if err != nil || bookID <= 0 {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "invalid book id")
	}

	var command lendingstore.UpdateBookCommand
	if err = c.BodyParser(&command); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "invalid request body")
	}

	if command.AvailableQuantity != nil && *command.AvailableQuantity < 0 {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "available quantity must not be negative")
	}

	book, err := h.catalog.UpdateBook(c.Context(), int64(bookID), command)
	if err != nil {
		return respondWithError(c, err)
	}

	return successResponse(c, "book updated", book)
}

// DeleteBook handles DELETE /books/:id.
func (h *CatalogHandler) DeleteBook(c *fiber.Ctx) error {
	bookID, err := c.ParamsInt("id")
	if err != nil || bookID <= 0 {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "invalid book id")
	}

	if err = h.catalog.DeleteBook(c.Context(), int64(bookID)); err != nil {
		return respondWithError(c, err)
	}

	return successResponse(c, "book deleted", nil)
}
