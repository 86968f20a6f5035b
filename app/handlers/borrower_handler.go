package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/askard/lendingstore-go/lendingstore"
)

// BorrowerRegistry is the part of the lending store the borrower handler uses.
type BorrowerRegistry interface {
	RegisterBorrower(ctx context.Context, command lendingstore.RegisterBorrowerCommand) (lendingstore.Borrower, error)
	GetBorrower(ctx context.Context, borrowerID lendingstore.IDInt64) (lendingstore.Borrower, error)
	ListBorrowers(ctx context.Context, pagination lendingstore.Pagination) (lendingstore.PagedBorrowers, error)
	UpdateBorrower(ctx context.Context, borrowerID lendingstore.IDInt64, command lendingstore.UpdateBorrowerCommand) (lendingstore.Borrower, error)
	DeleteBorrower(ctx context.Context, borrowerID lendingstore.IDInt64) error
}

// BorrowerHandler serves borrower registration and management.
type BorrowerHandler struct {
	registry BorrowerRegistry
}

// NewBorrowerHandler creates a borrower handler.
func NewBorrowerHandler(registry BorrowerRegistry) *BorrowerHandler {
	return &BorrowerHandler{registry: registry}
}

// RegisterBorrower handles POST /borrowers.
func (h *BorrowerHandler) RegisterBorrower(c *fiber.Ctx) error {
	var command lendingstore.RegisterBorrowerCommand
	if err := c.BodyParser(&command); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "invalid request body")
	}

	if command.Name == "" || command.Email == "" {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "name and email are required")
	}

	borrower, err := h.registry.RegisterBorrower(c.Context(), command)
	if err != nil {
		return respondWithError(c, err)
	}

	return createdResponse(c, "borrower registered", borrower)
}

// GetBorrower handles GET /borrowers/:id.
func (h *BorrowerHandler) GetBorrower(c *fiber.Ctx) error {
	borrowerID, err := c.ParamsInt("id")
	if err != nil || borrowerID <= 0 {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "invalid borrower id")
	}

	borrower, err := h.registry.GetBorrower(c.Context(), int64(borrowerID))
	if err != nil {
		return respondWithError(c, err)
	}

	return successResponse(c, "borrower found", borrower)
}

// ListBorrowers handles GET /borrowers.
func (h *BorrowerHandler) ListBorrowers(c *fiber.Ctx) error {
	pagination, err := paginationFromQuery(c)
	if err != nil {
		return respondWithError(c, err)
	}

	borrowers, err := h.registry.ListBorrowers(c.Context(), pagination)
	if err != nil {
		return respondWithError(c, err)
	}

	return successResponse(c, "borrowers listed", borrowers)
}

// UpdateBorrower handles PATCH /borrowers/:id.
func (h *BorrowerHandler) UpdateBorrower(c *fiber.Ctx) error {
	borrowerID, err := c.ParamsInt("id")
	if err != nil || borrowerID <= 0 {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "invalid borrower id")
	}

	var command lendingstore.UpdateBorrowerCommand
	if err = c.BodyParser(&command); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "invalid request body")
	}

	borrower, err := h.registry.UpdateBorrower(c.Context(), int64(borrowerID), command)
	if err != nil {
		return respondWithError(c, err)
	}

	return successResponse(c, "borrower updated", borrower)
}

// DeleteBorrower handles DELETE /borrowers/:id.
func (h *BorrowerHandler) DeleteBorrower(c *fiber.Ctx) error {
	borrowerID, err := c.ParamsInt("id")
	if err != nil || borrowerID <= 0 {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "invalid borrower id")
	}

	if err = h.registry.DeleteBorrower(c.Context(), int64(borrowerID)); err != nil {
		return respondWithError(c, err)
	}

	return successResponse(c, "borrower deleted", nil)
}
