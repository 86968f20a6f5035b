package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/askard/lendingstore-go/lendingstore"
	"github.com/askard/lendingstore-go/report"
)

// LendingEngine is the part of the lending store the lending handler uses.
type LendingEngine interface {
	Borrow(ctx context.Context, command lendingstore.BorrowBookCommand) (lendingstore.LoanDetails, error)
	Return(ctx context.Context, command lendingstore.ReturnBookCommand) (lendingstore.LoanDetails, error)
	FindAll(ctx context.Context, pagination lendingstore.Pagination) (lendingstore.PagedLoans, error)
	FindOverdue(ctx context.Context, asOf time.Time, pagination lendingstore.Pagination) (lendingstore.PagedLoans, error)
	FindByBorrower(ctx context.Context, borrowerID lendingstore.IDInt64, pagination lendingstore.Pagination) (lendingstore.PagedLoans, error)
	FindByPeriod(ctx context.Context, from time.Time, until time.Time) ([]lendingstore.LoanDetails, error)
	FindInLastMonth(ctx context.Context) ([]lendingstore.LoanDetails, error)
	FindLoans(ctx context.Context, scan lendingstore.LoanScan) ([]lendingstore.LoanDetails, int64, error)
}

// LendingHandler serves the borrow/return operations, loan listings and
// report exports.
//
// Borrow and Return are wrapped in a bounded lock timeout retry: a contended
// title produces transient lock timeouts that usually succeed on a quick
// resubmit, so the handler retries before surfacing a 503 to the client.
type LendingHandler struct {
	engine       LendingEngine
	exporter     report.Exporter
	retryOptions []lendingstore.RetryOption
}

// NewLendingHandler creates a lending handler. The retry options apply to the
// borrow/return lock timeout retry.
func NewLendingHandler(engine LendingEngine, exporter report.Exporter, retryOptions ...lendingstore.RetryOption) *LendingHandler {
	return &LendingHandler{
		engine:       engine,
		exporter:     exporter,
		retryOptions: retryOptions,
	}
}

type borrowRequest struct {
	BookID       lendingstore.IDInt64 `json:"bookId"`
	BorrowerID   lendingstore.IDInt64 `json:"borrowerId"`
	BorrowedDate *time.Time           `json:"borrowedDate"`
	DueDate      *time.Time           `json:"dueDate"`
}

// Borrow handles POST /borrows.
func (h *LendingHandler) Borrow(c *fiber.Ctx) error {
	var request borrowRequest
	if err := c.BodyParser(&request); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "invalid request body")
	}

	command := lendingstore.BorrowBookCommand{
		BookID:     request.BookID,
		BorrowerID: request.BorrowerID,
	}

	if request.BorrowedDate != nil {
		command.BorrowedDate = *request.BorrowedDate
	}

	if request.DueDate != nil {
		command.DueDate = *request.DueDate
	}

	var details lendingstore.LoanDetails

	err := lendingstore.RetryWithExponentialBackoff(c.Context(), func(ctx context.Context) error {
		var opErr error
		details, opErr = h.engine.Borrow(ctx, command)

		return opErr
	}, h.retryOptions...)
	if err != nil {
		return respondWithError(c, err)
	}

	return createdResponse(c, "book borrowed", details)
}

// Return handles PATCH /borrows/:id/return.
func (h *LendingHandler) Return(c *fiber.Ctx) error {
	loanID, err := c.ParamsInt("id")
	if err != nil || loanID <= 0 {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "invalid loan id")
	}

	command := lendingstore.ReturnBookCommand{LoanID: int64(loanID)}

	var details lendingstore.LoanDetails

	err = lendingstore.RetryWithExponentialBackoff(c.Context(), func(ctx context.Context) error {
		var opErr error
		details, opErr = h.engine.Return(ctx, command)

		return opErr
	}, h.retryOptions...)
	if err != nil {
		return respondWithError(c, err)
	}

	return successResponse(c, "book returned", details)
}

// ListLoans handles GET /borrows.
func (h *LendingHandler) ListLoans(c *fiber.Ctx) error {
	pagination, err := paginationFromQuery(c)
	if err != nil {
		return respondWithError(c, err)
	}

	loans, err := h.engine.FindAll(c.Context(), pagination)
	if err != nil {
		return respondWithError(c, err)
	}

	return successResponse(c, "loans listed", loans)
}

// ListOverdueLoans handles GET /borrows/overdue.
func (h *LendingHandler) ListOverdueLoans(c *fiber.Ctx) error {
	pagination, err := paginationFromQuery(c)
	if err != nil {
		return respondWithError(c, err)
	}

	loans, err := h.engine.FindOverdue(c.Context(), time.Now().UTC(), pagination)
	if err != nil {
		return respondWithError(c, err)
	}

	return successResponse(c, "overdue loans listed", loans)
}

// ListBorrowerLoans handles GET /borrows/borrower/:borrowerId.
func (h *LendingHandler) ListBorrowerLoans(c *fiber.Ctx) error {
	borrowerID, err := c.ParamsInt("borrowerId")
	if err != nil || borrowerID <= 0 {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "invalid borrower id")
	}

	pagination, err := paginationFromQuery(c)
	if err != nil {
		return respondWithError(c, err)
	}

	loans, err := h.engine.FindByBorrower(c.Context(), int64(borrowerID), pagination)
	if err != nil {
		return respondWithError(c, err)
	}

	return successResponse(c, "borrower loans listed", loans)
}

// ExportLastMonth handles GET /borrows/export/last-month.
func (h *LendingHandler) ExportLastMonth(c *fiber.Ctx) error {
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		return respondWithError(c, err)
	}

	loans, err := h.engine.FindInLastMonth(c.Context())
	if err != nil {
		return respondWithError(c, err)
	}

	return h.sendReport(c, loans, format)
}

// ExportOverdue handles GET /borrows/export/overdue, exporting every loan that
// is open and past due right now.
func (h *LendingHandler) ExportOverdue(c *fiber.Ctx) error {
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		return respondWithError(c, err)
	}

	loans, _, err := h.engine.FindLoans(c.Context(), lendingstore.ScanLoans().WithOverdueAsOf(time.Now().UTC()))
	if err != nil {
		return respondWithError(c, err)
	}

	return h.sendReport(c, loans, format)
}

// ExportPeriod handles GET /borrows/export. The period bounds come from the
// from/until query parameters as dates or RFC 3339 timestamps; a missing bound
// leaves that side of the period open.
func (h *LendingHandler) ExportPeriod(c *fiber.Ctx) error {
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		return respondWithError(c, err)
	}

	from, err := timeFromQuery(c, "from")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "invalid from date")
	}

	until, err := timeFromQuery(c, "until")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, "invalid until date")
	}

	loans, err := h.engine.FindByPeriod(c.Context(), from, until)
	if err != nil {
		return respondWithError(c, err)
	}

	return h.sendReport(c, loans, format)
}

func (h *LendingHandler) sendReport(c *fiber.Ctx, loans []lendingstore.LoanDetails, format report.Format) error {
	file, err := h.exporter.Export(loans, format)
	if err != nil {
		return respondWithError(c, err)
	}

	c.Set(fiber.HeaderContentType, file.MIMEType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.Filename))

	return c.Send(file.Content)
}

func paginationFromQuery(c *fiber.Ctx) (lendingstore.Pagination, error) {
	page := c.QueryInt("page", lendingstore.DefaultPage)
	pageSize := c.QueryInt("pageSize", lendingstore.DefaultPageSize)

	return lendingstore.PaginationOf(page, pageSize)
}

func timeFromQuery(c *fiber.Ctx, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}

	return time.Parse("2006-01-02", raw)
}
