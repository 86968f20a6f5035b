package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/askard/lendingstore-go/lendingstore"
	"github.com/askard/lendingstore-go/report"
)

const (
	codeNotFound           = "NOT_FOUND"
	codeConflict           = "CONFLICT"
	codeBadRequest         = "BAD_REQUEST"
	codeServiceUnavailable = "SERVICE_UNAVAILABLE"
	codeInternalError      = "INTERNAL_SERVER_ERROR"

	// retryAfterSeconds is advertised on lock timeout responses; the whole
	// borrow/return operation is safe to resubmit.
	retryAfterSeconds = "1"
)

// respondWithError maps a lendingstore error onto an HTTP status and writes
// the error envelope.
//
// Not-found failures are 404, business conflicts 409, validation failures 400.
// A lock timeout is 503 with a Retry-After header: the request was rejected
// because a row lock stayed contended, not because it was invalid.
func respondWithError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, lendingstore.ErrBookNotFound),
		errors.Is(err, lendingstore.ErrBorrowerNotFound),
		errors.Is(err, lendingstore.ErrLoanNotFound):
		return errorResponse(c, fiber.StatusNotFound, codeNotFound, messageOf(err))

	case errors.Is(err, lendingstore.ErrBookUnavailable),
		errors.Is(err, lendingstore.ErrLoanAlreadyReturned),
		errors.Is(err, lendingstore.ErrDuplicateISBN),
		errors.Is(err, lendingstore.ErrDuplicateEmail):
		return errorResponse(c, fiber.StatusConflict, codeConflict, messageOf(err))

	case errors.Is(err, lendingstore.ErrMissingDueDate),
		errors.Is(err, lendingstore.ErrInvalidPage),
		errors.Is(err, lendingstore.ErrInvalidPageSize),
		errors.Is(err, report.ErrUnknownFormat):
		return errorResponse(c, fiber.StatusBadRequest, codeBadRequest, messageOf(err))

	case errors.Is(err, lendingstore.ErrLockTimeout):
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
		return errorResponse(c, fiber.StatusServiceUnavailable, codeServiceUnavailable, messageOf(err))

	default:
		return errorResponse(c, fiber.StatusInternalServerError, codeInternalError, "internal server error")
	}
}

// messageOf returns the sentinel's message without the joined driver detail.
func messageOf(err error) string {
	sentinels := []error{
		lendingstore.ErrBookNotFound,
		lendingstore.ErrBorrowerNotFound,
		lendingstore.ErrLoanNotFound,
		lendingstore.ErrBookUnavailable,
		lendingstore.ErrLoanAlreadyReturned,
		lendingstore.ErrDuplicateISBN,
		lendingstore.ErrDuplicateEmail,
		lendingstore.ErrMissingDueDate,
		lendingstore.ErrInvalidPage,
		lendingstore.ErrInvalidPageSize,
		lendingstore.ErrLockTimeout,
		report.ErrUnknownFormat,
	}

	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}

	return err.Error()
}
