package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports storage connectivity, for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RegisterRoutes mounts all API routes on the fiber app.
func RegisterRoutes(app *fiber.App, lending *LendingHandler, catalog *CatalogHandler, borrowers *BorrowerHandler, pinger Pinger) {
	app.Get("/health", healthHandler(pinger))

	api := app.Group("/api/v1")

	borrows := api.Group("/borrows")
	borrows.Post("/", lending.Borrow)
	borrows.Get("/", lending.ListLoans)
	borrows.Get("/overdue", lending.ListOverdueLoans)
	borrows.Get("/borrower/:borrowerId", lending.ListBorrowerLoans)
	borrows.Get("/export", lending.ExportPeriod)
	borrows.Get("/export/last-month", lending.ExportLastMonth)
	borrows.Get("/export/overdue", lending.ExportOverdue)
	borrows.Patch("/:id/return", lending.Return)

	books := api.Group("/books")
	books.Post("/", catalog.CreateBook)
	books.Get("/", catalog.SearchBooks)
	books.Get("/:id", catalog.GetBook)
	books.Patch("/:id", catalog.UpdateBook)
	books.Delete("/:id", catalog.DeleteBook)

	borrowerRoutes := api.Group("/borrowers")
	borrowerRoutes.Post("/", borrowers.RegisterBorrower)
	borrowerRoutes.Get("/", borrowers.ListBorrowers)
	borrowerRoutes.Get("/:id", borrowers.GetBorrower)
	borrowerRoutes.Patch("/:id", borrowers.UpdateBorrower)
	borrowerRoutes.Delete("/:id", borrowers.DeleteBorrower)
}

func healthHandler(pinger Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := pinger.Ping(c.Context()); err != nil {
			return errorResponse(c, fiber.StatusServiceUnavailable, codeServiceUnavailable, "database unreachable")
		}

		return successResponse(c, "healthy", map[string]string{"status": "up"})
	}
}
