// Package handlers exposes the lending service over HTTP: borrow/return
// operations, loan listings and report exports, plus catalog and borrower
// management.
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// APIResponse is the uniform envelope of every JSON response.
type APIResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"requestId"`
}

// APIError carries the machine-readable error part of a failed response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func successResponse(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusOK).JSON(APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
		RequestID: requestID(c),
	})
}

func createdResponse(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusCreated).JSON(APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
		RequestID: requestID(c),
	})
}

func errorResponse(c *fiber.Ctx, status int, code string, message string) error {
	return c.Status(status).JSON(APIResponse{
		Success: false,
		Message: message,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now().UTC(),
		RequestID: requestID(c),
	})
}

func requestID(c *fiber.Ctx) string {
	id := c.Get(fiber.HeaderXRequestID)
	if id == "" {
		id = uuid.New().String()
		c.Set(fiber.HeaderXRequestID, id)
	}

	return id
}
