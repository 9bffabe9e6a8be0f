package utils

import (
	"context"
	"errors"

	apperrors "walletledger/internal/errors"

	"github.com/gofiber/fiber/v2"
)

// Respond sends a JSON response with the specified status code.
func Respond(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

// Success sends a successful JSON response.
func Success(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusOK, data)
}

func Created(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusCreated, data)
}

// BadRequest sends a JSON error response with status 400.
func BadRequest(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusBadRequest, fiber.Map{"error": message})
}

// Unauthorized sends a JSON error response with status 401.
func Unauthorized(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusUnauthorized, fiber.Map{"error": message})
}

// NotFound sends a JSON error response with status 404.
func NotFound(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusNotFound, fiber.Map{"error": message})
}

// InternalError sends a JSON error response with status 500.
func InternalError(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusInternalServerError, fiber.Map{"error": message})
}

// StatusFor maps a domain error kind to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidAmount),
		errors.Is(err, apperrors.ErrSelfTransfer),
		errors.Is(err, apperrors.ErrInvalidReference),
		errors.Is(err, apperrors.ErrCurrencyMismatch):
		return fiber.StatusBadRequest
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrDuplicateReference),
		errors.Is(err, apperrors.ErrDuplicateAccount),
		errors.Is(err, apperrors.ErrEmailTaken):
		return fiber.StatusConflict
	case errors.Is(err, apperrors.ErrRateLimited):
		return fiber.StatusTooManyRequests
	case errors.Is(err, apperrors.ErrConflict):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	}
	return fiber.StatusInternalServerError
}

// Error writes err as {"error", "code"}. Only the kind's own message is sent;
// wrapped context stays in the logs.
func Error(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	code := apperrors.Code(err)
	if code == "" {
		return InternalError(c, "internal server error")
	}

	body := fiber.Map{
		"error": apperrors.Message(err),
		"code":  code,
	}
	if apperrors.IsRetryable(err) {
		body["retryable"] = true
	}
	return Respond(c, status, body)
}
