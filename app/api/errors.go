package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"rax/types"
)

// ErrorHandler maps handler errors onto HTTP statuses: bad input 400,
// validation 422, provider failures 502, store failures 503, timeouts 504.
// Wrapped causes are logged only; clients get a fixed message per status.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var (
		apiErr   Error
		valErr   ValidationError
		fiberErr *fiber.Error
	)
	switch {
	case errors.As(err, &valErr):
		return c.Status(valErr.Status).JSON(valErr)
	case errors.As(err, &apiErr):
	case errors.As(err, &fiberErr):
		apiErr = NewError(fiberErr.Code, fiberErr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		// providers and stores wrap the deadline, so this goes first
		apiErr = NewError(fiber.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, types.ErrInput):
		apiErr = NewError(fiber.StatusBadRequest, "invalid request")
	case errors.Is(err, types.ErrProvider):
		apiErr = NewError(fiber.StatusBadGateway, "model provider request failed")
	case errors.Is(err, types.ErrStore):
		apiErr = NewError(fiber.StatusServiceUnavailable, "vector store unavailable")
	default:
		apiErr = NewError(fiber.StatusInternalServerError, "internal server error")
	}

	slog.Error("request failed", "method", c.Method(), "path", c.Path(), "code", apiErr.Code, "error", err)
	return c.Status(apiErr.Code).JSON(apiErr)
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

func NewValidationError(errors map[string]string) ValidationError {
	return ValidationError{
		Status: fiber.StatusUnprocessableEntity,
		Errors: errors,
	}
}

// Error implements the Error interface
func (e Error) Error() string {
	return e.Message
}

func NewError(code int, err string) Error {
	return Error{
		Code:    code,
		Message: err,
	}
}

func ErrBadRequest() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid JSON request",
	}
}

func ErrBadQuery() Error {
	return Error{
		Code:    fiber.StatusBadRequest,
		Message: "invalid query string",
	}
}
