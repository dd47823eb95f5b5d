package handlers

import (
	"errors"
	"formtable/middleware"
	"formtable/validator"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

func success(c *fiber.Ctx, data fiber.Map) error {
	return c.JSON(data)
}

func created(c *fiber.Ctx, data fiber.Map) error {
	return c.Status(fiber.StatusCreated).JSON(data)
}

// errorResponse writes the error envelope shared by every endpoint
func errorResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":      message,
		"request_id": middleware.GetRequestID(c),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return errorResponse(c, fiber.StatusBadRequest, message)
}

func unauthorized(c *fiber.Ctx, message string) error {
	return errorResponse(c, fiber.StatusUnauthorized, message)
}

func notFound(c *fiber.Ctx, message string) error {
	return errorResponse(c, fiber.StatusNotFound, message)
}

func conflict(c *fiber.Ctx, message string) error {
	return errorResponse(c, fiber.StatusConflict, message)
}

func serverErrorWithDetails(c *fiber.Ctx, message string, err error) error {
	slog.Error("server error",
		"request_id", middleware.GetRequestID(c),
		"method", c.Method(),
		"path", c.Path(),
		"message", message,
		"error", err,
	)

	return errorResponse(c, fiber.StatusInternalServerError, message)
}

// validationError reports every failed field, or a plain 400 for other errors
func validationError(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":      "Validation failed",
			"details":    verrs,
			"request_id": middleware.GetRequestID(c),
		})
	}
	return badRequest(c, err.Error())
}

// bindJSON decodes the body into req and validates it. When ok is false the
// error response has already been written and err is what the handler returns.
func bindJSON(c *fiber.Ctx, v *validator.Validator, req any) (ok bool, err error) {
	if err := c.BodyParser(req); err != nil {
		return false, badRequest(c, "Invalid request body")
	}
	if err := v.Validate(req); err != nil {
		return false, validationError(c, err)
	}
	return true, nil
}
