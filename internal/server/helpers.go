package server

import (
	"errors"
	"strconv"

	"quad/internal/models"

	"github.com/gofiber/fiber/v2"
)

// parseID parses a positive integer route parameter. On failure it writes
// the error response itself and returns a non-nil error so handlers can
// `return nil` immediately.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	raw := c.Params(param)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+param+" parameter"))
		return 0, errors.New("invalid id parameter")
	}
	return uint(id), nil
}

// statusFor maps an application error to an HTTP status. Unknown errors
// are treated as internal.
func statusFor(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case "NOT_FOUND":
		return fiber.StatusNotFound
	case "VALIDATION_ERROR":
		return fiber.StatusBadRequest
	case "UNAUTHORIZED":
		return fiber.StatusForbidden
	case "DATA_UNAVAILABLE":
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// respondServiceError writes the error with the status implied by its code.
func respondServiceError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, statusFor(err), err)
}

// currentUserID returns the authenticated user id stored by the auth
// middleware.
func currentUserID(c *fiber.Ctx) uint {
	return c.Locals("userID").(uint)
}
