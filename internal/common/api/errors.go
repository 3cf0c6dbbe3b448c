package api

import (
	"errors"

	"demantive/internal/common/errs"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps a service error onto an HTTP status code.
func StatusFor(err error) int {
	var upstream *errs.UpstreamError
	switch {
	case errors.Is(err, errs.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, errs.ErrStateMismatch), errors.Is(err, errs.ErrInvalidInput), errors.Is(err, errs.ErrUnsupportedProvider):
		return fiber.StatusBadRequest
	case errors.Is(err, errs.ErrReauthRequired):
		return fiber.StatusUnauthorized
	case errors.Is(err, errs.ErrNoConnection), errors.Is(err, errs.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, errs.ErrSyncInProgress):
		return fiber.StatusConflict
	case errors.Is(err, errs.ErrTimeout):
		return fiber.StatusGatewayTimeout
	case errors.As(err, &upstream):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// HandleError writes err as {"error": ...}. ReauthRequired responses also carry
// "expired": true so clients know to send the user through the connect flow again.
func HandleError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	body := fiber.Map{"error": err.Error()}
	if errors.Is(err, errs.ErrReauthRequired) {
		body["expired"] = true
	}
	return c.Status(status).JSON(body)
}
