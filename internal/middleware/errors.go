package middleware

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/dto"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindUnauthenticated:
		return fiber.StatusUnauthorized
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict, apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindUpstreamUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// WriteError renders err as the standard error body. Internal errors are
// logged and reported to Sentry; their details never reach the client.
func WriteError(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		attrs := []any{
			"request_id", c.Locals("requestid"),
			"method", c.Method(),
			"path", c.Path(),
			"error", err.Error(),
		}
		if u := CurrentUser(c); u != nil {
			attrs = append(attrs, "user_id", u.ID.String())
		}
		slog.Error("request failed", attrs...)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}
	if kind == apperr.KindUnauthenticated {
		c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
	}
	return c.Status(StatusOf(kind)).JSON(dto.ErrorResponse{
		Error:   true,
		Message: apperr.MessageOf(err),
	})
}
