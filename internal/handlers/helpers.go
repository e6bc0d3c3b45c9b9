package handlers

import (
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var (
	errInvalidBody   = apperr.New(apperr.KindValidation, "Invalid request body")
	errInvalidUserID = apperr.New(apperr.KindValidation, "Invalid user ID")
)

func clientMeta(c *fiber.Ctx) *models.ClientMeta {
	return &models.ClientMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return errInvalidBody
	}
	return nil
}

// parseBodyOrQuery reads out from the body when one is sent and from the
// query string otherwise.
func parseBodyOrQuery(c *fiber.Ctx, out any) error {
	if len(c.Body()) > 0 {
		return parseBody(c, out)
	}
	if err := c.QueryParser(out); err != nil {
		return errInvalidBody
	}
	return nil
}

func userIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, errInvalidUserID
	}
	return id, nil
}

func message(c *fiber.Ctx, msg string) error {
	return c.JSON(dto.MessageResponse{Message: msg})
}

func fail(c *fiber.Ctx, err error) error {
	return middleware.WriteError(c, err)
}
