package handlers

import (
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// UserHandler serves the signed-in user's own account.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	return c.JSON(h.userService.Profile(middleware.CurrentUser(c)))
}

func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	if err := h.userService.UpdateProfile(c.UserContext(), middleware.CurrentUser(c), &req); err != nil {
		return fail(c, err)
	}
	return message(c, "Profile updated successfully")
}

func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	if err := h.userService.ChangePassword(c.UserContext(), middleware.CurrentUser(c), &req); err != nil {
		return fail(c, err)
	}
	return message(c, "Password changed successfully")
}

func (h *UserHandler) DeleteMe(c *fiber.Ctx) error {
	if err := h.userService.DeleteAccount(c.UserContext(), middleware.CurrentUser(c)); err != nil {
		return fail(c, err)
	}
	return message(c, "Account deleted successfully")
}
