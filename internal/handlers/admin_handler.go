package handlers

import (
	"fmt"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListUsers pages through users with ?skip= and ?limit=.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.adminService.ListUsers(c.UserContext(), c.QueryInt("skip", 0), c.QueryInt("limit", 0))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	id, err := userIDParam(c)
	if err != nil {
		return fail(c, err)
	}

	user, err := h.adminService.GetUser(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}

func (h *AdminHandler) UpdateRole(c *fiber.Ctx) error {
	id, err := userIDParam(c)
	if err != nil {
		return fail(c, err)
	}
	var req dto.UpdateRoleRequest
	if err := parseBodyOrQuery(c, &req); err != nil {
		return fail(c, err)
	}

	if err := h.adminService.UpdateRole(c.UserContext(), id, &req); err != nil {
		return fail(c, err)
	}
	return message(c, fmt.Sprintf("User role updated to %s", req.Role))
}

func (h *AdminHandler) UpdatePermissions(c *fiber.Ctx) error {
	id, err := userIDParam(c)
	if err != nil {
		return fail(c, err)
	}
	var req dto.UpdatePermissionsRequest
	if err := parseBody(c, &req); err != nil {
		return fail(c, err)
	}

	if err := h.adminService.UpdatePermissions(c.UserContext(), id, &req); err != nil {
		return fail(c, err)
	}
	return message(c, "User permissions updated")
}

func (h *AdminHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := userIDParam(c)
	if err != nil {
		return fail(c, err)
	}
	var req dto.UpdateStatusRequest
	if err := parseBodyOrQuery(c, &req); err != nil {
		return fail(c, err)
	}

	if err := h.adminService.SetStatus(c.UserContext(), id, &req); err != nil {
		return fail(c, err)
	}
	if *req.IsActive {
		return message(c, "User activated successfully")
	}
	return message(c, "User deactivated successfully")
}

func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := userIDParam(c)
	if err != nil {
		return fail(c, err)
	}

	if err := h.adminService.DeleteUser(c.UserContext(), middleware.CurrentUser(c), id); err != nil {
		return fail(c, err)
	}
	return message(c, "User deleted successfully")
}

func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.adminService.Stats(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(stats)
}

func (h *AdminHandler) Permissions(c *fiber.Ctx) error {
	perms, err := h.adminService.Permissions(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(perms)
}
