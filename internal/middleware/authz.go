package middleware

import (
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// RequireRole admits the current user only if its role is one of roles.
func RequireRole(roles ...models.Role) fiber.Handler {
	return gate(func(u *models.User) error { return services.RequireRole(u, roles...) })
}

// RequirePermission admits the current user if it holds any of perms.
func RequirePermission(perms ...models.PermissionName) fiber.Handler {
	return gate(func(u *models.User) error { return services.RequirePermission(u, perms...) })
}

func gate(check func(*models.User) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return WriteError(c, services.ErrUnauthenticated)
		}
		if err := check(user); err != nil {
			return WriteError(c, err)
		}
		return c.Next()
	}
}
