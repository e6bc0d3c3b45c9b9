package routes

import (
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Auth   *handlers.AuthHandler
	User   *handlers.UserHandler
	Admin  *handlers.AdminHandler
	Health *handlers.HealthHandler
}

func Setup(app *fiber.App, secret []byte, resolver *services.IdentityResolver, h Handlers) {
	api := app.Group("/api")
	authn := middleware.Authenticate(secret, resolver)
	active := middleware.ActiveUser(resolver)

	api.Get("/health", h.Health.Check)

	// Auth: public except logout
	auth := api.Group("/auth")
	auth.Post("/signup", h.Auth.Signup)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/firebase-login", h.Auth.FirebaseLogin)
	auth.Get("/verify-email/:token", h.Auth.VerifyEmail)
	auth.Post("/forgot-password", h.Auth.ForgotPassword)
	auth.Post("/reset-password", h.Auth.ResetPassword)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/logout", authn, h.Auth.Logout)

	// Own account
	users := api.Group("/users", authn, active)
	users.Get("/me", h.User.Me)
	users.Put("/me", h.User.UpdateMe)
	users.Put("/me/password", h.User.ChangePassword)
	users.Put("/change-password", h.User.ChangePassword)
	users.Delete("/me", h.User.DeleteMe)

	// Administration
	admin := api.Group("/admin", authn, active)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleHR)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	admin.Get("/users", staff, h.Admin.ListUsers)
	admin.Get("/users/:id", staff, h.Admin.GetUser)
	admin.Put("/users/:id/role", middleware.RequirePermission(models.PermManageRoles), h.Admin.UpdateRole)
	admin.Put("/users/:id/permissions", middleware.RequirePermission(models.PermManageUsers), h.Admin.UpdatePermissions)
	admin.Put("/users/:id/status", adminOnly, h.Admin.UpdateStatus)
	admin.Delete("/users/:id", middleware.RequirePermission(models.PermDelete), h.Admin.DeleteUser)
	admin.Get("/dashboard/stats", adminOnly, h.Admin.Stats)
	admin.Get("/permissions", adminOnly, h.Admin.Permissions)
}
