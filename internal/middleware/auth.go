package middleware

import (
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/security"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/services"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenKey = "jwt"
	userKey  = "currentUser"
)

// Authenticate requires a valid bearer access token and stores the resolved
// user for CurrentUser. Disabled accounts get 403.
func Authenticate(secret []byte, resolver *services.IdentityResolver) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwt.SigningMethodHS256.Alg(), Key: secret},
		Claims:     &security.Claims{},
		ContextKey: tokenKey,
		SuccessHandler: func(c *fiber.Ctx) error {
			var claims *security.Claims
			if token, ok := c.Locals(tokenKey).(*jwt.Token); ok && token != nil {
				claims, _ = token.Claims.(*security.Claims)
			}
			user, err := resolver.ResolveClaims(c.UserContext(), claims)
			if err != nil {
				return WriteError(c, err)
			}
			c.Locals(userKey, user)
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, _ error) error {
			return WriteError(c, services.ErrUnauthenticated)
		},
	})
}

// ActiveUser additionally enforces email verification when it is required.
// It must run after Authenticate.
func ActiveUser(resolver *services.IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return WriteError(c, services.ErrUnauthenticated)
		}
		if err := resolver.CheckVerified(user); err != nil {
			return WriteError(c, err)
		}
		return c.Next()
	}
}

// CurrentUser returns the user stored by Authenticate, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(userKey).(*models.User)
	return u
}
