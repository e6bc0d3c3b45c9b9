package services

import (
	"fmt"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
)

var ErrPermissionDenied = apperr.New(apperr.KindForbidden, "You don't have permission to perform this action")

// RequireRole permits u iff its role is one of roles.
func RequireRole(u *models.User, roles ...models.Role) error {
	for _, r := range roles {
		if u.Role == r {
			return nil
		}
	}
	return apperr.New(apperr.KindForbidden, fmt.Sprintf("User role '%s' is not authorized for this action", u.Role))
}

// RequirePermission permits u iff it holds at least one of perms.
func RequirePermission(u *models.User, perms ...models.PermissionName) error {
	for _, held := range u.Permissions {
		for _, want := range perms {
			if held.Name == want {
				return nil
			}
		}
	}
	return ErrPermissionDenied
}

var hrBundle = []models.PermissionName{models.PermRead, models.PermWrite, models.PermManageUsers}

// DefaultPermissions returns the bundle a role receives at signup or on a
// role change, restricted to what catalog actually contains.
func DefaultPermissions(role models.Role, catalog []models.Permission) []models.Permission {
	var want []models.PermissionName
	switch role {
	case models.RoleAdmin:
		out := make([]models.Permission, len(catalog))
		copy(out, catalog)
		return out
	case models.RoleHR:
		want = hrBundle
	default:
		want = []models.PermissionName{models.PermRead}
	}

	out := make([]models.Permission, 0, len(want))
	for _, p := range catalog {
		for _, name := range want {
			if p.Name == name {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
