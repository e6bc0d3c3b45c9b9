package dto

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
)

type UpdateRoleRequest struct {
	Role models.Role `json:"role" query:"role"`
}

func (r UpdateRoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.Required, validation.By(func(value interface{}) error {
			role, _ := value.(models.Role)
			if _, ok := models.ParseRole(string(role)); !ok {
				return errors.New("must be one of: user, admin, hr, candidate")
			}
			return nil
		})),
	)
}

// UpdatePermissionsRequest accepts {"permissions": [...]} or a bare JSON
// array of names. An empty list clears the set; a missing one is rejected.
type UpdatePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

func (r *UpdatePermissionsRequest) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &r.Permissions)
	}
	type plain UpdatePermissionsRequest
	return json.Unmarshal(data, (*plain)(r))
}

func (r UpdatePermissionsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Permissions, validation.NotNil),
	)
}

type UpdateStatusRequest struct {
	IsActive *bool `json:"is_active" query:"is_active"`
}

func (r UpdateStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IsActive, validation.NotNil),
	)
}

type PermissionResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

func NewPermissionResponses(perms []models.Permission) []PermissionResponse {
	out := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, PermissionResponse{ID: p.ID, Name: string(p.Name), Description: p.Description})
	}
	return out
}

type StatsResponse struct {
	TotalUsers          int64            `json:"total_users"`
	VerifiedUsers       int64            `json:"verified_users"`
	ActiveUsers         int64            `json:"active_users"`
	UsersByRole         map[string]int64 `json:"users_by_role"`
	RecentRegistrations int64            `json:"recent_registrations"`
}
