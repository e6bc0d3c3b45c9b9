package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
)

type UserResponse struct {
	ID              uuid.UUID   `json:"id"`
	Email           string      `json:"email"`
	Name            string      `json:"name"`
	Phone           *string     `json:"phone"`
	Role            models.Role `json:"role"`
	Permissions     []string    `json:"permissions"`
	IsActive        bool        `json:"is_active"`
	IsEmailVerified bool        `json:"is_email_verified"`
	CreatedAt       time.Time   `json:"created_at"`
	LastLogin       *time.Time  `json:"last_login"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Phone:           u.Phone,
		Role:            u.Role,
		Permissions:     u.PermissionNames(),
		IsActive:        u.IsActive,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
		LastLogin:       u.LastLoginAt,
	}
}

// UpdateProfileRequest carries optional fields; nil means unchanged and an
// empty phone clears it.
type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, 255)),
		validation.Field(&r.Phone, validation.Length(0, 32)),
	)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, passwordPolicy),
	)
}
