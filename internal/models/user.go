package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record. PasswordHash is empty for accounts created
// through federated login; such accounts have no local password path.
type User struct {
	ID                         uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email                      string       `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Name                       string       `gorm:"size:255;not null" json:"name"`
	Phone                      *string      `gorm:"size:20" json:"phone"`
	PasswordHash               string       `gorm:"size:255;not null;default:''" json:"-"`
	Role                       Role         `gorm:"size:20;not null;default:'user';check:chk_users_role,role IN ('user','admin','hr','candidate')" json:"role"`
	IsActive                   bool         `gorm:"not null;default:true" json:"is_active"`
	IsEmailVerified            bool         `gorm:"not null;default:false" json:"is_email_verified"`
	FirebaseUID                *string      `gorm:"size:255;uniqueIndex" json:"-"`
	EmailVerificationTokenHash *string      `gorm:"size:64;index" json:"-"`
	EmailVerificationExpiresAt *time.Time   `json:"-"`
	ResetPasswordTokenHash     *string      `gorm:"size:64;index" json:"-"`
	ResetPasswordExpiresAt     *time.Time   `json:"-"`
	CreatedAt                  time.Time    `json:"created_at"`
	UpdatedAt                  time.Time    `json:"updated_at"`
	LastLoginAt                *time.Time   `json:"last_login"`
	Permissions                []Permission `gorm:"many2many:user_permissions;constraint:OnDelete:CASCADE" json:"-"`
}

// PermissionNames returns the names of the user's granted permissions.
func (u *User) PermissionNames() []string {
	names := make([]string, 0, len(u.Permissions))
	for _, p := range u.Permissions {
		names = append(names, string(p.Name))
	}
	return names
}

// HasLocalPassword reports whether the account can log in with a password.
func (u *User) HasLocalPassword() bool {
	return u.PasswordHash != ""
}
