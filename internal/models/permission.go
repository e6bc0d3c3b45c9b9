package models

import (
	"time"

	"github.com/google/uuid"
)

// PermissionName identifies a fine-grained capability.
type PermissionName string

const (
	PermRead        PermissionName = "read"
	PermWrite       PermissionName = "write"
	PermDelete      PermissionName = "delete"
	PermManageUsers PermissionName = "manage_users"
	PermManageRoles PermissionName = "manage_roles"
)

func (p PermissionName) String() string { return string(p) }

type Permission struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        PermissionName `gorm:"size:50;not null;uniqueIndex" json:"name"`
	Description string         `gorm:"size:255" json:"description"`
	CreatedAt   time.Time      `json:"-"`
}

// PermissionCatalog is the seeded catalog, keyed by name.
var PermissionCatalog = []Permission{
	{Name: PermRead, Description: "Can read data"},
	{Name: PermWrite, Description: "Can write data"},
	{Name: PermDelete, Description: "Can delete data"},
	{Name: PermManageUsers, Description: "Can manage users"},
	{Name: PermManageRoles, Description: "Can manage roles"},
}
