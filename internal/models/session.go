package models

import (
	"time"

	"github.com/google/uuid"
)

// Session tracks an issued refresh token so it can be revoked. Rows are
// never updated; an expired session is invalid whether or not it still exists.
type Session struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	TokenHash string    `gorm:"uniqueIndex;not null;size:64" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	IPAddress *string   `gorm:"size:45" json:"ip_address"`
	UserAgent *string   `gorm:"size:255" json:"user_agent"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// ClientMeta is optional request metadata recorded on a session.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}
