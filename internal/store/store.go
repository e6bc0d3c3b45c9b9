// Package store defines the persistence contracts for users, permissions and
// refresh-token sessions, and their gorm implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Stats is the aggregate shown on the admin dashboard.
type Stats struct {
	TotalUsers          int64
	VerifiedUsers       int64
	ActiveUsers         int64
	UsersByRole         map[models.Role]int64
	RecentRegistrations int64
}

type UserStore interface {
	// Create inserts u together with its Permissions links. A duplicate email
	// or firebase uid yields ErrDuplicate.
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByVerificationTokenHash and GetByResetTokenHash only return users
	// whose token has not expired.
	GetByVerificationTokenHash(ctx context.Context, hash string) (*models.User, error)
	GetByResetTokenHash(ctx context.Context, hash string) (*models.User, error)
	// Update persists every scalar column of u. Permissions are untouched.
	Update(ctx context.Context, u *models.User) error
	// SetPermissions replaces the user's permission set.
	SetPermissions(ctx context.Context, u *models.User, perms []models.Permission) error
	List(ctx context.Context, offset, limit int) ([]models.User, error)
	// Delete removes the user, its permission links and all its sessions.
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context, since time.Time) (*Stats, error)
}

type PermissionStore interface {
	// Seed inserts missing catalog entries. Safe to call concurrently.
	Seed(ctx context.Context, catalog []models.Permission) error
	List(ctx context.Context) ([]models.Permission, error)
	ListByNames(ctx context.Context, names []string) ([]models.Permission, error)
}

// SessionStore persists refresh-token sessions. Sessions are immutable.
type SessionStore interface {
	Create(ctx context.Context, userID uuid.UUID, refreshToken string, ttl time.Duration, meta *models.ClientMeta) (*models.Session, error)
	// FindValid returns ErrNotFound unless a session for exactly this token
	// and user exists and has not expired.
	FindValid(ctx context.Context, refreshToken string, userID uuid.UUID) (*models.Session, error)
	RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// Store groups the repositories and runs transactions across them.
type Store interface {
	Users() UserStore
	Permissions() PermissionStore
	Sessions() SessionStore
	// Transaction runs fn against a store bound to one transaction. Returning
	// an error rolls everything back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
