package store

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gormSessions struct {
	db  *gorm.DB
	now func() time.Time
}

func (r *gormSessions) Create(ctx context.Context, userID uuid.UUID, refreshToken string, ttl time.Duration, meta *models.ClientMeta) (*models.Session, error) {
	now := r.now()
	s := NewSession(userID, refreshToken, now, ttl, meta)
	if err := r.db.WithContext(ctx).Omit("User").Create(s).Error; err != nil {
		return nil, translateError(err)
	}
	return s, nil
}

func (r *gormSessions) FindValid(ctx context.Context, refreshToken string, userID uuid.UUID) (*models.Session, error) {
	var s models.Session
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND user_id = ? AND expires_at > ?", security.HashToken(refreshToken), userID, r.now()).
		First(&s).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &s, nil
}

func (r *gormSessions) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}

func (r *gormSessions) DeleteExpired(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", r.now()).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}

// NewSession builds the session row for refreshToken. Only the token's hash is
// kept.
func NewSession(userID uuid.UUID, refreshToken string, now time.Time, ttl time.Duration, meta *models.ClientMeta) *models.Session {
	s := &models.Session{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: security.HashToken(refreshToken),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if meta != nil {
		if meta.IPAddress != "" {
			ip := truncate(meta.IPAddress, 45)
			s.IPAddress = &ip
		}
		if meta.UserAgent != "" {
			ua := truncate(meta.UserAgent, 255)
			s.UserAgent = &ua
		}
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
