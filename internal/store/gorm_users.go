package store

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gormUsers struct {
	db  *gorm.DB
	now func() time.Time
}

// userColumns are the scalar columns written by Update.
var userColumns = []string{
	"Name", "Phone", "PasswordHash", "Role", "IsActive", "IsEmailVerified", "FirebaseUID",
	"EmailVerificationTokenHash", "EmailVerificationExpiresAt",
	"ResetPasswordTokenHash", "ResetPasswordExpiresAt",
	"LastLoginAt", "UpdatedAt",
}

func (r *gormUsers) Create(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return translateError(r.db.WithContext(ctx).Create(u).Error)
}

func (r *gormUsers) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *gormUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *gormUsers) GetByVerificationTokenHash(ctx context.Context, hash string) (*models.User, error) {
	return r.first(ctx, "email_verification_token_hash = ? AND email_verification_expires_at > ?", hash, r.now())
}

func (r *gormUsers) GetByResetTokenHash(ctx context.Context, hash string) (*models.User, error) {
	return r.first(ctx, "reset_password_token_hash = ? AND reset_password_expires_at > ?", hash, r.now())
}

func (r *gormUsers) first(ctx context.Context, query string, args ...any) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Preload("Permissions").Where(query, args...).First(&u).Error; err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}

func (r *gormUsers) Update(ctx context.Context, u *models.User) error {
	u.UpdatedAt = r.now()
	res := r.db.WithContext(ctx).Model(u).Select(userColumns).Updates(u)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *gormUsers) SetPermissions(ctx context.Context, u *models.User, perms []models.Permission) error {
	assoc := r.db.WithContext(ctx).Model(u).Association("Permissions")
	var err error
	if len(perms) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(perms)
	}
	if err != nil {
		return translateError(err)
	}
	u.Permissions = perms
	return nil
}

func (r *gormUsers) List(ctx context.Context, offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, translateError(err)
	}
	return users, nil
}

func (r *gormUsers) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM user_permissions WHERE user_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *gormUsers) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	db := r.db.WithContext(ctx).Model(&models.User{})
	stats := &Stats{UsersByRole: make(map[models.Role]int64, len(models.Roles))}

	if err := db.Session(&gorm.Session{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("is_email_verified = ?", true).Count(&stats.VerifiedUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("is_active = ?", true).Count(&stats.ActiveUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("created_at >= ?", since).Count(&stats.RecentRegistrations).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Role  models.Role
		Count int64
	}
	if err := db.Session(&gorm.Session{}).Select("role, COUNT(*) AS count").Group("role").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, role := range models.Roles {
		stats.UsersByRole[role] = 0
	}
	for _, row := range rows {
		stats.UsersByRole[row.Role] = row.Count
	}
	return stats, nil
}
