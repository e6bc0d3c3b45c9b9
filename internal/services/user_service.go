package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/security"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/store"
)

var (
	ErrWrongCurrentPassword = apperr.New(apperr.KindValidation, "Current password is incorrect")
	ErrNoLocalPassword      = apperr.New(apperr.KindValidation, "Account has no password; use password reset to set one")
)

// UserService implements self-service profile management.
type UserService struct {
	store       store.Store
	hasher      *security.PasswordHasher
	phoneRegion string
}

func NewUserService(st store.Store, hasher *security.PasswordHasher, phoneRegion string) *UserService {
	return &UserService{store: st, hasher: hasher, phoneRegion: phoneRegion}
}

func (s *UserService) Profile(u *models.User) dto.UserResponse {
	return dto.NewUserResponse(u)
}

func (s *UserService) UpdateProfile(ctx context.Context, u *models.User, req *dto.UpdateProfileRequest) error {
	if err := req.Validate(); err != nil {
		return validationError(err)
	}
	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		phone, err := normalizePhone(req.Phone, s.phoneRegion)
		if err != nil {
			return err
		}
		u.Phone = phone
	}
	return s.store.Users().Update(ctx, u)
}

// ChangePassword requires the current password. Accounts without a local
// password cannot use it and must go through the reset flow.
func (s *UserService) ChangePassword(ctx context.Context, u *models.User, req *dto.ChangePasswordRequest) error {
	if !u.HasLocalPassword() {
		return ErrNoLocalPassword
	}
	if err := req.Validate(); err != nil {
		return validationError(err)
	}
	if !s.hasher.Verify(req.CurrentPassword, u.PasswordHash) {
		return ErrWrongCurrentPassword
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = hash
	return s.store.Users().Update(ctx, u)
}

// DeleteAccount removes u along with its sessions and permission links.
func (s *UserService) DeleteAccount(ctx context.Context, u *models.User) error {
	return s.store.Users().Delete(ctx, u.ID)
}
