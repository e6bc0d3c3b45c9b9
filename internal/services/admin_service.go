package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/store"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
	recentWindow    = 7 * 24 * time.Hour
)

var (
	ErrUserNotFound = apperr.New(apperr.KindNotFound, "User not found")
	ErrDeleteSelf   = apperr.New(apperr.KindValidation, "Cannot delete your own account")
)

// AdminService implements user administration. Callers are expected to have
// passed the matching authorization gate.
type AdminService struct {
	store store.Store
	now   func() time.Time
}

func NewAdminService(st store.Store) *AdminService {
	return &AdminService{store: st, now: time.Now}
}

// WithClock replaces the service's time source.
func (s *AdminService) WithClock(now func() time.Time) *AdminService {
	s.now = now
	return s
}

func (s *AdminService) ListUsers(ctx context.Context, skip, limit int) ([]dto.UserResponse, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	users, err := s.store.Users().List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, dto.NewUserResponse(&users[i]))
	}
	return out, nil
}

func (s *AdminService) GetUser(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error) {
	u, err := s.load(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	resp := dto.NewUserResponse(u)
	return &resp, nil
}

// UpdateRole sets the role and replaces the permission set with the role's
// default bundle.
func (s *AdminService) UpdateRole(ctx context.Context, id uuid.UUID, req *dto.UpdateRoleRequest) error {
	if err := req.Validate(); err != nil {
		return validationError(err)
	}
	return s.store.Transaction(ctx, func(tx store.Store) error {
		u, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		u.Role = req.Role
		if err := tx.Users().Update(ctx, u); err != nil {
			return err
		}
		catalog, err := tx.Permissions().List(ctx)
		if err != nil {
			return err
		}
		return tx.Users().SetPermissions(ctx, u, DefaultPermissions(req.Role, catalog))
	})
}

// UpdatePermissions replaces the permission set. Names missing from the
// catalog are ignored.
func (s *AdminService) UpdatePermissions(ctx context.Context, id uuid.UUID, req *dto.UpdatePermissionsRequest) error {
	if err := req.Validate(); err != nil {
		return validationError(err)
	}
	return s.store.Transaction(ctx, func(tx store.Store) error {
		u, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		perms, err := tx.Permissions().ListByNames(ctx, req.Permissions)
		if err != nil {
			return err
		}
		if err := tx.Users().SetPermissions(ctx, u, perms); err != nil {
			return err
		}
		return tx.Users().Update(ctx, u)
	})
}

func (s *AdminService) SetStatus(ctx context.Context, id uuid.UUID, req *dto.UpdateStatusRequest) error {
	if err := req.Validate(); err != nil {
		return validationError(err)
	}
	return s.store.Transaction(ctx, func(tx store.Store) error {
		u, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		u.IsActive = *req.IsActive
		return tx.Users().Update(ctx, u)
	})
}

// DeleteUser removes another user's account. Acting on oneself is rejected.
func (s *AdminService) DeleteUser(ctx context.Context, actor *models.User, id uuid.UUID) error {
	if actor.ID == id {
		return ErrDeleteSelf
	}
	err := s.store.Users().Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

func (s *AdminService) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	st, err := s.store.Users().Stats(ctx, s.now().Add(-recentWindow))
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}
	byRole := make(map[string]int64, len(models.Roles))
	for _, r := range models.Roles {
		byRole[string(r)] = st.UsersByRole[r]
	}
	return &dto.StatsResponse{
		TotalUsers:          st.TotalUsers,
		VerifiedUsers:       st.VerifiedUsers,
		ActiveUsers:         st.ActiveUsers,
		UsersByRole:         byRole,
		RecentRegistrations: st.RecentRegistrations,
	}, nil
}

func (s *AdminService) Permissions(ctx context.Context) ([]dto.PermissionResponse, error) {
	perms, err := s.store.Permissions().List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewPermissionResponses(perms), nil
}

func (s *AdminService) load(ctx context.Context, st store.Store, id uuid.UUID) (*models.User, error) {
	u, err := st.Users().GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}
