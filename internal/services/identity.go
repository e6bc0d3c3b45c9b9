package services

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/security"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/store"
)

var (
	ErrUnauthenticated  = apperr.New(apperr.KindUnauthenticated, "Could not validate credentials")
	ErrUserDisabled     = apperr.New(apperr.KindForbidden, "User account is disabled")
	ErrEmailNotVerified = apperr.New(apperr.KindForbidden, "Please verify your email first")
)

// IdentityResolver turns a presented access token into an active user.
type IdentityResolver struct {
	store           store.Store
	tokens          *security.TokenCodec
	requireVerified bool
}

func NewIdentityResolver(st store.Store, tokens *security.TokenCodec, requireVerified bool) *IdentityResolver {
	return &IdentityResolver{store: st, tokens: tokens, requireVerified: requireVerified}
}

// Resolve decodes an access token and loads its user.
func (r *IdentityResolver) Resolve(ctx context.Context, token string) (*models.User, error) {
	claims, err := r.tokens.DecodeAccess(token)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindUnauthenticated, ErrUnauthenticated.Message)
	}
	return r.ResolveClaims(ctx, claims)
}

// ResolveClaims loads the user named by already-verified claims. It repeats
// the type and expiry checks so callers that parsed the token themselves get
// the same guarantees as Resolve.
func (r *IdentityResolver) ResolveClaims(ctx context.Context, claims *security.Claims) (*models.User, error) {
	if claims == nil || claims.Type != security.TokenAccess || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrUnauthenticated
	}
	user, err := r.store.Users().GetByEmail(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	return user, nil
}

// CheckVerified enforces email verification on routes that need a fully
// active account. It is a no-op unless verification is required.
func (r *IdentityResolver) CheckVerified(u *models.User) error {
	if r.requireVerified && !u.IsEmailVerified {
		return ErrEmailNotVerified
	}
	return nil
}
