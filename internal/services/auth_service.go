package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/firebase"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/mailer"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/security"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/store"
	"github.com/google/uuid"
)

const (
	tokenTypeBearer      = "bearer"
	verificationTokenTTL = 24 * time.Hour
	resetTokenTTL        = time.Hour
)

var (
	ErrEmailTaken          = apperr.New(apperr.KindConflict, "Email already registered")
	ErrInvalidCredentials  = apperr.New(apperr.KindUnauthenticated, "Incorrect email or password")
	ErrAccountDisabled     = apperr.New(apperr.KindForbidden, "Account is disabled")
	ErrFirebaseAuth        = apperr.New(apperr.KindUnauthenticated, "Firebase authentication failed")
	ErrFirebaseNoEmail     = apperr.New(apperr.KindValidation, "Email not found in Firebase token")
	ErrFirebaseUIDConflict = apperr.New(apperr.KindConflict, "Firebase account is linked to another user")
	ErrInvalidVerification = apperr.New(apperr.KindValidation, "Invalid or expired verification token")
	ErrInvalidResetToken   = apperr.New(apperr.KindValidation, "Invalid or expired reset token")
	ErrInvalidRefreshToken = apperr.New(apperr.KindUnauthenticated, "Invalid refresh token")
	ErrExpiredRefreshToken = apperr.New(apperr.KindUnauthenticated, "Invalid or expired refresh token")
)

// FederatedIdentity verifies third-party identity assertions and mirrors
// local accounts into the identity provider.
type FederatedIdentity interface {
	Enabled() bool
	Verify(ctx context.Context, idToken string) (*firebase.Identity, error)
	CreateAccount(ctx context.Context, email, password, displayName string) (string, error)
}

// Notifier delivers account emails carrying one-time tokens.
type Notifier interface {
	SendVerification(ctx context.Context, email, name, token string) error
	SendPasswordReset(ctx context.Context, email, name, token string) error
}

// AuthDeps wires an AuthService.
type AuthDeps struct {
	Store    store.Store
	Hasher   *security.PasswordHasher
	Tokens   *security.TokenCodec
	Firebase FederatedIdentity
	Notifier Notifier
	Logger   *slog.Logger

	// AdminEmails sign up with the admin role.
	AdminEmails              []string
	PhoneRegion              string
	RequireEmailVerification bool
	Now                      func() time.Time
}

type AuthService struct {
	store           store.Store
	hasher          *security.PasswordHasher
	tokens          *security.TokenCodec
	firebase        FederatedIdentity
	notifier        Notifier
	log             *slog.Logger
	adminEmails     map[string]struct{}
	phoneRegion     string
	requireVerified bool
	now             func() time.Time
}

func NewAuthService(d AuthDeps) *AuthService {
	s := &AuthService{
		store:           d.Store,
		hasher:          d.Hasher,
		tokens:          d.Tokens,
		firebase:        d.Firebase,
		notifier:        d.Notifier,
		log:             d.Logger,
		adminEmails:     make(map[string]struct{}, len(d.AdminEmails)),
		phoneRegion:     d.PhoneRegion,
		requireVerified: d.RequireEmailVerification,
		now:             d.Now,
	}
	for _, e := range d.AdminEmails {
		s.adminEmails[strings.ToLower(e)] = struct{}{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.firebase == nil {
		s.firebase = firebase.Disabled("not configured")
	}
	if s.notifier == nil {
		s.notifier = mailer.New(nil, "", "")
	}
	return s
}

// Signup creates a local account with its default permission bundle and a
// first session. The Firebase mirror account and the verification email are
// best-effort and happen after the account is committed.
func (s *AuthService) Signup(ctx context.Context, req *dto.SignupRequest, meta *models.ClientMeta) (*dto.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}
	phone, err := normalizePhone(req.Phone, s.phoneRegion)
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	verifyPlain, verifyHash, err := security.NewOneTimeToken()
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if _, ok := s.adminEmails[strings.ToLower(req.Email)]; ok {
		role = models.RoleAdmin
	}

	now := s.now()
	expires := now.Add(verificationTokenTTL)
	user := &models.User{
		ID:                         uuid.New(),
		Email:                      req.Email,
		Name:                       req.Name,
		Phone:                      phone,
		PasswordHash:               hash,
		Role:                       role,
		IsActive:                   true,
		EmailVerificationTokenHash: &verifyHash,
		EmailVerificationExpiresAt: &expires,
	}

	var resp *dto.TokenResponse
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		if err := tx.Permissions().Seed(ctx, models.PermissionCatalog); err != nil {
			return fmt.Errorf("seed permissions: %w", err)
		}
		if _, err := tx.Users().GetByEmail(ctx, user.Email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		catalog, err := tx.Permissions().List(ctx)
		if err != nil {
			return err
		}
		user.Permissions = DefaultPermissions(role, catalog)
		if err := tx.Users().Create(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		resp, err = s.issueTokenPair(ctx, tx, user, meta)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.mirrorToFirebase(ctx, user, req.Password)
	if err := s.notifier.SendVerification(ctx, user.Email, user.Name, verifyPlain); err != nil {
		s.log.Warn("verification email not sent", "user_id", user.ID, "error", err)
	}
	return resp, nil
}

func (s *AuthService) mirrorToFirebase(ctx context.Context, user *models.User, password string) {
	if !s.firebase.Enabled() {
		return
	}
	uid, err := s.firebase.CreateAccount(ctx, user.Email, password, user.Name)
	if err != nil {
		s.log.Warn("firebase account not created", "user_id", user.ID, "error", err)
		return
	}
	user.FirebaseUID = &uid
	if err := s.store.Users().Update(ctx, user); err != nil {
		s.log.Warn("firebase uid not stored", "user_id", user.ID, "error", err)
		user.FirebaseUID = nil
	}
}

// Login checks a password and opens a new session. A failed attempt leaves
// no trace: no session and no last-login update.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest, meta *models.ClientMeta) (*dto.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	user, err := s.store.Users().GetByEmail(ctx, req.Identifier())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if user == nil || !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	if s.requireVerified && !user.IsEmailVerified {
		return nil, ErrEmailNotVerified
	}

	var resp *dto.TokenResponse
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		now := s.now()
		user.LastLoginAt = &now
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		resp, err = s.issueTokenPair(ctx, tx, user, meta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// FirebaseLogin exchanges a Firebase ID token for a local session, creating
// or linking the local account as needed.
func (s *AuthService) FirebaseLogin(ctx context.Context, req *dto.FirebaseLoginRequest, meta *models.ClientMeta) (*dto.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}
	ident, err := s.firebase.Verify(ctx, req.IDToken)
	if err != nil {
		s.log.Warn("firebase token rejected", "error", err)
		return nil, ErrFirebaseAuth
	}
	if ident.Email == "" {
		return nil, ErrFirebaseNoEmail
	}

	var resp *dto.TokenResponse
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		user, err := tx.Users().GetByEmail(ctx, ident.Email)
		switch {
		case errors.Is(err, store.ErrNotFound):
			user, err = s.createFederatedUser(ctx, tx, ident)
			if err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if !user.IsActive {
				return ErrAccountDisabled
			}
			if user.FirebaseUID == nil {
				uid := ident.UID
				user.FirebaseUID = &uid
			}
			// Firebase vouching for the address of the linked account settles
			// a pending local verification.
			if ident.EmailVerified && !user.IsEmailVerified && *user.FirebaseUID == ident.UID {
				user.IsEmailVerified = true
				user.EmailVerificationTokenHash = nil
				user.EmailVerificationExpiresAt = nil
			}
		}

		now := s.now()
		user.LastLoginAt = &now
		if err := tx.Users().Update(ctx, user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrFirebaseUIDConflict
			}
			return err
		}
		resp, err = s.issueTokenPair(ctx, tx, user, meta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *AuthService) createFederatedUser(ctx context.Context, tx store.Store, ident *firebase.Identity) (*models.User, error) {
	if err := tx.Permissions().Seed(ctx, models.PermissionCatalog); err != nil {
		return nil, fmt.Errorf("seed permissions: %w", err)
	}
	catalog, err := tx.Permissions().List(ctx)
	if err != nil {
		return nil, err
	}
	uid := ident.UID
	user := &models.User{
		ID:              uuid.New(),
		Email:           ident.Email,
		Name:            ident.Name,
		Role:            models.RoleUser,
		IsActive:        true,
		IsEmailVerified: true,
		FirebaseUID:     &uid,
		Permissions:     DefaultPermissions(models.RoleUser, catalog),
	}
	if err := tx.Users().Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrFirebaseUIDConflict
		}
		return nil, fmt.Errorf("failed to create firebase user: %w", err)
	}
	return user, nil
}

// VerifyEmail consumes a verification token. Unknown and expired tokens are
// reported identically.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidVerification
	}
	user, err := s.store.Users().GetByVerificationTokenHash(ctx, security.HashToken(token))
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidVerification
	}
	if err != nil {
		return err
	}
	user.IsEmailVerified = true
	user.EmailVerificationTokenHash = nil
	user.EmailVerificationExpiresAt = nil
	return s.store.Users().Update(ctx, user)
}

// ForgotPassword issues a reset token when the email belongs to an account.
// The caller sees the same outcome either way.
func (s *AuthService) ForgotPassword(ctx context.Context, req *dto.EmailRequest) error {
	if err := req.Validate(); err != nil {
		return validationError(err)
	}
	user, err := s.store.Users().GetByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	plain, hash, err := security.NewOneTimeToken()
	if err != nil {
		return err
	}
	expires := s.now().Add(resetTokenTTL)
	user.ResetPasswordTokenHash = &hash
	user.ResetPasswordExpiresAt = &expires
	if err := s.store.Users().Update(ctx, user); err != nil {
		return err
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, user.Name, plain); err != nil {
		s.log.Warn("password reset email not sent", "user_id", user.ID, "error", err)
	}
	return nil
}

// ResetPassword consumes a reset token, sets the new password and signs the
// account out everywhere.
func (s *AuthService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	if err := req.Validate(); err != nil {
		return validationError(err)
	}
	user, err := s.store.Users().GetByResetTokenHash(ctx, security.HashToken(req.Token))
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidResetToken
	}
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.store.Transaction(ctx, func(tx store.Store) error {
		user.PasswordHash = hash
		user.ResetPasswordTokenHash = nil
		user.ResetPasswordExpiresAt = nil
		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		_, err := tx.Sessions().RevokeAll(ctx, user.ID)
		return err
	})
}

// Refresh trades a refresh token backed by a live session for a new access
// token. The refresh token itself stays valid until logout or expiry.
func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.TokenResponse, error) {
	claims, err := s.tokens.DecodeRefresh(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	userID, err := claims.UID()
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	if _, err := s.store.Sessions().FindValid(ctx, req.RefreshToken, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrExpiredRefreshToken
		}
		return nil, err
	}
	user, err := s.store.Users().GetByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrExpiredRefreshToken
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	access, err := s.tokens.CreateAccess(user.Email, user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &dto.TokenResponse{AccessToken: access, TokenType: tokenTypeBearer}, nil
}

// Logout revokes every session of user.
func (s *AuthService) Logout(ctx context.Context, user *models.User) (int64, error) {
	return s.store.Sessions().RevokeAll(ctx, user.ID)
}

func (s *AuthService) issueTokenPair(ctx context.Context, tx store.Store, user *models.User, meta *models.ClientMeta) (*dto.TokenResponse, error) {
	access, err := s.tokens.CreateAccess(user.Email, user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.CreateRefresh(user.Email, user.ID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Sessions().Create(ctx, user.ID, refresh, s.tokens.RefreshTTL(), meta); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
	}, nil
}

func validationError(err error) error {
	return apperr.New(apperr.KindValidation, err.Error())
}
