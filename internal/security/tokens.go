package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// ErrInvalidToken is returned for every token that must not be trusted:
// bad signature, wrong algorithm, malformed, expired or of the wrong type.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims carried by both token kinds. Subject is the user's email; Role is
// only set on access tokens.
type Claims struct {
	Type   TokenType `json:"type"`
	UserID string    `json:"user_id"`
	Role   string    `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UID parses the user_id claim.
func (c *Claims) UID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// TokenCodec mints and validates HS256 signed tokens.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock replaces the codec's time source.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

func (c *TokenCodec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// Secret exposes the signing key for middleware that pre-validates bearer
// tokens.
func (c *TokenCodec) Secret() []byte { return c.secret }

func (c *TokenCodec) CreateAccess(subject string, userID uuid.UUID, role models.Role) (string, error) {
	return c.sign(TokenAccess, subject, userID, string(role), c.accessTTL)
}

func (c *TokenCodec) CreateRefresh(subject string, userID uuid.UUID) (string, error) {
	return c.sign(TokenRefresh, subject, userID, "", c.refreshTTL)
}

func (c *TokenCodec) sign(typ TokenType, subject string, userID uuid.UUID, role string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := &Claims{
		Type:   typ,
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, nil
}

// Decode validates signature and expiry. It does not look at the type claim;
// use DecodeAccess or DecodeRefresh where a specific kind is expected.
func (c *TokenCodec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (c *TokenCodec) DecodeAccess(tokenString string) (*Claims, error) {
	return c.decodeType(tokenString, TokenAccess)
}

func (c *TokenCodec) DecodeRefresh(tokenString string) (*Claims, error) {
	return c.decodeType(tokenString, TokenRefresh)
}

func (c *TokenCodec) decodeType(tokenString string, want TokenType) (*Claims, error) {
	claims, err := c.Decode(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrInvalidToken, want, claims.Type)
	}
	return claims, nil
}
