package services

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/firebase"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/security"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/store/memstore"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type mockFirebase struct{ mock.Mock }

func (m *mockFirebase) Enabled() bool { return m.Called().Bool(0) }

func (m *mockFirebase) Verify(ctx context.Context, idToken string) (*firebase.Identity, error) {
	args := m.Called(ctx, idToken)
	id, _ := args.Get(0).(*firebase.Identity)
	return id, args.Error(1)
}

func (m *mockFirebase) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	args := m.Called(ctx, email, password, displayName)
	return args.String(0), args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) SendVerification(ctx context.Context, email, name, token string) error {
	return m.Called(ctx, email, name, token).Error(0)
}

func (m *mockNotifier) SendPasswordReset(ctx context.Context, email, name, token string) error {
	return m.Called(ctx, email, name, token).Error(0)
}

type fixture struct {
	clock    *testClock
	store    *memstore.Store
	tokens   *security.TokenCodec
	hasher   *security.PasswordHasher
	fb       *mockFirebase
	mail     *mockNotifier
	auth     *AuthService
	users    *UserService
	admin    *AdminService
	resolver *IdentityResolver

	mailErr     error
	verifyToken string
	resetToken  string
}

type fixtureOption func(*fixture, *AuthDeps)

func withMailError(err error) fixtureOption {
	return func(f *fixture, _ *AuthDeps) { f.mailErr = err }
}

func withAdminEmails(emails ...string) fixtureOption {
	return func(_ *fixture, d *AuthDeps) { d.AdminEmails = emails }
}

func withEmailVerification() fixtureOption {
	return func(_ *fixture, d *AuthDeps) { d.RequireEmailVerification = true }
}

func withFirebase(setup func(fb *mockFirebase)) fixtureOption {
	return func(f *fixture, _ *AuthDeps) { setup(f.fb) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	clock := &testClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := memstore.New()
	st.SetClock(clock.Now)

	f := &fixture{
		clock:  clock,
		store:  st,
		tokens: security.NewTokenCodec("test-secret", 30*time.Minute, 7*24*time.Hour).WithClock(clock.Now),
		hasher: security.NewPasswordHasher(bcrypt.MinCost),
		fb:     &mockFirebase{},
		mail:   &mockNotifier{},
	}
	deps := AuthDeps{
		Store:       st,
		Hasher:      f.hasher,
		Tokens:      f.tokens,
		Firebase:    f.fb,
		Notifier:    f.mail,
		PhoneRegion: "US",
		Now:         clock.Now,
	}
	for _, opt := range opts {
		opt(f, &deps)
	}

	f.fb.On("Enabled").Return(false).Maybe()
	f.mail.On("SendVerification", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(a mock.Arguments) { f.verifyToken = a.String(3) }).
		Return(f.mailErr).Maybe()
	f.mail.On("SendPasswordReset", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(a mock.Arguments) { f.resetToken = a.String(3) }).
		Return(f.mailErr).Maybe()

	f.auth = NewAuthService(deps)
	f.users = NewUserService(st, f.hasher, "US")
	f.admin = NewAdminService(st).WithClock(clock.Now)
	f.resolver = NewIdentityResolver(st, f.tokens, deps.RequireEmailVerification)
	return f
}

func (f *fixture) signup(t *testing.T, email string) *dto.TokenResponse {
	t.Helper()
	resp, err := f.auth.Signup(context.Background(), &dto.SignupRequest{
		Email:    email,
		Name:     "Test User",
		Password: "Abc123",
	}, nil)
	require.NoError(t, err)
	return resp
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.store.Users().GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return u
}

func names(perms []models.Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p.Name))
	}
	return out
}
