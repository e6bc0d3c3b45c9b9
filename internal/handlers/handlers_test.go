package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/firebase"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/security"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/store/memstore"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const adminEmail = "root@example.com"

type outbox struct {
	mu     sync.Mutex
	verify map[string]string
	reset  map[string]string
}

func (o *outbox) Enabled() bool { return true }

func (o *outbox) SendVerification(_ context.Context, email, _, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.verify[email] = token
	return nil
}

func (o *outbox) SendPasswordReset(_ context.Context, email, _, token string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reset[email] = token
	return nil
}

type server struct {
	app   *fiber.App
	store *memstore.Store
	mail  *outbox
}

func newServer(t *testing.T) *server {
	t.Helper()
	st := memstore.New()
	require.NoError(t, st.Permissions().Seed(context.Background(), models.PermissionCatalog))

	tokens := security.NewTokenCodec("handler-secret", 30*time.Minute, 7*24*time.Hour)
	hasher := security.NewPasswordHasher(bcrypt.MinCost)
	fb := firebase.Disabled("not configured")
	mail := &outbox{verify: map[string]string{}, reset: map[string]string{}}
	resolver := services.NewIdentityResolver(st, tokens, false)

	authService := services.NewAuthService(services.AuthDeps{
		Store:       st,
		Hasher:      hasher,
		Tokens:      tokens,
		Firebase:    fb,
		Notifier:    mail,
		AdminEmails: []string{adminEmail},
		PhoneRegion: "US",
	})

	app := fiber.New()
	routes.Setup(app, tokens.Secret(), resolver, routes.Handlers{
		Auth:   handlers.NewAuthHandler(authService),
		User:   handlers.NewUserHandler(services.NewUserService(st, hasher, "US")),
		Admin:  handlers.NewAdminHandler(services.NewAdminService(st)),
		Health: handlers.NewHealthHandler(st, fb, mail),
	})
	return &server{app: app, store: st, mail: mail}
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) decode(t *testing.T, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, out), string(r.body))
}

func (r response) message(t *testing.T) string {
	t.Helper()
	var m struct {
		Message string `json:"message"`
	}
	r.decode(t, &m)
	return m.Message
}

func (s *server) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return s.send(t, req, token)
}

func (s *server) send(t *testing.T, req *http.Request, token string) response {
	t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, header: resp.Header, body: raw}
}

func (s *server) signup(t *testing.T, email string) dto.TokenResponse {
	t.Helper()
	r := s.do(t, fiber.MethodPost, "/api/auth/signup", "", map[string]any{
		"email":    email,
		"name":     "Jane Doe",
		"password": "Secret1",
	})
	require.Equal(t, fiber.StatusCreated, r.status, string(r.body))
	var tokens dto.TokenResponse
	r.decode(t, &tokens)
	return tokens
}

func (s *server) userID(t *testing.T, email string) string {
	t.Helper()
	u, err := s.store.Users().GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return u.ID.String()
}

func TestSignup(t *testing.T) {
	s := newServer(t)

	tokens := s.signup(t, "jane@example.com")
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "bearer", tokens.TokenType)

	r := s.do(t, fiber.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "jane@example.com", "name": "Again", "password": "Secret1",
	})
	assert.Equal(t, fiber.StatusBadRequest, r.status)
	assert.Equal(t, "Email already registered", r.message(t))
}

func TestSignup_RejectsBadInput(t *testing.T) {
	s := newServer(t)

	r := s.do(t, fiber.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "jane@example.com", "name": "Jane", "password": "short",
	})
	assert.Equal(t, fiber.StatusBadRequest, r.status)

	r = s.do(t, fiber.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "jane@example.com", "name": "Jane", "password": "Secret1", "role": "admin",
	})
	assert.Equal(t, fiber.StatusBadRequest, r.status)

	req := httptest.NewRequest(fiber.MethodPost, "/api/auth/signup", strings.NewReader("{not json"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	r = s.send(t, req, "")
	assert.Equal(t, fiber.StatusBadRequest, r.status)
	assert.Equal(t, "Invalid request body", r.message(t))
}

func TestLogin_JSONAndForm(t *testing.T) {
	s := newServer(t)
	s.signup(t, "jane@example.com")

	r := s.do(t, fiber.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "jane@example.com", "password": "Secret1",
	})
	assert.Equal(t, fiber.StatusOK, r.status)

	form := url.Values{"username": {"jane@example.com"}, "password": {"Secret1"}}
	req := httptest.NewRequest(fiber.MethodPost, "/api/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	r = s.send(t, req, "")
	assert.Equal(t, fiber.StatusOK, r.status, string(r.body))

	r = s.do(t, fiber.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "jane@example.com", "password": "Wrong99",
	})
	assert.Equal(t, fiber.StatusUnauthorized, r.status)
	assert.Equal(t, "Bearer", r.header.Get(fiber.HeaderWWWAuthenticate))
	assert.Equal(t, "Incorrect email or password", r.message(t))
}

func TestFirebaseLogin_DisabledClient(t *testing.T) {
	s := newServer(t)

	r := s.do(t, fiber.MethodPost, "/api/auth/firebase-login", "", map[string]any{"id_token": "abc"})
	assert.Equal(t, fiber.StatusUnauthorized, r.status)
	assert.Equal(t, "Firebase authentication failed", r.message(t))
}

func TestMe(t *testing.T) {
	s := newServer(t)
	tokens := s.signup(t, "jane@example.com")

	r := s.do(t, fiber.MethodGet, "/api/users/me", tokens.AccessToken, nil)
	require.Equal(t, fiber.StatusOK, r.status)
	var me dto.UserResponse
	r.decode(t, &me)
	assert.Equal(t, "jane@example.com", me.Email)
	assert.Equal(t, models.RoleUser, me.Role)
	assert.Equal(t, []string{"read"}, me.Permissions)

	r = s.do(t, fiber.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, r.status)

	r = s.do(t, fiber.MethodGet, "/api/users/me", tokens.RefreshToken, nil)
	assert.Equal(t, fiber.StatusUnauthorized, r.status)
}

func TestUpdateProfileAndPassword(t *testing.T) {
	s := newServer(t)
	tokens := s.signup(t, "jane@example.com")

	r := s.do(t, fiber.MethodPut, "/api/users/me", tokens.AccessToken, map[string]any{"name": "Janet"})
	assert.Equal(t, fiber.StatusOK, r.status)
	assert.Equal(t, "Profile updated successfully", r.message(t))

	r = s.do(t, fiber.MethodPut, "/api/users/me/password", tokens.AccessToken, map[string]any{
		"current_password": "Wrong99", "new_password": "Newpass1",
	})
	assert.Equal(t, fiber.StatusBadRequest, r.status)

	r = s.do(t, fiber.MethodPut, "/api/users/change-password", tokens.AccessToken, map[string]any{
		"current_password": "Secret1", "new_password": "Newpass1",
	})
	assert.Equal(t, fiber.StatusOK, r.status, string(r.body))

	r = s.do(t, fiber.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "jane@example.com", "password": "Newpass1",
	})
	assert.Equal(t, fiber.StatusOK, r.status)
}

func TestRefreshAndLogout(t *testing.T) {
	s := newServer(t)
	tokens := s.signup(t, "jane@example.com")

	r := s.do(t, fiber.MethodPost, "/api/auth/refresh", "", map[string]any{"refresh_token": tokens.RefreshToken})
	require.Equal(t, fiber.StatusOK, r.status)
	var refreshed map[string]any
	r.decode(t, &refreshed)
	assert.NotEmpty(t, refreshed["access_token"])
	assert.NotContains(t, refreshed, "refresh_token")

	r = s.do(t, fiber.MethodPost, "/api/auth/logout", tokens.AccessToken, nil)
	assert.Equal(t, fiber.StatusOK, r.status)
	assert.Equal(t, "Successfully logged out", r.message(t))

	r = s.do(t, fiber.MethodPost, "/api/auth/refresh", "", map[string]any{"refresh_token": tokens.RefreshToken})
	assert.Equal(t, fiber.StatusUnauthorized, r.status)
}

func TestVerifyEmail(t *testing.T) {
	s := newServer(t)
	s.signup(t, "jane@example.com")
	token := s.mail.verify["jane@example.com"]
	require.NotEmpty(t, token)

	r := s.do(t, fiber.MethodGet, "/api/auth/verify-email/"+token, "", nil)
	assert.Equal(t, fiber.StatusOK, r.status)

	r = s.do(t, fiber.MethodGet, "/api/auth/verify-email/"+token, "", nil)
	assert.Equal(t, fiber.StatusBadRequest, r.status)
}

func TestForgotAndResetPassword(t *testing.T) {
	s := newServer(t)
	s.signup(t, "jane@example.com")

	unknown := s.do(t, fiber.MethodPost, "/api/auth/forgot-password", "", map[string]any{"email": "nobody@example.com"})
	known := s.do(t, fiber.MethodPost, "/api/auth/forgot-password", "", map[string]any{"email": "jane@example.com"})
	assert.Equal(t, fiber.StatusOK, unknown.status)
	assert.Equal(t, known.status, unknown.status)
	assert.Equal(t, known.message(t), unknown.message(t))

	token := s.mail.reset["jane@example.com"]
	require.NotEmpty(t, token)

	r := s.do(t, fiber.MethodPost, "/api/auth/reset-password", "", map[string]any{
		"token": token, "new_password": "Fresh123",
	})
	assert.Equal(t, fiber.StatusOK, r.status)
	assert.Equal(t, "Password reset successfully", r.message(t))

	r = s.do(t, fiber.MethodPost, "/api/auth/reset-password", "", map[string]any{
		"token": token, "new_password": "Again123",
	})
	assert.Equal(t, fiber.StatusBadRequest, r.status)

	r = s.do(t, fiber.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "jane@example.com", "password": "Fresh123",
	})
	assert.Equal(t, fiber.StatusOK, r.status)
}

func TestDeleteMe(t *testing.T) {
	s := newServer(t)
	tokens := s.signup(t, "jane@example.com")

	r := s.do(t, fiber.MethodDelete, "/api/users/me", tokens.AccessToken, nil)
	assert.Equal(t, fiber.StatusOK, r.status)

	r = s.do(t, fiber.MethodGet, "/api/users/me", tokens.AccessToken, nil)
	assert.Equal(t, fiber.StatusUnauthorized, r.status)
}

func TestAdmin_RequiresStaffRole(t *testing.T) {
	s := newServer(t)
	user := s.signup(t, "jane@example.com")

	r := s.do(t, fiber.MethodGet, "/api/admin/users", user.AccessToken, nil)
	assert.Equal(t, fiber.StatusForbidden, r.status)

	r = s.do(t, fiber.MethodGet, "/api/admin/dashboard/stats", user.AccessToken, nil)
	assert.Equal(t, fiber.StatusForbidden, r.status)
}

func TestAdmin_UserManagement(t *testing.T) {
	s := newServer(t)
	admin := s.signup(t, adminEmail)
	s.signup(t, "jane@example.com")
	janeID := s.userID(t, "jane@example.com")

	r := s.do(t, fiber.MethodGet, "/api/admin/users?skip=0&limit=10", admin.AccessToken, nil)
	require.Equal(t, fiber.StatusOK, r.status)
	var list []dto.UserResponse
	r.decode(t, &list)
	assert.Len(t, list, 2)

	r = s.do(t, fiber.MethodGet, "/api/admin/users/"+janeID, admin.AccessToken, nil)
	assert.Equal(t, fiber.StatusOK, r.status)

	r = s.do(t, fiber.MethodGet, "/api/admin/users/not-a-uuid", admin.AccessToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, r.status)

	r = s.do(t, fiber.MethodPut, "/api/admin/users/"+janeID+"/role?role=hr", admin.AccessToken, nil)
	assert.Equal(t, fiber.StatusOK, r.status, string(r.body))
	assert.Equal(t, "User role updated to hr", r.message(t))

	r = s.do(t, fiber.MethodPut, "/api/admin/users/"+janeID+"/permissions", admin.AccessToken, map[string]any{
		"permissions": []string{"read", "delete", "bogus"},
	})
	assert.Equal(t, fiber.StatusOK, r.status)

	r = s.do(t, fiber.MethodGet, "/api/admin/users/"+janeID, admin.AccessToken, nil)
	var jane dto.UserResponse
	r.decode(t, &jane)
	assert.Equal(t, models.RoleHR, jane.Role)
	assert.ElementsMatch(t, []string{"read", "delete"}, jane.Permissions)

	r = s.do(t, fiber.MethodPut, "/api/admin/users/"+janeID+"/status", admin.AccessToken, map[string]any{"is_active": false})
	assert.Equal(t, fiber.StatusOK, r.status)
	assert.Equal(t, "User deactivated successfully", r.message(t))

	r = s.do(t, fiber.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "jane@example.com", "password": "Secret1",
	})
	assert.Equal(t, fiber.StatusForbidden, r.status)

	r = s.do(t, fiber.MethodDelete, "/api/admin/users/"+s.userID(t, adminEmail), admin.AccessToken, nil)
	assert.Equal(t, fiber.StatusBadRequest, r.status)
	assert.Equal(t, "Cannot delete your own account", r.message(t))

	r = s.do(t, fiber.MethodDelete, "/api/admin/users/"+janeID, admin.AccessToken, nil)
	assert.Equal(t, fiber.StatusOK, r.status)

	r = s.do(t, fiber.MethodGet, "/api/admin/users/"+janeID, admin.AccessToken, nil)
	assert.Equal(t, fiber.StatusNotFound, r.status)
	assert.Equal(t, "User not found", r.message(t))
}

func TestAdmin_UpdatePermissionsBodyForms(t *testing.T) {
	s := newServer(t)
	admin := s.signup(t, adminEmail)
	s.signup(t, "jane@example.com")
	janeID := s.userID(t, "jane@example.com")
	path := "/api/admin/users/" + janeID + "/permissions"

	for _, body := range []any{map[string]any{}, map[string]any{"perms": []string{"write"}}} {
		r := s.do(t, fiber.MethodPut, path, admin.AccessToken, body)
		assert.Equal(t, fiber.StatusBadRequest, r.status, string(r.body))
	}
	r := s.do(t, fiber.MethodGet, "/api/admin/users/"+janeID, admin.AccessToken, nil)
	var jane dto.UserResponse
	r.decode(t, &jane)
	assert.Equal(t, []string{"read"}, jane.Permissions)

	r = s.do(t, fiber.MethodPut, path, admin.AccessToken, []string{"read", "write"})
	assert.Equal(t, fiber.StatusOK, r.status, string(r.body))
	r = s.do(t, fiber.MethodGet, "/api/admin/users/"+janeID, admin.AccessToken, nil)
	r.decode(t, &jane)
	assert.ElementsMatch(t, []string{"read", "write"}, jane.Permissions)
}

func TestAdmin_StatsAndCatalog(t *testing.T) {
	s := newServer(t)
	admin := s.signup(t, adminEmail)
	s.signup(t, "jane@example.com")

	r := s.do(t, fiber.MethodGet, "/api/admin/dashboard/stats", admin.AccessToken, nil)
	require.Equal(t, fiber.StatusOK, r.status)
	var stats dto.StatsResponse
	r.decode(t, &stats)
	assert.EqualValues(t, 2, stats.TotalUsers)
	assert.EqualValues(t, 1, stats.UsersByRole["admin"])
	assert.EqualValues(t, 1, stats.UsersByRole["user"])
	assert.EqualValues(t, 0, stats.UsersByRole["hr"])

	r = s.do(t, fiber.MethodGet, "/api/admin/permissions", admin.AccessToken, nil)
	require.Equal(t, fiber.StatusOK, r.status)
	var perms []dto.PermissionResponse
	r.decode(t, &perms)
	assert.Len(t, perms, len(models.PermissionCatalog))
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	r := s.do(t, fiber.MethodGet, "/api/health", "", nil)
	require.Equal(t, fiber.StatusOK, r.status)
	var health dto.HealthResponse
	r.decode(t, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.DB)
	assert.Equal(t, "disabled", health.Firebase)
	assert.Equal(t, "enabled", health.Mail)
}
