package firebase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProject = "demo-project"

type fakeGoogle struct {
	key    *rsa.PrivateKey
	server *httptest.Server
	issuer string

	createdEmail string
	authHeader   string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeGoogle{key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("/jwks", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "k1",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"sa-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/projects/"+testProject+"/accounts", func(w http.ResponseWriter, r *http.Request) {
		f.authHeader = r.Header.Get("Authorization")
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.createdEmail = body["email"]
		if body["email"] == "taken@example.com" {
			http.Error(w, `{"error":{"message":"EMAIL_EXISTS"}}`, http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"localId":"fb-uid-123"}`))
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	f.issuer = "https://securetoken.google.com/" + testProject
	return f
}

func (f *fakeGoogle) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "k1"
	s, err := tok.SignedString(f.key)
	require.NoError(t, err)
	return s
}

func (f *fakeGoogle) validClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            f.issuer,
		"aud":            testProject,
		"sub":            "fb-uid-123",
		"email":          "fed@example.com",
		"name":           "Fed User",
		"email_verified": true,
		"iat":            now.Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

func (f *fakeGoogle) credentials(t *testing.T) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(f.key)
	require.NoError(t, err)
	b, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"project_id":     testProject,
		"private_key_id": "k1",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"client_email":   "svc@" + testProject + ".iam.gserviceaccount.com",
		"token_uri":      f.server.URL + "/token",
	})
	require.NoError(t, err)
	return b
}

func (f *fakeGoogle) client(t *testing.T) *Client {
	t.Helper()
	c, err := New(Config{
		ProjectID:          testProject,
		CredentialsJSON:    f.credentials(t),
		HTTPClient:         f.server.Client(),
		JWKSURL:            f.server.URL + "/jwks",
		IdentityToolkitURL: f.server.URL,
		TokenURL:           f.server.URL + "/token",
	})
	require.NoError(t, err)
	return c
}

func TestVerify_ValidToken(t *testing.T) {
	f := newFakeGoogle(t)
	c := f.client(t)

	id, err := c.Verify(context.Background(), f.sign(t, f.validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "fb-uid-123", id.UID)
	assert.Equal(t, "fed@example.com", id.Email)
	assert.Equal(t, "Fed User", id.Name)
	assert.True(t, id.EmailVerified)
}

func TestVerify_RejectsBadTokens(t *testing.T) {
	f := newFakeGoogle(t)
	c := f.client(t)

	wrongAud := f.validClaims()
	wrongAud["aud"] = "other-project"

	wrongIss := f.validClaims()
	wrongIss["iss"] = "https://accounts.google.com"

	expired := f.validClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	for name, tok := range map[string]string{
		"audience": f.sign(t, wrongAud),
		"issuer":   f.sign(t, wrongIss),
		"expired":  f.sign(t, expired),
		"garbage":  "not-a-jwt",
	} {
		_, err := c.Verify(context.Background(), tok)
		assert.Error(t, err, name)
	}
}

func TestDisabledClient(t *testing.T) {
	c := Disabled("no credentials")
	assert.False(t, c.Enabled())

	_, err := c.Verify(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, apperr.KindUpstreamUnavailable, apperr.KindOf(err))

	_, err = c.CreateAccount(context.Background(), "a@b.com", "Abc123", "A")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNewFromCredentialsFile(t *testing.T) {
	assert.False(t, NewFromCredentialsFile("", nil).Enabled())
	assert.False(t, NewFromCredentialsFile(filepath.Join(t.TempDir(), "missing.json"), nil).Enabled())

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	assert.False(t, NewFromCredentialsFile(bad, nil).Enabled())

	noProject := filepath.Join(t.TempDir(), "np.json")
	require.NoError(t, os.WriteFile(noProject, []byte(`{"type":"service_account"}`), 0o600))
	assert.False(t, NewFromCredentialsFile(noProject, nil).Enabled())

	f := newFakeGoogle(t)
	good := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(good, f.credentials(t), 0o600))
	c := NewFromCredentialsFile(good, nil)
	assert.True(t, c.Enabled())
	assert.NoError(t, c.DisabledReason())
}

func TestCreateAccount(t *testing.T) {
	f := newFakeGoogle(t)
	c := f.client(t)

	uid, err := c.CreateAccount(context.Background(), "new@example.com", "Abc123", "New")
	require.NoError(t, err)
	assert.Equal(t, "fb-uid-123", uid)
	assert.Equal(t, "new@example.com", f.createdEmail)
	assert.Equal(t, "Bearer sa-token", f.authHeader)

	_, err = c.CreateAccount(context.Background(), "taken@example.com", "Abc123", "Taken")
	assert.ErrorContains(t, err, "EMAIL_EXISTS")
}
