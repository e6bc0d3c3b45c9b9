// Package firebase verifies Firebase ID tokens and manages Firebase Auth
// accounts on behalf of the local user store.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/auth-backend/internal/apperr"
	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	defaultIssuerPrefix       = "https://securetoken.google.com/"
	defaultJWKSURL            = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
	defaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com"
	identityToolkitScope      = "https://www.googleapis.com/auth/identitytoolkit"
	cloudPlatformScope        = "https://www.googleapis.com/auth/cloud-platform"
)

// ErrUnavailable is returned by every call on a client without credentials.
var ErrUnavailable = apperr.New(apperr.KindUpstreamUnavailable, "Firebase is not configured")

// Identity is what a verified Firebase ID token asserts about its holder.
type Identity struct {
	UID           string
	Email         string
	Name          string
	EmailVerified bool
}

// Config configures a Client. Only ProjectID is required for token
// verification; CredentialsJSON enables account creation.
type Config struct {
	ProjectID       string
	CredentialsJSON []byte
	HTTPClient      *http.Client

	// Overrides for tests and emulators.
	IssuerURL          string
	JWKSURL            string
	IdentityToolkitURL string
	TokenURL           string
}

// Client talks to Firebase. A zero-credential client is valid and disabled.
type Client struct {
	projectID   string
	httpClient  *http.Client
	verifier    *gooidc.IDTokenVerifier
	tokens      oauth2.TokenSource
	toolkitURL  string
	disabledErr error
}

// Disabled returns a client that fails every call with ErrUnavailable.
func Disabled(reason string) *Client {
	return &Client{disabledErr: apperr.Wrap(errors.New(reason), ErrUnavailable.Kind, ErrUnavailable.Message)}
}

// New builds an enabled client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	issuer := cfg.IssuerURL
	if issuer == "" {
		issuer = defaultIssuerPrefix + cfg.ProjectID
	}
	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		jwksURL = defaultJWKSURL
	}
	toolkitURL := cfg.IdentityToolkitURL
	if toolkitURL == "" {
		toolkitURL = defaultIdentityToolkitURL
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	keySet := gooidc.NewRemoteKeySet(ctx, jwksURL)

	c := &Client{
		projectID:  cfg.ProjectID,
		httpClient: httpClient,
		verifier:   gooidc.NewVerifier(issuer, keySet, &gooidc.Config{ClientID: cfg.ProjectID}),
		toolkitURL: strings.TrimSuffix(toolkitURL, "/"),
	}

	if len(cfg.CredentialsJSON) > 0 {
		jwtCfg, err := google.JWTConfigFromJSON(cfg.CredentialsJSON, identityToolkitScope, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account: %w", err)
		}
		if cfg.TokenURL != "" {
			jwtCfg.TokenURL = cfg.TokenURL
		}
		c.tokens = jwtCfg.TokenSource(ctx)
	}
	return c, nil
}

type serviceAccount struct {
	ProjectID string `json:"project_id"`
}

// NewFromCredentialsFile reads a service-account JSON file. Any problem with
// the file yields a disabled client rather than an error, so the server can
// start without Firebase.
func NewFromCredentialsFile(path string, httpClient *http.Client) *Client {
	if path == "" {
		return Disabled("credentials path not set")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Disabled(fmt.Sprintf("read credentials: %v", err))
	}
	var sa serviceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return Disabled(fmt.Sprintf("decode credentials: %v", err))
	}
	c, err := New(Config{ProjectID: sa.ProjectID, CredentialsJSON: data, HTTPClient: httpClient})
	if err != nil {
		return Disabled(err.Error())
	}
	return c
}

// Enabled reports whether the client has credentials.
func (c *Client) Enabled() bool { return c.disabledErr == nil }

// DisabledReason explains why the client is disabled, or returns nil.
func (c *Client) DisabledReason() error { return c.disabledErr }

// Verify checks signature, issuer, audience and expiry of a Firebase ID token.
func (c *Client) Verify(ctx context.Context, idToken string) (*Identity, error) {
	if c.disabledErr != nil {
		return nil, c.disabledErr
	}
	ctx = gooidc.ClientContext(ctx, c.httpClient)
	tok, err := c.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("verify firebase id token: %w", err)
	}

	var claims struct {
		Email         string `json:"email"`
		Name          string `json:"name"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := tok.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode firebase claims: %w", err)
	}
	if tok.Subject == "" {
		return nil, errors.New("firebase token has no subject")
	}
	return &Identity{
		UID:           tok.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// CreateAccount registers an email/password account in Firebase Auth and
// returns its uid.
func (c *Client) CreateAccount(ctx context.Context, email, password, displayName string) (string, error) {
	if c.disabledErr != nil {
		return "", c.disabledErr
	}
	if c.tokens == nil {
		return "", apperr.Wrap(errors.New("no service account"), ErrUnavailable.Kind, ErrUnavailable.Message)
	}

	body, err := json.Marshal(map[string]string{
		"email":       email,
		"password":    password,
		"displayName": displayName,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1/projects/%s/accounts", c.toolkitURL, c.projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient), c.tokens)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("create firebase account: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("create firebase account: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out struct {
		LocalID string `json:"localId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode firebase response: %w", err)
	}
	if out.LocalID == "" {
		return "", errors.New("firebase response has no localId")
	}
	return out.LocalID, nil
}
