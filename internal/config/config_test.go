package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{}})
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL())
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "*", cfg.CORSOrigins)
	assert.False(t, cfg.RequireEmailVerification)
	assert.Equal(t, "US", cfg.PhoneDefaultRegion)
	assert.Empty(t, cfg.BootstrapAdminEmails)
	assert.False(t, cfg.MailEnabled())
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{
		"SECRET_KEY":                  "s3cret",
		"DB_PASSWORD":                 "pw",
		"ACCESS_TOKEN_EXPIRE_MINUTES": "5",
		"REFRESH_TOKEN_EXPIRE_DAYS":   "1",
		"BOOTSTRAP_ADMIN_EMAILS":      " root@example.com, ,ops@example.com ",
		"REQUIRE_EMAIL_VERIFICATION":  "true",
		"MAIL_SERVER":                 "smtp.example.com",
		"MAIL_FROM":                   "noreply@example.com",
	}})
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.AccessTokenTTL())
	assert.Equal(t, 24*time.Hour, cfg.RefreshTokenTTL())
	assert.Equal(t, []string{"root@example.com", "ops@example.com"}, cfg.BootstrapAdminEmails)
	assert.True(t, cfg.RequireEmailVerification)
	assert.True(t, cfg.MailEnabled())
	assert.NoError(t, cfg.Validate())
	assert.Contains(t, cfg.DSN(), "password=pw")
}

func TestValidate(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":   {"DB_PASSWORD": "pw"},
		"missing password": {"SECRET_KEY": "s"},
		"zero access ttl":  {"SECRET_KEY": "s", "DB_PASSWORD": "pw", "ACCESS_TOKEN_EXPIRE_MINUTES": "0"},
		"zero refresh ttl": {"SECRET_KEY": "s", "DB_PASSWORD": "pw", "REFRESH_TOKEN_EXPIRE_DAYS": "0"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := Parse(env.Options{Environment: vars})
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseRejectsMalformedNumbers(t *testing.T) {
	_, err := Parse(env.Options{Environment: map[string]string{"BCRYPT_COST": "ten"}})
	assert.Error(t, err)
}
