package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TICKET_SIGNING_SECRET", "")
	t.Setenv("ADMIN_EMAILS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.JWT.AccessExpireMinutes)
	assert.Equal(t, 7, cfg.JWT.RefreshExpireDays)
	assert.Equal(t, "s3cret", cfg.Tickets.SigningSecret, "signing secret falls back to JWT secret")
	assert.Equal(t, 400, cfg.Tickets.QRSize)
	assert.Empty(t, cfg.Admin.Emails)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TICKET_SIGNING_SECRET", "tickets-only")
	t.Setenv("JWT_ACCESS_EXPIRE_MINUTES", "5")
	t.Setenv("ADMIN_EMAILS", " admin@campus.edu , ops@campus.edu,")
	t.Setenv("SECURE_COOKIES", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "tickets-only", cfg.Tickets.SigningSecret)
	assert.Equal(t, 5, cfg.JWT.AccessExpireMinutes)
	assert.True(t, cfg.Server.SecureCookies)
	assert.Equal(t, []string{"admin@campus.edu", "ops@campus.edu"}, cfg.Admin.Emails)
	assert.True(t, cfg.Admin.IsAdminEmail("ADMIN@campus.edu"))
	assert.False(t, cfg.Admin.IsAdminEmail("student@campus.edu"))
}

func TestLoad_RejectsNonPositiveLifetimes(t *testing.T) {
	t.Setenv("JWT_REFRESH_EXPIRE_DAYS", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "campusbuzz", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/campusbuzz?sslmode=disable", c.DSN())

	c.URL = "postgres://override"
	assert.Equal(t, "postgres://override", c.DSN())
}
