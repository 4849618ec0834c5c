package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_JWT_SECRET", "a-long-random-signing-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.App.Env)
	assert.False(t, cfg.App.IsDevelopment())
	assert.False(t, cfg.Auth.ExposeResetTokens)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, 10, cfg.Billing.PageCapacity)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
	assert.False(t, cfg.Auth.RequireVerification)
	assert.False(t, cfg.Notification.PushEnabled())
	assert.False(t, cfg.Notification.EmailEnabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_JWT_SECRET", "a-long-random-signing-key")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_REQUIRE_VERIFICATION", "true")
	t.Setenv("NOTIFY_VAPID_PUBLIC_KEY", "pub")
	t.Setenv("NOTIFY_VAPID_PRIVATE_KEY", "priv")
	t.Setenv("BILLING_RENDER_TIMEOUT", "5s")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Zero(t, cfg.App.RequestTimeout())
	assert.True(t, cfg.Auth.RequireVerification)
	assert.True(t, cfg.Notification.PushEnabled())
	assert.Equal(t, 5*time.Second, cfg.Billing.RenderTimeout)
}

func TestLoadRejectsBadPageCapacity(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AUTH_JWT_SECRET", "a-long-random-signing-key")
	t.Setenv("BILLING_PAGE_CAPACITY", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRefusesUnsafeAuthOutsideDevelopment(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"no secret", map[string]string{}},
		{"development secret", map[string]string{"AUTH_JWT_SECRET": "dev-secret"}},
		{"echoed reset tokens", map[string]string{
			"AUTH_JWT_SECRET":          "a-long-random-signing-key",
			"AUTH_EXPOSE_RESET_TOKENS": "true",
		}},
		{"staging with no secret", map[string]string{"APP_ENV": "staging"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("APP_ENV", EnvProduction)
			t.Setenv("AUTH_JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadDevelopmentFallsBackToLocalSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "development")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AUTH_EXPOSE_RESET_TOKENS", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.App.IsDevelopment())
	assert.NotEmpty(t, cfg.Auth.JWTSecret)
	assert.True(t, cfg.Auth.ExposeResetTokens)
}
