package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", "file::memory:")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "admin", cfg.PostAuthoring)
	assert.Equal(t, 30*time.Second, cfg.ListCacheTTL)
	assert.NotEmpty(t, cfg.GuestHashKey())
}

func TestLoad_RejectsUnknownPolicy(t *testing.T) {
	t.Setenv("POST_AUTHORING", "everyone")

	_, err := Load()
	assert.Error(t, err)
}

func TestIsAdminEmail(t *testing.T) {
	t.Setenv("ADMIN_EMAILS", "root@example.com, Ops@Example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsAdminEmail("ops@example.com"))
	assert.True(t, cfg.IsAdminEmail("root@example.com"))
	assert.False(t, cfg.IsAdminEmail("someone@example.com"))
}

func TestLoad_ReleaseNeedsSessionSecret(t *testing.T) {
	t.Setenv("GIN_MODE", "release")

	_, err := Load()
	assert.ErrorContains(t, err, "SESSION_SECRET")

	t.Setenv("SESSION_SECRET", "a-real-production-secret")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "guest:a-real-production-secret", string(cfg.GuestHashKey()))
}
