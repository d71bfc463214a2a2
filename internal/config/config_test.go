package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SPOTIFY_CLIENT_ID", "client-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "client-secret")
	t.Setenv("PUBLIC_BASE_URL", "http://localhost:9000")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 50, cfg.TrackPageLimit)
	assert.Equal(t, 10000, cfg.CatalogTimeoutMs)
	assert.Equal(t, "spotify_hub_session", cfg.SessionCookieName)
	assert.Equal(t, "@every 1h", cfg.SessionPruneSchedule)
}

func TestLoadMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SPOTIFY_CLIENT_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SPOTIFY_CLIENT_ID")
}

func TestLoadShortSessionSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SESSION_SECRET", "too-short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}

func TestLoadTrackPageLimitBounds(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TRACK_PAGE_LIMIT", "101")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRACK_PAGE_LIMIT")

	t.Setenv("TRACK_PAGE_LIMIT", "100")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.TrackPageLimit)
}

func TestRedirectURLStripsTrailingSlash(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PUBLIC_BASE_URL", "http://localhost:9000/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/v1/auth/callback", cfg.RedirectURL())
}

func TestAllowedOriginsCSV(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, http://hub.local ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:3000", "http://hub.local"}, cfg.AllowedOrigins)
}
