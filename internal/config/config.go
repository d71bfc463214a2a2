package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the base server configuration.
type Config struct {
	Host         string
	Port         string
	SQLiteDBPath string

	// Spotify application credentials. The redirect URI registered with
	// Spotify must be PublicBaseURL + "/v1/auth/callback".
	SpotifyClientID     string
	SpotifyClientSecret string
	PublicBaseURL       string

	// SessionSecret signs the session cookie.
	SessionSecret     string
	SessionTTLSec     int
	SessionCookieName string

	// TrackPageLimit is the page size requested when listing playlist tracks.
	TrackPageLimit int

	// CatalogTimeoutMs bounds each Spotify Web API call.
	CatalogTimeoutMs int

	// Rate limiting for the local API surface.
	RateLimitRPS   float64
	RateLimitBurst int

	// SessionPruneSchedule is a cron expression for the expired-session sweep.
	SessionPruneSchedule string

	// AllowedOrigins is the CORS allowlist for browser clients.
	AllowedOrigins []string
}

// RedirectURL returns the OAuth callback URL derived from the public base URL.
func (c Config) RedirectURL() string {
	return strings.TrimRight(c.PublicBaseURL, "/") + "/v1/auth/callback"
}

// Load reads configuration from environment variables with defaults.
// The Spotify credentials, public base URL and session secret are required;
// a missing value is a startup error, never a runtime one.
func Load() (Config, error) {
	cfg := Config{
		Host:                 envString("HOST", "0.0.0.0"),
		Port:                 envString("PORT", "9000"),
		SQLiteDBPath:         envString("SQLITE_DB_PATH", "./data/spotify-hub.db"),
		SpotifyClientID:      envString("SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret:  envString("SPOTIFY_CLIENT_SECRET", ""),
		PublicBaseURL:        envString("PUBLIC_BASE_URL", ""),
		SessionSecret:        envString("SESSION_SECRET", ""),
		SessionTTLSec:        envInt("SESSION_TTL_SECONDS", 2592000),
		SessionCookieName:    envString("SESSION_COOKIE_NAME", "spotify_hub_session"),
		TrackPageLimit:       envInt("TRACK_PAGE_LIMIT", 50),
		CatalogTimeoutMs:     envInt("CATALOG_TIMEOUT_MS", 10000),
		RateLimitRPS:         envFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:       envInt("RATE_LIMIT_BURST", 30),
		SessionPruneSchedule: envString("SESSION_PRUNE_SCHEDULE", "@every 1h"),
		AllowedOrigins:       envCSV("ALLOWED_ORIGINS"),
	}

	var missing []string
	if cfg.SpotifyClientID == "" {
		missing = append(missing, "SPOTIFY_CLIENT_ID")
	}
	if cfg.SpotifyClientSecret == "" {
		missing = append(missing, "SPOTIFY_CLIENT_SECRET")
	}
	if cfg.PublicBaseURL == "" {
		missing = append(missing, "PUBLIC_BASE_URL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	if len(strings.TrimSpace(cfg.SessionSecret)) < 32 {
		return Config{}, fmt.Errorf("SESSION_SECRET must be at least 32 characters")
	}

	if cfg.TrackPageLimit < 1 || cfg.TrackPageLimit > 100 {
		return Config{}, fmt.Errorf("TRACK_PAGE_LIMIT must be between 1 and 100")
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envCSV(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return []string{}
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}
