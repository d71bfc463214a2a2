package session

import "time"

// Credential is the Spotify access/refresh token pair plus expiry.
// It is replaced wholesale on refresh, never mutated field by field, so a
// reader always observes a consistent snapshot.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Valid reports whether the access token can still be presented.
// A credential is valid strictly before its expiry; at exactly ExpiresAt it
// is already stale.
func (c Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.ExpiresAt)
}
