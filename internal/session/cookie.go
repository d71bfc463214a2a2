package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	cookieIssuer   = "spotify-hub"
	cookieAudience = "spotify-hub-web"
)

var (
	ErrCookieExpired = errors.New("session cookie expired")
	ErrCookieInvalid = errors.New("session cookie invalid")
)

// SignSessionID wraps a session id in a signed JWT for the browser cookie.
// The cookie carries only the id; tokens never leave the server.
func SignSessionID(secret, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		Issuer:    cookieIssuer,
		Audience:  []string{cookieAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionID validates a cookie value and returns the session id.
func ParseSessionID(secret, token string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithAudience(cookieAudience),
		jwt.WithIssuer(cookieIssuer),
	)

	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrCookieExpired
		}
		return "", ErrCookieInvalid
	}
	if parsed == nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrCookieInvalid
	}
	return claims.Subject, nil
}
