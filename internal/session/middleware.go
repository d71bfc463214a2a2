package session

import (
	"net/http"
	"strings"

	"github.com/strefethen/spotify-hub-go/internal/api"
	"github.com/strefethen/spotify-hub-go/internal/apperrors"
	"github.com/strefethen/spotify-hub-go/internal/config"
)

var publicRoutes = map[string]struct{}{
	"/v1/auth/login":    {},
	"/v1/auth/callback": {},
	"/v1/auth/session":  {},
	"/v1/health":        {},
	"/v1/health/live":   {},
	"/v1/health/ready":  {},
}

var publicPrefixes = []string{
	"/v1/health",
	"/v1/assets",
	"/v1/openapi",
}

// Middleware resolves the session cookie for protected routes. The cookie
// must name the currently active session; anything else is a 401.
func Middleware(cfg config.Config, store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicRoute(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(cfg.SessionCookieName)
			if err != nil || cookie.Value == "" {
				api.WriteError(w, r, apperrors.NewUnauthorizedError("Missing session cookie", apperrors.ErrorCodeSignedOut))
				return
			}

			sessionID, err := ParseSessionID(cfg.SessionSecret, cookie.Value)
			if err != nil {
				if err == ErrCookieExpired {
					api.WriteError(w, r, apperrors.NewUnauthorizedError("Session cookie has expired", apperrors.ErrorCodeSessionTokenExpired))
					return
				}
				api.WriteError(w, r, apperrors.NewUnauthorizedError("Invalid session cookie", apperrors.ErrorCodeSessionTokenInvalid))
				return
			}

			if !store.Matches(sessionID) {
				api.WriteError(w, r, apperrors.NewUnauthorizedError("Session is no longer active", apperrors.ErrorCodeSignedOut))
				return
			}

			sess, _ := store.Current()
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

func isPublicRoute(path string) bool {
	if _, ok := publicRoutes[path]; ok {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
