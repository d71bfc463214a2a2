package session

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	spotifylib "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/strefethen/spotify-hub-go/internal/api"
	"github.com/strefethen/spotify-hub-go/internal/apperrors"
	"github.com/strefethen/spotify-hub-go/internal/config"
)

// NewAuthenticator builds the Spotify authenticator with every scope the
// player needs: profile, library, playback state, remote control, streaming
// and playlist reads.
func NewAuthenticator(cfg config.Config) *spotifyauth.Authenticator {
	return spotifyauth.New(
		spotifyauth.WithClientID(cfg.SpotifyClientID),
		spotifyauth.WithClientSecret(cfg.SpotifyClientSecret),
		spotifyauth.WithRedirectURL(cfg.RedirectURL()),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadEmail,
			spotifyauth.ScopeUserReadPrivate,
			spotifyauth.ScopeUserLibraryRead,
			spotifyauth.ScopeUserTopRead,
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopeUserModifyPlaybackState,
			spotifyauth.ScopeUserReadCurrentlyPlaying,
			"app-remote-control",
			spotifyauth.ScopeStreaming,
			spotifyauth.ScopePlaylistReadPrivate,
			spotifyauth.ScopePlaylistReadCollaborative,
		),
	)
}

// Routes handles the OAuth redirect flow and session endpoints.
type Routes struct {
	cfg    config.Config
	auth   *spotifyauth.Authenticator
	states *StateStore
	store  *Store
	logger *log.Logger

	// onSignOut runs before the session is discarded (device teardown etc).
	onSignOut func()

	// lookupUser resolves the account id behind a token. Replaced in tests.
	lookupUser func(ctx context.Context, tok *oauth2.Token) (string, error)
}

// NewRoutes creates the auth route handlers.
func NewRoutes(cfg config.Config, auth *spotifyauth.Authenticator, states *StateStore, store *Store, onSignOut func(), logger *log.Logger) *Routes {
	if logger == nil {
		logger = log.Default()
	}
	routes := &Routes{
		cfg:       cfg,
		auth:      auth,
		states:    states,
		store:     store,
		onSignOut: onSignOut,
		logger:    logger,
	}
	routes.lookupUser = func(ctx context.Context, tok *oauth2.Token) (string, error) {
		client := spotifylib.New(auth.Client(ctx, tok))
		user, err := client.CurrentUser(ctx)
		if err != nil {
			return "", err
		}
		return user.ID, nil
	}
	return routes
}

// RegisterRoutes wires auth routes to the router.
func RegisterRoutes(router chi.Router, routes *Routes) {
	router.Method(http.MethodGet, "/v1/auth/login", api.Handler(routes.login))
	router.Method(http.MethodGet, "/v1/auth/callback", api.Handler(routes.callback))
	router.Method(http.MethodPost, "/v1/auth/logout", api.Handler(routes.logout))
	router.Method(http.MethodGet, "/v1/auth/session", api.Handler(routes.sessionStatus))
}

func (routes *Routes) login(w http.ResponseWriter, r *http.Request) error {
	state := uuid.NewString()
	routes.states.Add(state)
	http.Redirect(w, r, routes.auth.AuthURL(state), http.StatusTemporaryRedirect)
	return nil
}

func (routes *Routes) callback(w http.ResponseWriter, r *http.Request) error {
	state := r.FormValue("state")
	if state == "" || !routes.states.Consume(state) {
		return apperrors.NewUnauthorizedError("OAuth state mismatch", apperrors.ErrorCodeOAuthStateMismatch)
	}

	tok, err := routes.auth.Token(r.Context(), state, r)
	if err != nil {
		routes.logger.Printf("code exchange failed: %v", err)
		return apperrors.NewUnauthorizedError("Authorization code exchange failed", apperrors.ErrorCodeOAuthExchangeFailed)
	}

	spotifyUser, err := routes.lookupUser(r.Context(), tok)
	if err != nil {
		routes.logger.Printf("profile lookup failed: %v", err)
		return apperrors.NewUpstreamError(apperrors.ErrorCodeUpstreamUnavailable, "Failed to load Spotify profile")
	}

	sess := Session{
		ID:          uuid.NewString(),
		SpotifyUser: spotifyUser,
		Credential: Credential{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			ExpiresAt:    tok.Expiry,
		},
		CreatedAt: time.Now(),
	}
	if err := routes.store.SignIn(sess); err != nil {
		return apperrors.NewInternalError("Failed to persist session")
	}

	cookieValue, err := SignSessionID(routes.cfg.SessionSecret, sess.ID, time.Duration(routes.cfg.SessionTTLSec)*time.Second)
	if err != nil {
		return apperrors.NewInternalError("Failed to issue session cookie")
	}
	http.SetCookie(w, &http.Cookie{
		Name:     routes.cfg.SessionCookieName,
		Value:    cookieValue,
		Path:     "/",
		MaxAge:   routes.cfg.SessionTTLSec,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	routes.logger.Printf("signed in as %s", spotifyUser)
	http.Redirect(w, r, "/v1/assets/player.html", http.StatusTemporaryRedirect)
	return nil
}

func (routes *Routes) logout(w http.ResponseWriter, r *http.Request) error {
	if routes.onSignOut != nil {
		routes.onSignOut()
	}
	if err := routes.store.SignOut(); err != nil {
		routes.logger.Printf("sign-out cleanup failed: %v", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     routes.cfg.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return api.WriteAction(w, http.StatusOK, map[string]any{
		"object":    "session_logout",
		"signed_in": false,
	})
}

func (routes *Routes) sessionStatus(w http.ResponseWriter, r *http.Request) error {
	current, ok := routes.store.Current()
	if !ok {
		return api.WriteResource(w, http.StatusOK, map[string]any{
			"object":    "session",
			"signed_in": false,
		})
	}
	return api.WriteResource(w, http.StatusOK, map[string]any{
		"object":           "session",
		"signed_in":        true,
		"spotify_user":     current.SpotifyUser,
		"credential_valid": routes.store.IsValid(),
		"expires_at":       current.Credential.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
