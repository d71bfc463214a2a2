package session

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

const spotifyTokenURL = "https://accounts.spotify.com/api/token"

// OAuthRefresher exchanges refresh tokens against the Spotify token endpoint.
type OAuthRefresher struct {
	conf *oauth2.Config
}

// NewOAuthRefresher creates a refresher for the given Spotify application.
func NewOAuthRefresher(clientID, clientSecret string) *OAuthRefresher {
	return &OAuthRefresher{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: spotifyTokenURL},
		},
	}
}

// Refresh performs a single token exchange. A rejection by the provider (a
// 4xx token-endpoint response, e.g. invalid_grant) maps to ErrRefreshDenied;
// anything else, including a 5xx from the endpoint, is a transient failure
// returned as-is so the caller keeps the session.
func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (Credential, error) {
	src := r.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && isDenial(retrieveErr) {
			return Credential{}, fmt.Errorf("%w: %v", ErrRefreshDenied, err)
		}
		return Credential{}, fmt.Errorf("token refresh: %w", err)
	}

	cred := Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	// Spotify omits the refresh token when it has not rotated.
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}
	return cred, nil
}

// isDenial reports whether the token endpoint rejected the refresh token
// itself. An outage or gateway failure (5xx) is not a denial.
func isDenial(err *oauth2.RetrieveError) bool {
	if err.Response == nil {
		return false
	}
	return err.Response.StatusCode >= 400 && err.Response.StatusCode < 500
}
