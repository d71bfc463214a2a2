package catalog

import (
	"context"
	"errors"

	spotifylib "github.com/zmb3/spotify/v2"

	"github.com/strefethen/spotify-hub-go/internal/apperrors"
)

// classify maps Spotify Web API failures onto the hub's error taxonomy:
// Unauthorized, NotFound, RateLimited, or a transient upstream failure.
// Unauthorized is never retried here; the caller decides whether the
// session survives.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr spotifylib.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case 401:
			return apperrors.NewUpstreamError(apperrors.ErrorCodeUpstreamUnauthorized, "Spotify rejected the access credential")
		case 403:
			// Permission or subscription failure, not a bad credential.
			// The session survives; only 401 ends it.
			return apperrors.NewUpstreamError(apperrors.ErrorCodeUpstreamForbidden, "Spotify denied the request: "+apiErr.Message)
		case 404:
			return apperrors.NewUpstreamError(apperrors.ErrorCodeUpstreamNotFound, "Resource not found on Spotify")
		case 429:
			return apperrors.NewUpstreamError(apperrors.ErrorCodeUpstreamRateLimited, "Spotify rate limit reached, try again shortly")
		}
		return apperrors.NewUpstreamError(apperrors.ErrorCodeUpstreamUnavailable, "Spotify request failed: "+apiErr.Message)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperrors.NewUpstreamError(apperrors.ErrorCodeUpstreamUnavailable, "Spotify request timed out")
	}
	return apperrors.NewUpstreamError(apperrors.ErrorCodeUpstreamUnavailable, "Spotify is unreachable")
}
