package catalog

import (
	"context"
	"strings"
	"time"

	spotifylib "github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// webAPI is the slice of the Spotify Web API the catalog uses.
type webAPI interface {
	CurrentUsersPlaylists(ctx context.Context, opts ...spotifylib.RequestOption) (*spotifylib.SimplePlaylistPage, error)
	GetPlaylistItems(ctx context.Context, playlistID spotifylib.ID, opts ...spotifylib.RequestOption) (*spotifylib.PlaylistItemPage, error)
	TransferPlayback(ctx context.Context, deviceID spotifylib.ID, play bool) error
	PlayOpt(ctx context.Context, opt *spotifylib.PlayOptions) error
}

// Client issues authenticated requests against the Spotify Web API. It is
// stateless: every call takes the credential it should present, built into a
// static token source so the underlying library can never refresh tokens
// behind the store's back. Unauthorized responses propagate to the caller.
type Client struct {
	timeout time.Duration

	// newAPI builds a per-call API handle. Replaced in tests.
	newAPI func(ctx context.Context, accessToken string) webAPI
}

// NewClient creates a catalog client with the given per-call timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		timeout: timeout,
		newAPI: func(ctx context.Context, accessToken string) webAPI {
			src := oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: accessToken,
				TokenType:   "Bearer",
			})
			return spotifylib.New(oauth2.NewClient(ctx, src))
		},
	}
}

// ListPlaylists returns the current user's playlists.
func (c *Client) ListPlaylists(ctx context.Context, accessToken string) ([]Playlist, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	page, err := c.newAPI(ctx, accessToken).CurrentUsersPlaylists(ctx, spotifylib.Limit(50))
	if err != nil {
		return nil, classify(err)
	}

	playlists := make([]Playlist, 0, len(page.Playlists))
	for _, p := range page.Playlists {
		playlists = append(playlists, Playlist{
			ID:            string(p.ID),
			Name:          p.Name,
			CoverImageURL: firstImageURL(p.Images),
			TrackCount:    int(p.Tracks.Total),
		})
	}
	return playlists, nil
}

// ListPlaylistTracks returns up to limit tracks of the given playlist.
// Episode entries carry no playable track and are skipped.
func (c *Client) ListPlaylistTracks(ctx context.Context, accessToken, playlistID string, limit int) ([]Track, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	page, err := c.newAPI(ctx, accessToken).GetPlaylistItems(ctx, spotifylib.ID(playlistID), spotifylib.Limit(limit))
	if err != nil {
		return nil, classify(err)
	}

	tracks := make([]Track, 0, len(page.Items))
	for _, item := range page.Items {
		full := item.Track.Track
		if full == nil {
			continue
		}
		tracks = append(tracks, Track{
			ID:          string(full.ID),
			Name:        full.Name,
			ArtistName:  artistNames(full.Artists),
			AlbumName:   full.Album.Name,
			AlbumArtURL: firstImageURL(full.Album.Images),
			PlayableURI: string(full.URI),
		})
	}
	return tracks, nil
}

// TransferPlayback moves the playback session onto the given device without
// auto-starting playback.
func (c *Client) TransferPlayback(ctx context.Context, accessToken, deviceID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.newAPI(ctx, accessToken).TransferPlayback(ctx, spotifylib.ID(deviceID), false); err != nil {
		return classify(err)
	}
	return nil
}

// PlayTrack starts playback of the given track URI on the device.
func (c *Client) PlayTrack(ctx context.Context, accessToken, deviceID, trackURI string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	id := spotifylib.ID(deviceID)
	opts := &spotifylib.PlayOptions{
		DeviceID: &id,
		URIs:     []spotifylib.URI{spotifylib.URI(trackURI)},
	}
	if err := c.newAPI(ctx, accessToken).PlayOpt(ctx, opts); err != nil {
		return classify(err)
	}
	return nil
}

func firstImageURL(images []spotifylib.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

func artistNames(artists []spotifylib.SimpleArtist) string {
	names := make([]string, 0, len(artists))
	for _, artist := range artists {
		names = append(names, artist.Name)
	}
	return strings.Join(names, ", ")
}
