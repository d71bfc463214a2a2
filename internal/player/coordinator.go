package player

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/strefethen/spotify-hub-go/internal/apperrors"
	"github.com/strefethen/spotify-hub-go/internal/catalog"
	"github.com/strefethen/spotify-hub-go/internal/device"
	"github.com/strefethen/spotify-hub-go/internal/session"
)

// Catalog is the slice of the catalog client the coordinator drives.
type Catalog interface {
	ListPlaylists(ctx context.Context, accessToken string) ([]catalog.Playlist, error)
	ListPlaylistTracks(ctx context.Context, accessToken, playlistID string, limit int) ([]catalog.Track, error)
	TransferPlayback(ctx context.Context, accessToken, deviceID string) error
	PlayTrack(ctx context.Context, accessToken, deviceID, trackURI string) error
}

// Device is the slice of the device controller the coordinator drives.
type Device interface {
	State() device.State
	DeviceID() string
	TogglePlayPause() error
	SkipNext() error
	SkipPrevious() error
}

// CredentialSource yields a currently valid credential, refreshing at most
// once per detected expiry.
type CredentialSource interface {
	Access(ctx context.Context) (session.Credential, error)
}

// Coordinator sequences playback commands between the catalog, the device
// and the session, and translates failures into user-facing view state. It
// holds only transient references (the latest snapshot, a last-seen error);
// it never mutates the other components' state directly.
type Coordinator struct {
	mu sync.Mutex

	catalog  Catalog
	device   Device
	creds    CredentialSource
	signedIn func() bool
	signOut  func(reason string)

	trackLimit int
	logger     *log.Logger

	view        View
	subscribers map[int]chan View
	nextSubID   int
}

// NewCoordinator creates the playback coordinator.
func NewCoordinator(cat Catalog, dev Device, creds CredentialSource, signedIn func() bool, signOut func(reason string), trackLimit int, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{
		catalog:     cat,
		device:      dev,
		creds:       creds,
		signedIn:    signedIn,
		signOut:     signOut,
		trackLimit:  trackLimit,
		logger:      logger,
		view:        View{DeviceState: device.StateUninitialized},
		subscribers: make(map[int]chan View),
	}
}

// RefreshPlaylists fetches the user's playlists into the view.
func (c *Coordinator) RefreshPlaylists(ctx context.Context) ([]catalog.Playlist, error) {
	cred, err := c.creds.Access(ctx)
	if err != nil {
		return nil, c.credentialFailure(err)
	}

	playlists, err := c.catalog.ListPlaylists(ctx, cred.AccessToken)
	if err != nil {
		return nil, c.recordFailure(err)
	}

	c.mu.Lock()
	c.view.Playlists = playlists
	c.view.LastError = ""
	c.publishLocked()
	c.mu.Unlock()
	return playlists, nil
}

// SelectPlaylist marks the playlist as selected and fetches its tracks in
// the background. The fetch is tagged with the playlist id it was issued
// for; a late response for a deselected playlist is discarded.
func (c *Coordinator) SelectPlaylist(ctx context.Context, playlistID string) {
	c.mu.Lock()
	c.view.SelectedPlaylistID = playlistID
	c.view.Tracks = nil
	c.view.TracksLoading = true
	c.publishLocked()
	c.mu.Unlock()

	go c.fetchTracks(ctx, playlistID)
}

func (c *Coordinator) fetchTracks(ctx context.Context, playlistID string) {
	cred, err := c.creds.Access(ctx)
	if err != nil {
		c.applyTracks(playlistID, nil, c.credentialFailure(err))
		return
	}
	tracks, err := c.catalog.ListPlaylistTracks(ctx, cred.AccessToken, playlistID, c.trackLimit)
	if err != nil {
		err = c.recordFailure(err)
	}
	c.applyTracks(playlistID, tracks, err)
}

// applyTracks installs a completed track fetch, unless the selection moved
// on while the request was in flight.
func (c *Coordinator) applyTracks(playlistID string, tracks []catalog.Track, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.view.SelectedPlaylistID != playlistID {
		c.logger.Printf("discarding stale track fetch for playlist %s", playlistID)
		return
	}

	c.view.TracksLoading = false
	if err != nil {
		c.view.Tracks = nil
	} else {
		c.view.Tracks = tracks
	}
	c.publishLocked()
}

// TracksFor fetches a playlist's tracks without touching the selection.
// A non-positive limit falls back to the configured page size.
func (c *Coordinator) TracksFor(ctx context.Context, playlistID string, limit int) ([]catalog.Track, error) {
	if limit <= 0 {
		limit = c.trackLimit
	}
	cred, err := c.creds.Access(ctx)
	if err != nil {
		return nil, c.credentialFailure(err)
	}
	tracks, err := c.catalog.ListPlaylistTracks(ctx, cred.AccessToken, playlistID, limit)
	if err != nil {
		return nil, c.recordFailure(err)
	}
	return tracks, nil
}

// SelectTrack starts playback of the track on the current device. It issues,
// in strict order, a playback transfer to the device and then the play
// request; the play request is never attempted when the transfer failed.
// While a premium restriction is active the operation is rejected without
// contacting the network at all.
func (c *Coordinator) SelectTrack(ctx context.Context, trackURI string) error {
	c.mu.Lock()
	premiumBlocked := c.view.PremiumRequired
	c.mu.Unlock()

	if premiumBlocked {
		return apperrors.NewAppError(apperrors.ErrorCodePremiumRequired,
			"Playback requires a Spotify Premium subscription", 409, nil)
	}
	if c.device.State() != device.StateReady {
		return apperrors.NewAppError(apperrors.ErrorCodeDeviceNotReady,
			"Playback device is not ready", 409, nil)
	}
	deviceID := c.device.DeviceID()

	cred, err := c.creds.Access(ctx)
	if err != nil {
		return c.credentialFailure(err)
	}

	if err := c.catalog.TransferPlayback(ctx, cred.AccessToken, deviceID); err != nil {
		return c.recordFailure(err)
	}
	if err := c.catalog.PlayTrack(ctx, cred.AccessToken, deviceID, trackURI); err != nil {
		return c.recordFailure(err)
	}

	c.mu.Lock()
	c.view.LastError = ""
	c.publishLocked()
	c.mu.Unlock()
	return nil
}

// TogglePlayPause delegates to the device's native transport controls.
// No-op when no device is Ready.
func (c *Coordinator) TogglePlayPause() error { return c.device.TogglePlayPause() }

// SkipNext delegates to the device. No-op when no device is Ready.
func (c *Coordinator) SkipNext() error { return c.device.SkipNext() }

// SkipPrevious delegates to the device. No-op when no device is Ready.
func (c *Coordinator) SkipPrevious() error { return c.device.SkipPrevious() }

// OnDeviceEvent folds a device event into the view. Registered with the
// controller during wiring; events arrive one at a time, in order.
func (c *Coordinator) OnDeviceEvent(evt device.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.view.DeviceState = c.device.State()
	switch evt.Type {
	case device.EventReady:
		c.view.DeviceID = evt.DeviceID
		c.view.LastError = ""

	case device.EventNotReady:
		// Device id stays bound; the SDK may come back.

	case device.EventStateChanged:
		c.view.Snapshot = evt.Snapshot
		wasBlocked := c.view.PremiumRequired
		c.view.PremiumRequired = evt.Snapshot != nil && evt.Snapshot.RestrictionReason == device.RestrictionPremiumRequired
		if c.view.PremiumRequired {
			c.view.LastError = "Spotify Premium is required for playback"
		} else if wasBlocked {
			// Restriction cleared; absence of the field counts as lifted.
			c.view.LastError = ""
		}

	case device.EventInitError, device.EventAccountError:
		c.view.LastError = evt.Message

	case device.EventAuthError:
		// Session teardown is the controller's job; reflect it here.
		c.view = View{
			DeviceState: device.StateUninitialized,
			LastError:   "Spotify session is no longer valid, please sign in again",
		}

	case device.EventPlayback:
		c.view.LastError = evt.Message
	}

	c.publishLocked()
}

// HandleSignOut resets the view after the session ended.
func (c *Coordinator) HandleSignOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = View{DeviceState: device.StateUninitialized}
	c.publishLocked()
}

// CurrentView returns a snapshot of the view state.
func (c *Coordinator) CurrentView() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers a view-state subscriber. The channel receives the
// latest view after every change; slow consumers miss intermediate states
// but always converge on the newest one.
func (c *Coordinator) Subscribe() (int, <-chan View) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	ch := make(chan View, 8)
	c.subscribers[id] = ch
	ch <- c.snapshotLocked()
	return id, ch
}

// Unsubscribe removes a view-state subscriber.
func (c *Coordinator) Unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.subscribers[id]; ok {
		delete(c.subscribers, id)
		close(ch)
	}
}

// credentialFailure maps a credential store failure onto the error taxonomy
// and updates the view. RefreshDenied has already torn the session down.
func (c *Coordinator) credentialFailure(err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, session.ErrSignedOut):
		appErr = apperrors.NewUnauthorizedError("Not signed in", apperrors.ErrorCodeSignedOut)
	case errors.Is(err, session.ErrRefreshDenied):
		appErr = apperrors.NewUnauthorizedError("Spotify session expired, please sign in again", apperrors.ErrorCodeRefreshDenied)
	default:
		appErr = apperrors.NewUpstreamError(apperrors.ErrorCodeUpstreamUnavailable, "Could not refresh the Spotify credential")
	}

	c.mu.Lock()
	if errors.Is(err, session.ErrRefreshDenied) {
		c.view = View{DeviceState: device.StateUninitialized}
	}
	c.view.LastError = appErr.Message
	c.publishLocked()
	c.mu.Unlock()
	return appErr
}

// recordFailure surfaces a catalog failure in the view. Unauthorized means
// the credential was rejected upstream: the attempt is abandoned and the
// session invalidated. Everything else is reported and left retryable.
func (c *Coordinator) recordFailure(err error) error {
	appErr := apperrors.EnsureAppError(err)

	c.mu.Lock()
	c.view.LastError = appErr.Message
	c.publishLocked()
	c.mu.Unlock()

	if appErr.Code == apperrors.ErrorCodeUpstreamUnauthorized && c.signOut != nil {
		c.signOut("catalog rejected the access credential")
	}
	return appErr
}

// publishLocked fans the current view out to subscribers. Caller holds mu.
func (c *Coordinator) publishLocked() {
	c.view.SignedIn = c.signedIn()
	snapshot := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Subscriber is behind. Evict its oldest pending view so the
			// channel always holds the newest state.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

func (c *Coordinator) snapshotLocked() View {
	view := c.view
	view.SignedIn = c.signedIn()
	return view
}
