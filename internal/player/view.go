package player

import (
	"github.com/strefethen/spotify-hub-go/internal/catalog"
	"github.com/strefethen/spotify-hub-go/internal/device"
)

// View is the presentation state the UI renders from. It is rebuilt on
// every coordinator change and pushed whole to subscribers, so clients
// never have to merge deltas.
type View struct {
	SignedIn           bool               `json:"signed_in"`
	DeviceState        device.State       `json:"device_state"`
	DeviceID           string             `json:"device_id,omitempty"`
	Playlists          []catalog.Playlist `json:"playlists,omitempty"`
	SelectedPlaylistID string             `json:"selected_playlist_id,omitempty"`
	Tracks             []catalog.Track    `json:"tracks,omitempty"`
	TracksLoading      bool               `json:"tracks_loading,omitempty"`
	Snapshot           *device.Snapshot   `json:"snapshot,omitempty"`
	PremiumRequired    bool               `json:"premium_required,omitempty"`
	LastError          string             `json:"last_error,omitempty"`
}
