package device

import "time"

// State is the lifecycle phase of the playback device handle.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateConnecting    State = "connecting"
	StateReady         State = "ready"
	StateOffline       State = "offline"
	StateFailed        State = "failed"
)

// RestrictionPremiumRequired is reported by the playback SDK when the
// account tier does not allow streaming.
const RestrictionPremiumRequired = "PREMIUM_REQUIRED"

// TrackInfo is the track portion of a device state snapshot.
type TrackInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ArtistName  string `json:"artist_name"`
	AlbumArtURL string `json:"album_art_url,omitempty"`
	URI         string `json:"uri"`
}

// Snapshot is the latest known playback state. Each snapshot replaces the
// previous one; no history is kept.
type Snapshot struct {
	Paused            bool       `json:"paused"`
	Track             *TrackInfo `json:"track,omitempty"`
	RestrictionReason string     `json:"restriction_reason,omitempty"`
	ReceivedAt        time.Time  `json:"received_at"`
}

// EventType identifies a device event forwarded to subscribers.
type EventType string

const (
	EventReady        EventType = "ready"
	EventNotReady     EventType = "not_ready"
	EventStateChanged EventType = "player_state_changed"
	EventInitError    EventType = "initialization_error"
	EventAuthError    EventType = "authentication_error"
	EventAccountError EventType = "account_error"
	EventPlayback     EventType = "playback_error"
)

// Event is delivered to subscribers in arrival order, at most once each.
type Event struct {
	Type     EventType
	DeviceID string
	Snapshot *Snapshot
	Message  string
}

// inboundMessage is the wire format the SDK host page sends upward.
type inboundMessage struct {
	Type         string     `json:"type"`
	DeviceID     string     `json:"device_id,omitempty"`
	Message      string     `json:"message,omitempty"`
	Paused       bool       `json:"paused,omitempty"`
	Track        *TrackInfo `json:"track,omitempty"`
	Restrictions []string   `json:"restrictions,omitempty"`
}

// outboundMessage is the wire format for commands sent down to the page.
type outboundMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token,omitempty"`
}
