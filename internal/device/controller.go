package device

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrSocketNotAttached is returned when no SDK host page is connected.
	ErrSocketNotAttached = errors.New("playback device socket not attached")
	// ErrNoCredential is returned when connect is requested while signed out.
	ErrNoCredential = errors.New("no valid credential for device connect")
)

// TokenFunc supplies a fresh access token for the SDK connect handshake.
type TokenFunc func(ctx context.Context) (string, error)

// Controller owns the lifecycle of the single playback device handle. The
// browser page hosting the playback SDK attaches over one WebSocket; device
// events flow up, transport commands flow down.
//
// Exactly one connect attempt may be in flight: a connect request while one
// is pending is a no-op, so the handle count never exceeds one.
type Controller struct {
	mu sync.Mutex

	conn     *websocket.Conn
	state    State
	deviceID string
	lastErr  string
	snapshot *Snapshot

	connectPending bool

	// generation counts socket attachments. Events read from a socket of an
	// older generation are dropped, so a torn-down handle can never react to
	// a ready signal meant for its replacement.
	generation int

	listeners []func(Event)

	// onAuthError tears the session down when the SDK reports that the
	// credential is not trustworthy for streaming.
	onAuthError func(reason string)

	tokenFn TokenFunc
	logger  *log.Logger
	now     func() time.Time
}

// NewController creates a playback device controller.
func NewController(tokenFn TokenFunc, onAuthError func(reason string), logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		state:       StateUninitialized,
		tokenFn:     tokenFn,
		onAuthError: onAuthError,
		logger:      logger,
		now:         time.Now,
	}
}

// Subscribe registers a listener for device events. Events are delivered in
// arrival order, unfiltered and at most once each. Must be called during
// wiring, before any socket attaches.
func (c *Controller) Subscribe(listener func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listener)
}

// Attach registers a new socket from the SDK host page, replacing any
// previous one. The device stays Uninitialized until a connect is requested.
func (c *Controller) Attach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.generation++
	c.state = StateUninitialized
	c.deviceID = ""
	c.connectPending = false
	generation := c.generation
	c.mu.Unlock()

	c.logger.Printf("playback device socket attached")
	go c.readLoop(conn, generation)
}

// Connect asks the SDK to initialize the playback device using a fresh
// credential. A second request while one is pending is a no-op.
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connectPending || c.state == StateConnecting {
		c.mu.Unlock()
		return nil
	}
	if c.conn == nil {
		c.mu.Unlock()
		return ErrSocketNotAttached
	}
	c.connectPending = true
	c.mu.Unlock()

	token, err := c.tokenFn(ctx)
	if err != nil {
		c.mu.Lock()
		c.connectPending = false
		c.mu.Unlock()
		return ErrNoCredential
	}

	c.mu.Lock()
	if c.conn == nil {
		c.connectPending = false
		c.mu.Unlock()
		return ErrSocketNotAttached
	}
	c.state = StateConnecting
	c.lastErr = ""
	err = c.conn.WriteJSON(outboundMessage{Type: "connect", AccessToken: token})
	if err != nil {
		c.state = StateFailed
		c.lastErr = "failed to reach playback device"
		c.connectPending = false
	}
	c.mu.Unlock()
	return err
}

// Teardown releases the device handle and clears the event registration so a
// stale page cannot resurrect the old handle.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.WriteJSON(outboundMessage{Type: "disconnect"})
		c.conn.Close()
		c.conn = nil
	}
	c.generation++
	c.state = StateUninitialized
	c.deviceID = ""
	c.snapshot = nil
	c.connectPending = false
	c.logger.Printf("playback device handle released")
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DeviceID returns the bound device id, empty unless Ready or Offline.
func (c *Controller) DeviceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceID
}

// LastError returns the recorded failure reason, if any.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// LatestSnapshot returns the most recent playback state snapshot.
func (c *Controller) LatestSnapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return nil
	}
	copied := *c.snapshot
	return &copied
}

// TogglePlayPause flips play/pause via the device's native transport
// controls. No-op unless the device is Ready; no REST round trip.
func (c *Controller) TogglePlayPause() error {
	return c.sendTransport("toggle")
}

// SkipNext advances to the next track. No-op unless Ready.
func (c *Controller) SkipNext() error {
	return c.sendTransport("next")
}

// SkipPrevious returns to the previous track. No-op unless Ready.
func (c *Controller) SkipPrevious() error {
	return c.sendTransport("previous")
}

func (c *Controller) sendTransport(command string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady || c.conn == nil {
		return nil
	}
	return c.conn.WriteJSON(outboundMessage{Type: command})
}

func (c *Controller) readLoop(conn *websocket.Conn, generation int) {
	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			c.handleDisconnect(generation)
			return
		}
		c.handleMessage(msg, generation)
	}
}

func (c *Controller) handleMessage(msg inboundMessage, generation int) {
	c.mu.Lock()
	if generation != c.generation {
		// Stale socket; its registration was cleared.
		c.mu.Unlock()
		return
	}

	var event *Event
	switch msg.Type {
	case "ready":
		c.state = StateReady
		c.deviceID = msg.DeviceID
		c.connectPending = false
		c.lastErr = ""
		event = &Event{Type: EventReady, DeviceID: msg.DeviceID}
		c.logger.Printf("playback device ready (id: %s)", msg.DeviceID)

	case "not_ready":
		if c.state == StateReady {
			c.state = StateOffline
		}
		event = &Event{Type: EventNotReady, DeviceID: msg.DeviceID}
		c.logger.Printf("playback device went offline (id: %s)", msg.DeviceID)

	case "player_state_changed":
		snapshot := &Snapshot{
			Paused:     msg.Paused,
			Track:      msg.Track,
			ReceivedAt: c.now(),
		}
		if len(msg.Restrictions) > 0 {
			snapshot.RestrictionReason = msg.Restrictions[0]
		}
		c.snapshot = snapshot
		event = &Event{Type: EventStateChanged, DeviceID: c.deviceID, Snapshot: snapshot}

	case "initialization_error", "account_error":
		c.state = StateFailed
		c.connectPending = false
		c.lastErr = msg.Message
		eventType := EventInitError
		if msg.Type == "account_error" {
			eventType = EventAccountError
		}
		event = &Event{Type: eventType, Message: msg.Message}
		c.logger.Printf("playback device %s: %s", msg.Type, msg.Message)

	case "authentication_error":
		c.state = StateFailed
		c.connectPending = false
		c.lastErr = msg.Message
		event = &Event{Type: EventAuthError, Message: msg.Message}
		c.logger.Printf("playback device authentication error: %s", msg.Message)

	case "playback_error":
		c.lastErr = msg.Message
		event = &Event{Type: EventPlayback, Message: msg.Message}
		c.logger.Printf("playback error: %s", msg.Message)

	default:
		c.logger.Printf("unknown device message type: %s", msg.Type)
	}

	listeners := c.listeners
	authError := msg.Type == "authentication_error"
	c.mu.Unlock()

	if event != nil {
		for _, listener := range listeners {
			listener(*event)
		}
	}
	if authError && c.onAuthError != nil {
		// The SDK authenticates independently of the REST path, so a device
		// auth failure invalidates the whole session.
		c.onAuthError(msg.Message)
		c.Teardown()
	}
}

func (c *Controller) handleDisconnect(generation int) {
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return
	}

	c.conn = nil
	c.connectPending = false
	var event *Event
	switch c.state {
	case StateReady:
		c.state = StateOffline
		event = &Event{Type: EventNotReady, DeviceID: c.deviceID}
	case StateConnecting:
		c.state = StateFailed
		c.lastErr = "device connection lost during initialization"
		event = &Event{Type: EventInitError, Message: c.lastErr}
	}
	listeners := c.listeners
	c.mu.Unlock()

	c.logger.Printf("playback device socket disconnected")
	if event != nil {
		for _, listener := range listeners {
			listener(*event)
		}
	}
}
