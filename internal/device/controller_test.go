package device

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsPair upgrades one connection and hands both ends to the test.
func wsPair(t *testing.T) (server *websocket.Conn, client *websocket.Conn) {
	t.Helper()

	serverConns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	server = <-serverConns
	return server, client
}

func staticToken(token string) TokenFunc {
	return func(ctx context.Context) (string, error) { return token, nil }
}

func collectEvents(controller *Controller) <-chan Event {
	events := make(chan Event, 16)
	controller.Subscribe(func(evt Event) { events <- evt })
	return events
}

func waitEvent(t *testing.T, events <-chan Event, want EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-events:
			if evt.Type == want {
				return evt
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func readOutbound(t *testing.T, conn *websocket.Conn) outboundMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg outboundMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestConnectSendsFreshToken(t *testing.T) {
	serverConn, clientConn := wsPair(t)
	controller := NewController(staticToken("tok-1"), nil, nil)
	controller.Attach(serverConn)

	require.NoError(t, controller.Connect(context.Background()))
	assert.Equal(t, StateConnecting, controller.State())

	msg := readOutbound(t, clientConn)
	assert.Equal(t, "connect", msg.Type)
	assert.Equal(t, "tok-1", msg.AccessToken)
}

func TestConnectWithoutSocket(t *testing.T) {
	controller := NewController(staticToken("tok"), nil, nil)
	err := controller.Connect(context.Background())
	assert.ErrorIs(t, err, ErrSocketNotAttached)
}

func TestConnectWhilePendingIsNoOp(t *testing.T) {
	serverConn, clientConn := wsPair(t)

	var tokenCalls atomic.Int32
	release := make(chan struct{})
	controller := NewController(func(ctx context.Context) (string, error) {
		tokenCalls.Add(1)
		<-release
		return "tok", nil
	}, nil, nil)
	controller.Attach(serverConn)

	firstDone := make(chan error, 1)
	go func() { firstDone <- controller.Connect(context.Background()) }()

	// Wait until the first attempt is holding the pending flag.
	require.Eventually(t, func() bool { return tokenCalls.Load() == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, controller.Connect(context.Background()))
	assert.Equal(t, int32(1), tokenCalls.Load(), "second connect must not fetch a token")

	close(release)
	require.NoError(t, <-firstDone)

	msg := readOutbound(t, clientConn)
	assert.Equal(t, "connect", msg.Type)
}

func TestConnectTokenFailureResetsPending(t *testing.T) {
	serverConn, _ := wsPair(t)

	var tokenCalls atomic.Int32
	controller := NewController(func(ctx context.Context) (string, error) {
		tokenCalls.Add(1)
		return "", errors.New("signed out")
	}, nil, nil)
	controller.Attach(serverConn)

	require.ErrorIs(t, controller.Connect(context.Background()), ErrNoCredential)
	require.ErrorIs(t, controller.Connect(context.Background()), ErrNoCredential)
	assert.Equal(t, int32(2), tokenCalls.Load(), "a failed attempt must not leave connect pending")
}

func TestReadyEventBindsDevice(t *testing.T) {
	serverConn, clientConn := wsPair(t)
	controller := NewController(staticToken("tok"), nil, nil)
	events := collectEvents(controller)
	controller.Attach(serverConn)
	require.NoError(t, controller.Connect(context.Background()))

	require.NoError(t, clientConn.WriteJSON(map[string]any{
		"type": "ready", "device_id": "dev-1",
	}))

	evt := waitEvent(t, events, EventReady)
	assert.Equal(t, "dev-1", evt.DeviceID)
	assert.Equal(t, StateReady, controller.State())
	assert.Equal(t, "dev-1", controller.DeviceID())
}

func TestSnapshotsArriveInOrderAndLatestIsRetained(t *testing.T) {
	serverConn, clientConn := wsPair(t)
	controller := NewController(staticToken("tok"), nil, nil)
	events := collectEvents(controller)
	controller.Attach(serverConn)

	require.NoError(t, clientConn.WriteJSON(map[string]any{
		"type": "player_state_changed", "paused": true,
		"track": map[string]string{"name": "First", "uri": "spotify:track:1"},
	}))
	require.NoError(t, clientConn.WriteJSON(map[string]any{
		"type": "player_state_changed", "paused": false,
		"track": map[string]string{"name": "Second", "uri": "spotify:track:2"},
	}))

	first := waitEvent(t, events, EventStateChanged)
	require.NotNil(t, first.Snapshot)
	assert.Equal(t, "First", first.Snapshot.Track.Name)

	second := waitEvent(t, events, EventStateChanged)
	require.NotNil(t, second.Snapshot)
	assert.Equal(t, "Second", second.Snapshot.Track.Name)

	latest := controller.LatestSnapshot()
	require.NotNil(t, latest)
	assert.Equal(t, "Second", latest.Track.Name)
	assert.False(t, latest.Paused)
}

func TestRestrictionReasonCapturedFromSnapshot(t *testing.T) {
	serverConn, clientConn := wsPair(t)
	controller := NewController(staticToken("tok"), nil, nil)
	events := collectEvents(controller)
	controller.Attach(serverConn)

	require.NoError(t, clientConn.WriteJSON(map[string]any{
		"type": "player_state_changed", "paused": true,
		"restrictions": []string{RestrictionPremiumRequired},
	}))

	evt := waitEvent(t, events, EventStateChanged)
	require.NotNil(t, evt.Snapshot)
	assert.Equal(t, RestrictionPremiumRequired, evt.Snapshot.RestrictionReason)
}

func TestAuthErrorInvalidatesSessionAndReleasesHandle(t *testing.T) {
	serverConn, clientConn := wsPair(t)

	authReasons := make(chan string, 1)
	controller := NewController(staticToken("tok"), func(reason string) {
		authReasons <- reason
	}, nil)
	events := collectEvents(controller)
	controller.Attach(serverConn)

	require.NoError(t, clientConn.WriteJSON(map[string]any{
		"type": "authentication_error", "message": "token rejected",
	}))

	evt := waitEvent(t, events, EventAuthError)
	assert.Equal(t, "token rejected", evt.Message)

	select {
	case reason := <-authReasons:
		assert.Equal(t, "token rejected", reason)
	case <-time.After(2 * time.Second):
		t.Fatal("auth error callback never fired")
	}

	require.Eventually(t, func() bool {
		return controller.State() == StateUninitialized && controller.DeviceID() == ""
	}, 2*time.Second, 10*time.Millisecond, "handle must be released after auth error")
}

func TestStaleGenerationEventsAreDropped(t *testing.T) {
	controller := NewController(staticToken("tok"), nil, nil)
	events := collectEvents(controller)

	controller.mu.Lock()
	staleGeneration := controller.generation
	controller.generation++
	controller.mu.Unlock()

	controller.handleMessage(inboundMessage{Type: "ready", DeviceID: "ghost"}, staleGeneration)

	assert.Equal(t, StateUninitialized, controller.State())
	assert.Empty(t, controller.DeviceID())
	select {
	case evt := <-events:
		t.Fatalf("unexpected event from stale socket: %v", evt.Type)
	default:
	}
}

func TestDisconnectWhileReadyGoesOffline(t *testing.T) {
	serverConn, clientConn := wsPair(t)
	controller := NewController(staticToken("tok"), nil, nil)
	events := collectEvents(controller)
	controller.Attach(serverConn)

	require.NoError(t, clientConn.WriteJSON(map[string]any{
		"type": "ready", "device_id": "dev-1",
	}))
	waitEvent(t, events, EventReady)

	clientConn.Close()

	evt := waitEvent(t, events, EventNotReady)
	assert.Equal(t, "dev-1", evt.DeviceID)
	assert.Equal(t, StateOffline, controller.State())
}

func TestTransportIsNoOpUnlessReady(t *testing.T) {
	controller := NewController(staticToken("tok"), nil, nil)
	assert.NoError(t, controller.TogglePlayPause())
	assert.NoError(t, controller.SkipNext())
	assert.NoError(t, controller.SkipPrevious())
}

func TestTransportCommandsReachThePage(t *testing.T) {
	serverConn, clientConn := wsPair(t)
	controller := NewController(staticToken("tok"), nil, nil)
	events := collectEvents(controller)
	controller.Attach(serverConn)

	require.NoError(t, clientConn.WriteJSON(map[string]any{
		"type": "ready", "device_id": "dev-1",
	}))
	waitEvent(t, events, EventReady)

	require.NoError(t, controller.TogglePlayPause())
	assert.Equal(t, "toggle", readOutbound(t, clientConn).Type)

	require.NoError(t, controller.SkipNext())
	assert.Equal(t, "next", readOutbound(t, clientConn).Type)

	require.NoError(t, controller.SkipPrevious())
	assert.Equal(t, "previous", readOutbound(t, clientConn).Type)
}
