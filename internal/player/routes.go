package player

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/strefethen/spotify-hub-go/internal/api"
	"github.com/strefethen/spotify-hub-go/internal/apperrors"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Session middleware already gated this route.
		return true
	},
}

// RegisterRoutes wires playlist and playback routes to the router.
func RegisterRoutes(router chi.Router, coordinator *Coordinator, logger *log.Logger) {
	router.Method(http.MethodGet, "/v1/playlists", api.Handler(listPlaylistsHandler(coordinator)))
	router.Method(http.MethodGet, "/v1/playlists/{playlistID}/tracks", api.Handler(listTracksHandler(coordinator)))
	router.Method(http.MethodPost, "/v1/playlists/{playlistID}/select", api.Handler(selectPlaylistHandler(coordinator)))

	router.Method(http.MethodGet, "/v1/player/state", api.Handler(stateHandler(coordinator)))
	router.Method(http.MethodPost, "/v1/player/select", api.Handler(selectTrackHandler(coordinator)))
	router.Method(http.MethodPost, "/v1/player/toggle", api.Handler(transportHandler(coordinator, (*Coordinator).TogglePlayPause)))
	router.Method(http.MethodPost, "/v1/player/next", api.Handler(transportHandler(coordinator, (*Coordinator).SkipNext)))
	router.Method(http.MethodPost, "/v1/player/previous", api.Handler(transportHandler(coordinator, (*Coordinator).SkipPrevious)))

	router.HandleFunc("/v1/player/events", eventsHandler(coordinator, logger))
}

func listPlaylistsHandler(coordinator *Coordinator) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		playlists, err := coordinator.RefreshPlaylists(r.Context())
		if err != nil {
			return err
		}
		return api.WriteList(w, r.URL.Path, playlists, false)
	}
}

func listTracksHandler(coordinator *Coordinator) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		playlistID := chi.URLParam(r, "playlistID")
		if playlistID == "" {
			return apperrors.NewValidationError("Playlist id is required", nil)
		}
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 100 {
				return apperrors.NewValidationError("limit must be an integer between 1 and 100", nil)
			}
			limit = parsed
		}
		tracks, err := coordinator.TracksFor(r.Context(), playlistID, limit)
		if err != nil {
			return err
		}
		return api.WriteList(w, r.URL.Path, tracks, false)
	}
}

func selectPlaylistHandler(coordinator *Coordinator) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		playlistID := chi.URLParam(r, "playlistID")
		if playlistID == "" {
			return apperrors.NewValidationError("Playlist id is required", nil)
		}
		// Track fetch continues after this response is written.
		coordinator.SelectPlaylist(context.WithoutCancel(r.Context()), playlistID)
		return api.WriteAction(w, http.StatusAccepted, map[string]string{
			"selected_playlist_id": playlistID,
		})
	}
}

func stateHandler(coordinator *Coordinator) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteResource(w, http.StatusOK, coordinator.CurrentView())
	}
}

type selectTrackRequest struct {
	TrackURI string `json:"track_uri"`
}

func selectTrackHandler(coordinator *Coordinator) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req selectTrackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return apperrors.NewValidationError("Invalid request body", nil)
		}
		req.TrackURI = strings.TrimSpace(req.TrackURI)
		if !strings.HasPrefix(req.TrackURI, "spotify:track:") {
			return apperrors.NewValidationError("track_uri must be a spotify:track: URI", nil)
		}
		if err := coordinator.SelectTrack(r.Context(), req.TrackURI); err != nil {
			return err
		}
		return api.WriteAction(w, http.StatusOK, map[string]string{"playing": req.TrackURI})
	}
}

func transportHandler(coordinator *Coordinator, op func(*Coordinator) error) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		if err := op(coordinator); err != nil {
			return apperrors.NewAppError(apperrors.ErrorCodePlaybackFailed, "Playback command failed", 502, nil)
		}
		return api.WriteAction(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// eventsHandler streams view-state updates to the UI over a websocket.
// Each update is the whole view, so a client that joins late or misses a
// frame is still consistent after the next one.
func eventsHandler(coordinator *Coordinator, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		id, updates := coordinator.Subscribe()
		defer coordinator.Unsubscribe(id)

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case view, ok := <-updates:
				if !ok {
					conn.Close()
					return
				}
				if err := conn.WriteJSON(view); err != nil {
					logger.Printf("player events write failed: %v", err)
					conn.Close()
					return
				}
			case <-done:
				conn.Close()
				return
			}
		}
	}
}
