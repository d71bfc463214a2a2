package device

import (
	"errors"
	"net/http"

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

// RegisterRoutes wires device routes to the router.
func RegisterRoutes(router chi.Router, controller *Controller) {
	router.HandleFunc("/v1/device/socket", socketHandler(controller))
	router.Method(http.MethodGet, "/v1/device", api.Handler(statusHandler(controller)))
	router.Method(http.MethodPost, "/v1/device/connect", api.Handler(connectHandler(controller)))
	router.Method(http.MethodPost, "/v1/device/disconnect", api.Handler(disconnectHandler(controller)))
}

func socketHandler(controller *Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade failed - error already written to response
			return
		}
		controller.Attach(conn)
	}
}

func statusHandler(controller *Controller) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		return api.WriteResource(w, http.StatusOK, deviceResource(controller))
	}
}

func connectHandler(controller *Controller) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		if err := controller.Connect(r.Context()); err != nil {
			switch {
			case errors.Is(err, ErrSocketNotAttached):
				return apperrors.NewAppError(apperrors.ErrorCodeDeviceNotConnected, "Playback page is not connected", 409, nil)
			case errors.Is(err, ErrNoCredential):
				return apperrors.NewUnauthorizedError("Sign in before connecting the playback device", apperrors.ErrorCodeSignedOut)
			default:
				return apperrors.NewAppError(apperrors.ErrorCodeDeviceConnectFailed, "Failed to start playback device", 502, nil)
			}
		}
		return api.WriteAction(w, http.StatusAccepted, deviceResource(controller))
	}
}

func disconnectHandler(controller *Controller) api.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		controller.Teardown()
		return api.WriteAction(w, http.StatusOK, deviceResource(controller))
	}
}

func deviceResource(controller *Controller) map[string]any {
	resource := map[string]any{
		"object": "device",
		"state":  controller.State(),
	}
	if id := controller.DeviceID(); id != "" {
		resource["device_id"] = id
	}
	if lastErr := controller.LastError(); lastErr != "" {
		resource["last_error"] = lastErr
	}
	return resource
}
