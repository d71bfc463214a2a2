package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation ID between the browser client and
// the hub. The host page echoes it back when reporting playback errors.
const RequestIDHeader = "x-request-id"

type requestIDKey struct{}

// RequestIDMiddleware tags each request with a correlation ID. A caller may
// supply its own via the header; otherwise one is minted. The ID is stored on
// the request context and echoed on the response so browser-side logs and hub
// logs can be matched up.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// GetRequestID returns the correlation ID tagged onto r, or "" when the
// request never passed through RequestIDMiddleware.
func GetRequestID(r *http.Request) string {
	if r == nil {
		return ""
	}
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}
