package session

import "context"

type contextKey string

const sessionKey contextKey = "session"

// WithSession stores the active session in the context.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// FromContext returns the session attached to the request, if present.
func FromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	value := ctx.Value(sessionKey)
	if value == nil {
		return Session{}, false
	}
	sess, ok := value.(Session)
	return sess, ok
}
