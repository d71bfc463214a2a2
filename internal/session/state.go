package session

import (
	"context"
	"sync"
	"time"
)

// StateStore tracks pending OAuth state nonces issued by /v1/auth/login.
// A nonce is single-use and expires if the callback never arrives.
type StateStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
}

func NewStateStore(ttl time.Duration) *StateStore {
	return &StateStore{
		entries: make(map[string]time.Time),
		ttl:     ttl,
	}
}

// StartCleanup removes expired nonces periodically until the context is canceled.
func (store *StateStore) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				store.CleanupExpired()
			case <-ctx.Done():
				store.Clear()
				return
			}
		}
	}()
}

// CleanupExpired removes expired nonces.
func (store *StateStore) CleanupExpired() {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := time.Now()
	for state, createdAt := range store.entries {
		if now.Sub(createdAt) > store.ttl {
			delete(store.entries, state)
		}
	}
}

// Clear wipes all entries from the store.
func (store *StateStore) Clear() {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.entries = make(map[string]time.Time)
}

// Add records a freshly issued state nonce.
func (store *StateStore) Add(state string) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.entries[state] = time.Now()
}

// Consume removes the nonce and reports whether it was valid and unexpired.
func (store *StateStore) Consume(state string) bool {
	store.mu.Lock()
	defer store.mu.Unlock()

	createdAt, ok := store.entries[state]
	if !ok {
		return false
	}
	delete(store.entries, state)
	return time.Since(createdAt) <= store.ttl
}
