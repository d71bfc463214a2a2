package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrSignedOut is returned when no session is active.
	ErrSignedOut = errors.New("no active session")
	// ErrRefreshDenied is returned when the auth provider rejects the
	// refresh token. The session is torn down; the user must sign in again.
	ErrRefreshDenied = errors.New("refresh denied by auth provider")
)

// RefreshProvider exchanges a refresh token for a fresh credential.
type RefreshProvider interface {
	Refresh(ctx context.Context, refreshToken string) (Credential, error)
}

// Session is a signed-in Spotify account.
type Session struct {
	ID          string
	SpotifyUser string
	Credential  Credential
	CreatedAt   time.Time
}

// Store owns the current session and its credential lifecycle. The hub hosts
// a single signed-in account at a time; a new sign-in replaces the previous
// session. Sessions persist to SQLite so a restart does not force re-auth.
type Store struct {
	mu       sync.Mutex
	repo     *Repository
	provider RefreshProvider
	logger   *log.Logger
	now      func() time.Time

	current *Session

	pruneCron *cron.Cron
}

// NewStore creates a session store backed by the given repository.
func NewStore(repo *Repository, provider RefreshProvider, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{
		repo:     repo,
		provider: provider,
		logger:   logger,
		now:      time.Now,
	}
}

// Restore loads the most recent persisted session, if any.
func (s *Store) Restore() error {
	sess, ok, err := s.repo.Latest()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	s.logger.Printf("session restored for %s", sess.SpotifyUser)
	return nil
}

// SignIn replaces any current session with the given one.
func (s *Store) SignIn(sess Session) error {
	s.mu.Lock()
	previous := s.current
	s.current = &sess
	s.mu.Unlock()

	if previous != nil && previous.ID != sess.ID {
		if err := s.repo.Delete(previous.ID); err != nil {
			s.logger.Printf("failed to remove replaced session: %v", err)
		}
	}
	return s.repo.Save(sess)
}

// SignOut discards the current session.
func (s *Store) SignOut() error {
	s.mu.Lock()
	current := s.current
	s.current = nil
	s.mu.Unlock()

	if current == nil {
		return nil
	}
	s.logger.Printf("session ended for %s", current.SpotifyUser)
	return s.repo.Delete(current.ID)
}

// Current returns a snapshot of the active session.
func (s *Store) Current() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// Matches reports whether the given session id identifies the active session.
func (s *Store) Matches(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.ID == id
}

// IsValid reports whether a credential is present and unexpired.
func (s *Store) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.Credential.Valid(s.now())
}

// Access returns a currently valid credential, refreshing at most once if the
// stored one has expired. A provider rejection tears the session down and
// surfaces ErrRefreshDenied; a transport failure leaves the session intact.
func (s *Store) Access(ctx context.Context) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Credential{}, ErrSignedOut
	}
	if s.current.Credential.Valid(s.now()) {
		return s.current.Credential, nil
	}

	refreshed, err := s.provider.Refresh(ctx, s.current.Credential.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrRefreshDenied) {
			s.logger.Printf("credential refresh denied for %s, tearing down session", s.current.SpotifyUser)
			stale := s.current
			s.current = nil
			if repoErr := s.repo.Delete(stale.ID); repoErr != nil {
				s.logger.Printf("failed to delete denied session: %v", repoErr)
			}
		}
		return Credential{}, err
	}

	s.current.Credential = refreshed
	if err := s.repo.Save(*s.current); err != nil {
		s.logger.Printf("failed to persist refreshed credential: %v", err)
	}
	return refreshed, nil
}

// Invalidate force-expires the current session. Used when the playback
// device reports an authentication error: the stored credential is no longer
// trustworthy for streaming even if its expiry has not elapsed.
func (s *Store) Invalidate(reason string) {
	s.mu.Lock()
	current := s.current
	s.current = nil
	s.mu.Unlock()

	if current == nil {
		return
	}
	s.logger.Printf("session invalidated (%s) for %s", reason, current.SpotifyUser)
	if err := s.repo.Delete(current.ID); err != nil {
		s.logger.Printf("failed to delete invalidated session: %v", err)
	}
}

// StartPruneJob schedules a sweep of stale persisted sessions.
func (s *Store) StartPruneJob(schedule string, ttl time.Duration) error {
	s.pruneCron = cron.New()
	_, err := s.pruneCron.AddFunc(schedule, func() {
		var keep string
		if current, ok := s.Current(); ok {
			keep = current.ID
		}
		pruned, err := s.repo.PruneOlderThan(s.now().Add(-ttl), keep)
		if err != nil {
			s.logger.Printf("session prune failed: %v", err)
			return
		}
		if pruned > 0 {
			s.logger.Printf("pruned %d stale sessions", pruned)
		}
	})
	if err != nil {
		return err
	}
	s.pruneCron.Start()
	return nil
}

// StopPruneJob stops the prune schedule.
func (s *Store) StopPruneJob() {
	if s.pruneCron != nil {
		s.pruneCron.Stop()
	}
}
