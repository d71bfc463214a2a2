package session

import (
	"database/sql"
	"fmt"
	"time"
)

// DBPair interface for dependency injection (matches db.DBPair).
type DBPair interface {
	Reader() *sql.DB
	Writer() *sql.DB
}

// Repository persists sessions to SQLite.
type Repository struct {
	reader *sql.DB
	writer *sql.DB
}

// NewRepository creates a session repository.
func NewRepository(dbPair DBPair) *Repository {
	return &Repository{
		reader: dbPair.Reader(),
		writer: dbPair.Writer(),
	}
}

// Save inserts or replaces the session row.
func (r *Repository) Save(sess Session) error {
	_, err := r.writer.Exec(`
		INSERT INTO sessions (session_id, spotify_user, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(session_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = datetime('now')`,
		sess.ID,
		sess.SpotifyUser,
		sess.Credential.AccessToken,
		sess.Credential.RefreshToken,
		sess.Credential.ExpiresAt.UTC().Format(time.RFC3339),
		sess.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes a session row.
func (r *Repository) Delete(id string) error {
	if _, err := r.writer.Exec(`DELETE FROM sessions WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Latest returns the most recently updated session, if one exists.
func (r *Repository) Latest() (Session, bool, error) {
	row := r.reader.QueryRow(`
		SELECT session_id, spotify_user, access_token, refresh_token, expires_at, created_at
		FROM sessions
		ORDER BY updated_at DESC
		LIMIT 1`)

	var sess Session
	var expiresAt, createdAt string
	err := row.Scan(&sess.ID, &sess.SpotifyUser, &sess.Credential.AccessToken, &sess.Credential.RefreshToken, &expiresAt, &createdAt)
	if err == sql.ErrNoRows {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("load session: %w", err)
	}

	if sess.Credential.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return Session{}, false, fmt.Errorf("parse expires_at: %w", err)
	}
	if sess.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Session{}, false, fmt.Errorf("parse created_at: %w", err)
	}
	return sess, true, nil
}

// PruneOlderThan deletes sessions not updated since the cutoff, keeping the
// active session regardless of age.
func (r *Repository) PruneOlderThan(cutoff time.Time, keepID string) (int64, error) {
	result, err := r.writer.Exec(`
		DELETE FROM sessions
		WHERE updated_at < ? AND session_id != ?`,
		cutoff.UTC().Format("2006-01-02 15:04:05"), keepID)
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return result.RowsAffected()
}
