package db

const schemaSQL = `
-- ===========================================================================
-- SESSIONS
--
-- One row per signed-in Spotify account session. Tokens are replaced
-- wholesale on refresh; the row is deleted on sign-out or refresh denial.
-- ===========================================================================

CREATE TABLE IF NOT EXISTS sessions (
  session_id TEXT PRIMARY KEY,
  spotify_user TEXT NOT NULL,
  access_token TEXT NOT NULL,
  refresh_token TEXT NOT NULL,
  expires_at TEXT NOT NULL,
  created_at TEXT NOT NULL DEFAULT (datetime('now')),
  updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
`
