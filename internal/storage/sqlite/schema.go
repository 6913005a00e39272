package sqlite

// Schema defines the SQLite database schema for working memory, episodic
// snapshots, and chat sessions.
const Schema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	title        TEXT NOT NULL,
	last_message TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_user ON chat_sessions(user_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS working_memory (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	timestamp  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_working_session ON working_memory(user_id, session_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_working_user ON working_memory(user_id, timestamp DESC);

CREATE TABLE IF NOT EXISTS episodic_snapshots (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_episodic_user ON episodic_snapshots(user_id, created_at DESC);
`
