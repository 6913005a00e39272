package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/memovo/memovo/internal/storage"
	"github.com/memovo/memovo/pkg/types"
)

// Store implements the working memory, episodic memory, and session
// registry interfaces on a single SQLite database.
type Store struct {
	db *sql.DB
}

// New opens a SQLite database, configures WAL mode, and creates the schema.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Using a single open
	// connection serialises writes and avoids SQLITE_BUSY errors under
	// concurrent load. WAL mode lets readers proceed without blocking
	// the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

var (
	_ storage.WorkingMemoryStore  = (*Store)(nil)
	_ storage.EpisodicMemoryStore = (*Store)(nil)
	_ storage.SessionRegistry     = (*Store)(nil)
)

// --- WorkingMemoryStore ---

func (s *Store) Append(ctx context.Context, entry *types.WorkingMemoryEntry) (*types.WorkingMemoryEntry, error) {
	if entry.UserID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if !types.IsValidRole(entry.Role) {
		return nil, fmt.Errorf("invalid role: %q", entry.Role)
	}

	stored := *entry
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO working_memory (id, user_id, session_id, role, content, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.UserID, stored.SessionID, string(stored.Role), stored.Content, stored.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append working memory entry: %w", err)
	}
	return &stored, nil
}

func (s *Store) Get(ctx context.Context, id string) (*types.WorkingMemoryEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, session_id, role, content, timestamp
		FROM working_memory WHERE id = ?`, id)
	return scanWorkingEntry(row)
}

func (s *Store) ListBySession(ctx context.Context, userID, sessionID string) ([]*types.WorkingMemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, session_id, role, content, timestamp
		FROM working_memory
		WHERE user_id = ? AND session_id = ?
		ORDER BY timestamp ASC`, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list working memory: %w", err)
	}
	defer rows.Close()
	return collectWorkingEntries(rows)
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]*types.WorkingMemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, session_id, role, content, timestamp
		FROM working_memory
		WHERE user_id = ?
		ORDER BY timestamp DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list working memory: %w", err)
	}
	defer rows.Close()
	return collectWorkingEntries(rows)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM working_memory WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete working memory entry: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteBySession(ctx context.Context, userID, sessionID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM working_memory WHERE user_id = ? AND session_id = ?`, userID, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete session working memory: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func scanWorkingEntry(row *sql.Row) (*types.WorkingMemoryEntry, error) {
	var entry types.WorkingMemoryEntry
	var role string
	err := row.Scan(&entry.ID, &entry.UserID, &entry.SessionID, &role, &entry.Content, &entry.Timestamp)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan working memory entry: %w", err)
	}
	entry.Role = types.Role(role)
	return &entry, nil
}

func collectWorkingEntries(rows *sql.Rows) ([]*types.WorkingMemoryEntry, error) {
	var entries []*types.WorkingMemoryEntry
	for rows.Next() {
		var entry types.WorkingMemoryEntry
		var role string
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.SessionID, &role, &entry.Content, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan working memory entry: %w", err)
		}
		entry.Role = types.Role(role)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// --- EpisodicMemoryStore ---

func (s *Store) Create(ctx context.Context, userID string, payload *types.Snapshot) (*types.EpisodicSnapshot, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID is required")
	}
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot payload: %w", err)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot payload: %w", err)
	}

	now := time.Now().UTC()
	snapshot := &types.EpisodicSnapshot{
		ID:        uuid.NewString(),
		UserID:    userID,
		Snapshot:  *payload,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO episodic_snapshots (id, user_id, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		snapshot.ID, snapshot.UserID, string(payloadJSON), snapshot.CreatedAt, snapshot.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create episodic snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *Store) GetSnapshot(ctx context.Context, userID, id string) (*types.EpisodicSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, payload, created_at, updated_at
		FROM episodic_snapshots WHERE user_id = ? AND id = ?`, userID, id)
	return scanSnapshot(row.Scan)
}

func (s *Store) ListRecent(ctx context.Context, userID string, since time.Time) ([]*types.EpisodicSnapshot, error) {
	query := `
		SELECT id, user_id, payload, created_at, updated_at
		FROM episodic_snapshots
		WHERE user_id = ?`
	args := []any{userID}
	if !since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, since)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodic snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*types.EpisodicSnapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

func (s *Store) UpdateSnapshot(ctx context.Context, userID, id string, update storage.SnapshotUpdate) (*types.EpisodicSnapshot, error) {
	if update.Payload != nil {
		if err := update.Payload.Validate(); err != nil {
			return nil, fmt.Errorf("invalid snapshot payload: %w", err)
		}
		payloadJSON, err := json.Marshal(update.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal snapshot payload: %w", err)
		}

		result, err := s.db.ExecContext(ctx, `
			UPDATE episodic_snapshots SET payload = ?, updated_at = ?
			WHERE user_id = ? AND id = ?`,
			string(payloadJSON), time.Now().UTC(), userID, id,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update episodic snapshot: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return nil, storage.ErrNotFound
		}
	}
	return s.GetSnapshot(ctx, userID, id)
}

func (s *Store) DeleteSnapshot(ctx context.Context, userID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM episodic_snapshots WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete episodic snapshot: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanSnapshot(scan func(...any) error) (*types.EpisodicSnapshot, error) {
	var snapshot types.EpisodicSnapshot
	var payloadJSON string
	err := scan(&snapshot.ID, &snapshot.UserID, &payloadJSON, &snapshot.CreatedAt, &snapshot.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan episodic snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(payloadJSON), &snapshot.Snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot payload: %w", err)
	}
	return &snapshot, nil
}

// --- SessionRegistry ---

func (s *Store) Ensure(ctx context.Context, sessionID, userID, defaultTitle, lastMessage string) (*types.ChatSession, error) {
	if sessionID == "" || userID == "" {
		return nil, fmt.Errorf("session ID and user ID are required")
	}
	if defaultTitle == "" {
		defaultTitle = types.DefaultSessionTitle
	}

	now := time.Now().UTC()
	existing, err := s.GetSession(ctx, userID, sessionID)
	if err == storage.ErrNotFound {
		session := &types.ChatSession{
			ID:          sessionID,
			UserID:      userID,
			Title:       defaultTitle,
			LastMessage: lastMessage,
			UpdatedAt:   now,
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO chat_sessions (id, user_id, title, last_message, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			session.ID, session.UserID, session.Title, session.LastMessage, session.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat session: %w", err)
		}
		return session, nil
	}
	if err != nil {
		return nil, err
	}

	title := existing.Title
	// A leftover placeholder title from session pre-creation gets replaced
	// on first real message.
	if strings.EqualFold(strings.TrimSpace(title), types.DefaultSessionTitle) &&
		!strings.EqualFold(defaultTitle, types.DefaultSessionTitle) {
		title = defaultTitle
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE chat_sessions SET title = ?, last_message = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		title, lastMessage, now, userID, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh chat session: %w", err)
	}

	existing.Title = title
	existing.LastMessage = lastMessage
	existing.UpdatedAt = now
	return existing, nil
}

func (s *Store) GetSession(ctx context.Context, userID, sessionID string) (*types.ChatSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, last_message, updated_at
		FROM chat_sessions WHERE user_id = ? AND id = ?`, userID, sessionID)

	var session types.ChatSession
	err := row.Scan(&session.ID, &session.UserID, &session.Title, &session.LastMessage, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan chat session: %w", err)
	}
	return &session, nil
}

func (s *Store) ListSessions(ctx context.Context, userID string) ([]*types.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, last_message, updated_at
		FROM chat_sessions
		WHERE user_id = ?
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*types.ChatSession
	for rows.Next() {
		var session types.ChatSession
		if err := rows.Scan(&session.ID, &session.UserID, &session.Title, &session.LastMessage, &session.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat session: %w", err)
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}

func (s *Store) UpdateSession(ctx context.Context, userID, sessionID string, update storage.SessionUpdate) (*types.ChatSession, error) {
	var sets []string
	var args []any
	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.LastMessage != nil {
		sets = append(sets, "last_message = ?")
		args = append(args, *update.LastMessage)
	}
	if update.UpdatedAt != nil {
		sets = append(sets, "updated_at = ?")
		args = append(args, *update.UpdatedAt)
	}
	if len(sets) == 0 {
		return s.GetSession(ctx, userID, sessionID)
	}

	args = append(args, userID, sessionID)
	result, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET `+strings.Join(sets, ", ")+` WHERE user_id = ? AND id = ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update chat session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, storage.ErrNotFound
	}
	return s.GetSession(ctx, userID, sessionID)
}

func (s *Store) DeleteSession(ctx context.Context, userID, sessionID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM chat_sessions WHERE user_id = ? AND id = ?`, userID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete chat session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	if _, err := s.DeleteBySession(ctx, userID, sessionID); err != nil {
		return err
	}
	return nil
}
