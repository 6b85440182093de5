// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/avasek/tailor/pkg/types"
)

// Status records how a session ended.
type Status string

const (
	StatusActive      Status = "active"
	StatusComplete    Status = "complete"
	StatusInterrupted Status = "interrupted"
	StatusError       Status = "error"
)

// Session is one recorded conversation.
type Session struct {
	ID           string
	Title        string // first line of the first task, truncated
	Provider     string
	Model        string
	WorkDir      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Status       Status
	Turns        int
	InputTokens  int
	OutputTokens int
}

// Message is one transcript entry. Roles follow the LLM conversation;
// application summaries are recorded under RoleSystem.
type Message struct {
	ID        int64
	SessionID string
	Role      types.MessageRole
	Content   string
	CreatedAt time.Time
	Seq       int
}

// Store persists session transcripts.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	// AddMessage appends a message. A negative Seq allocates the next
	// sequence number atomically.
	AddMessage(ctx context.Context, sessionID string, msg *Message) error
	Messages(ctx context.Context, sessionID string) ([]Message, error)
	// RecordTurn accumulates one model round-trip's token usage.
	RecordTurn(ctx context.Context, id string, usage types.TokenUsage) error
	SetStatus(ctx context.Context, id string, status Status) error
	Close() error
}

// StoreConfig holds transcript storage settings.
type StoreConfig struct {
	Enabled bool   // Disabled swaps in a no-op store.
	Path    string // Database file; empty uses the default data dir.
}

// DefaultStoreConfig enables storage at the default location.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{Enabled: true}
}

// NewStore selects the store implementation for the configuration.
func NewStore(cfg StoreConfig) (Store, error) {
	if !cfg.Enabled {
		return &NoopStore{}, nil
	}
	return NewSQLiteStore(cfg)
}

// DataDir returns the tailor data directory, honoring XDG_DATA_HOME.
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "tailor"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "tailor"), nil
}

func dbPath(cfg StoreConfig) (string, error) {
	if cfg.Path != "" {
		return cfg.Path, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessions.db"), nil
}

// NewID returns a new random session identifier.
func NewID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(b)
}

// TruncateTitle reduces a task to a one-line session title.
func TruncateTitle(task string) string {
	task = strings.TrimSpace(task)
	if idx := strings.Index(task, "\n"); idx != -1 {
		task = task[:idx]
	}
	if len(task) > 100 {
		task = task[:97] + "..."
	}
	return task
}

// SQLiteStore implements Store on a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// schema is the full current schema. Fresh databases get this and start
// at schemaVersion; older databases reach it through migrations.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    title TEXT,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    workdir TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    status TEXT DEFAULT 'active',
    turns INTEGER DEFAULT 0,
    input_tokens INTEGER DEFAULT 0,
    output_tokens INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    role TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    seq INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_session_seq ON messages(session_id, seq);
`

// schemaVersion is the current schema version. Increment when adding a
// migration, and fold the change into the schema const as well.
const schemaVersion = 1

type migration struct {
	version     int
	description string
	up          func(db *sql.DB) error
}

// migrations upgrade databases created before a schema change. Fresh
// databases never run them; the schema const already carries everything.
var migrations = []migration{
	{
		// Databases from before per-session accounting lack the status
		// and token columns.
		version:     1,
		description: "add status and token accounting columns",
		up: func(db *sql.DB) error {
			stmts := []string{
				"ALTER TABLE sessions ADD COLUMN status TEXT DEFAULT 'active'",
				"ALTER TABLE sessions ADD COLUMN turns INTEGER DEFAULT 0",
				"ALTER TABLE sessions ADD COLUMN input_tokens INTEGER DEFAULT 0",
				"ALTER TABLE sessions ADD COLUMN output_tokens INTEGER DEFAULT 0",
			}
			for _, stmt := range stmts {
				if _, err := db.Exec(stmt); err != nil {
					if !isDuplicateColumnError(err) {
						return err
					}
				}
			}
			return nil
		},
	},
}

// NewSQLiteStore opens (or creates) the transcript database and brings
// its schema up to date.
func NewSQLiteStore(cfg StoreConfig) (*SQLiteStore, error) {
	path, err := dbPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolving database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// initSchema brings the database to the current schema version. The
// common case, an up-to-date database, costs a single SELECT.
func initSchema(db *sql.DB) error {
	var current int
	err := db.QueryRow("SELECT version FROM schema_version").Scan(&current)
	if err == nil && current >= schemaVersion {
		return nil
	}
	return initSchemaFull(db, err, current)
}

func initSchemaFull(db *sql.DB, versionErr error, current int) error {
	// A database with no version record is either fresh or predates
	// versioning. Probe before the base schema creates any tables: a
	// pre-versioning database already has sessions and must run every
	// migration, a fresh one gets the full schema and starts current.
	fresh := false
	if versionErr != nil {
		if versionErr != sql.ErrNoRows && !strings.Contains(versionErr.Error(), "no such table") {
			return fmt.Errorf("reading schema version: %w", versionErr)
		}
		var tables int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='sessions'").Scan(&tables)
		if err != nil {
			return fmt.Errorf("checking sessions table: %w", err)
		}
		fresh = tables == 0
	}

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating base schema: %w", err)
	}
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	if versionErr != nil {
		if fresh {
			current = schemaVersion
		} else {
			current = 0
		}
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", current); err != nil {
			return fmt.Errorf("recording initial version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := m.up(db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
		if _, err := db.Exec("UPDATE schema_version SET version = ?", m.version); err != nil {
			return fmt.Errorf("recording version %d: %w", m.version, err)
		}
	}
	return nil
}

func isDuplicateColumnError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}

// Create inserts a new session row, filling defaults for blank fields.
func (s *SQLiteStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = NewID()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = sess.CreatedAt
	}
	if sess.Status == "" {
		sess.Status = StatusActive
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, title, provider, model, workdir, created_at, updated_at, status, turns, input_tokens, output_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Title, sess.Provider, sess.Model, sess.WorkDir,
		sess.CreatedAt, sess.UpdatedAt, string(sess.Status),
		sess.Turns, sess.InputTokens, sess.OutputTokens)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID. A missing ID returns (nil, nil).
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, provider, model, workdir, created_at, updated_at, status, turns, input_tokens, output_tokens
		FROM sessions WHERE id = ?`, id)

	var sess Session
	var status sql.NullString
	err := row.Scan(&sess.ID, &sess.Title, &sess.Provider, &sess.Model, &sess.WorkDir,
		&sess.CreatedAt, &sess.UpdatedAt, &status,
		&sess.Turns, &sess.InputTokens, &sess.OutputTokens)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	if status.Valid {
		sess.Status = Status(status.String)
	}
	return &sess, nil
}

// AddMessage appends a message, allocating the sequence number inside a
// transaction when msg.Seq is negative. The unique index on
// (session_id, seq) backstops concurrent writers.
func (s *SQLiteStore) AddMessage(ctx context.Context, sessionID string, msg *Message) error {
	msg.SessionID = sessionID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if msg.Seq < 0 {
		var maxSeq sql.NullInt64
		err = tx.QueryRowContext(ctx,
			"SELECT MAX(seq) FROM messages WHERE session_id = ?", sessionID).Scan(&maxSeq)
		if err != nil {
			return fmt.Errorf("reading max sequence: %w", err)
		}
		if maxSeq.Valid {
			msg.Seq = int(maxSeq.Int64) + 1
		} else {
			msg.Seq = 0
		}
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO messages (session_id, role, content, created_at, seq)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, string(msg.Role), msg.Content, msg.CreatedAt, msg.Seq)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	msg.ID, _ = result.LastInsertId()

	if _, err := tx.ExecContext(ctx,
		"UPDATE sessions SET updated_at = ? WHERE id = ?", time.Now(), sessionID); err != nil {
		return fmt.Errorf("touching session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Messages returns a session's transcript in sequence order.
func (s *SQLiteStore) Messages(ctx context.Context, sessionID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, created_at, seq
		FROM messages
		WHERE session_id = ?
		ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var msg Message
		var role string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &msg.CreatedAt, &msg.Seq); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Role = types.MessageRole(role)
		out = append(out, msg)
	}
	return out, rows.Err()
}

// RecordTurn accumulates one model round-trip's token usage.
func (s *SQLiteStore) RecordTurn(ctx context.Context, id string, usage types.TokenUsage) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET
		       turns = turns + 1,
		       input_tokens = input_tokens + ?,
		       output_tokens = output_tokens + ?,
		       updated_at = ?
		WHERE id = ?`,
		usage.InputTokens, usage.OutputTokens, time.Now(), id)
	return err
}

// SetStatus records the session's terminal state.
func (s *SQLiteStore) SetStatus(ctx context.Context, id string, status Status) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now(), id)
	return err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
