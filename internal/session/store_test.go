// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avasek/tailor/pkg/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(StoreConfig{
		Enabled: true,
		Path:    filepath.Join(t.TempDir(), "sessions.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreSessionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := &Session{
		Title:    "add a discount helper",
		Provider: "bedrock",
		Model:    "claude-x",
		WorkDir:  "/tmp/project",
	}
	require.NoError(t, store.Create(ctx, sess))
	require.NotEmpty(t, sess.ID)

	loaded, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "add a discount helper", loaded.Title)
	assert.Equal(t, "bedrock", loaded.Provider)
	assert.Equal(t, StatusActive, loaded.Status)
	assert.Zero(t, loaded.Turns)
}

func TestSQLiteStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.Get(context.Background(), "no-such-id")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSQLiteStoreMessageSequencing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := &Session{Provider: "bedrock", Model: "claude-x"}
	require.NoError(t, store.Create(ctx, sess))

	for _, content := range []string{"first", "second", "third"} {
		msg := &Message{Role: types.RoleUser, Content: content, Seq: -1}
		require.NoError(t, store.AddMessage(ctx, sess.ID, msg))
	}

	msgs, err := store.Messages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, want := range []string{"first", "second", "third"} {
		assert.Equal(t, i, msgs[i].Seq)
		assert.Equal(t, want, msgs[i].Content)
		assert.Equal(t, types.RoleUser, msgs[i].Role)
	}
}

func TestSQLiteStoreExplicitSequence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := &Session{Provider: "anthropic", Model: "claude-x"}
	require.NoError(t, store.Create(ctx, sess))

	require.NoError(t, store.AddMessage(ctx, sess.ID, &Message{Role: types.RoleUser, Content: "late", Seq: 5}))
	require.NoError(t, store.AddMessage(ctx, sess.ID, &Message{Role: types.RoleAssistant, Content: "after", Seq: -1}))

	msgs, err := store.Messages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, 5, msgs[0].Seq)
	assert.Equal(t, 6, msgs[1].Seq)
}

func TestSQLiteStoreRecordTurnAccumulates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess := &Session{Provider: "bedrock", Model: "claude-x"}
	require.NoError(t, store.Create(ctx, sess))

	require.NoError(t, store.RecordTurn(ctx, sess.ID, types.TokenUsage{InputTokens: 100, OutputTokens: 40}))
	require.NoError(t, store.RecordTurn(ctx, sess.ID, types.TokenUsage{InputTokens: 50, OutputTokens: 10}))
	require.NoError(t, store.SetStatus(ctx, sess.ID, StatusComplete))

	loaded, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 2, loaded.Turns)
	assert.Equal(t, 150, loaded.InputTokens)
	assert.Equal(t, 50, loaded.OutputTokens)
	assert.Equal(t, StatusComplete, loaded.Status)
}

func TestSQLiteStoreCustomPathCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "sessions.db")

	store, err := NewSQLiteStore(StoreConfig{Enabled: true, Path: path})
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestSQLiteStoreDefaultPathUnderXDG(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	store, err := NewSQLiteStore(DefaultStoreConfig())
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(filepath.Join(dataHome, "tailor", "sessions.db"))
	assert.NoError(t, err)
}

func TestSQLiteStoreMigratesLegacySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	seed := `
CREATE TABLE sessions (
    id TEXT PRIMARY KEY,
    title TEXT,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    workdir TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    seq INTEGER NOT NULL
);
INSERT INTO sessions (id, title, provider, model) VALUES ('legacy1', 'old session', 'bedrock', 'claude-x');
`
	_, err = db.Exec(seed)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	store, err := NewSQLiteStore(StoreConfig{Enabled: true, Path: path})
	require.NoError(t, err)
	defer store.Close()

	// The migration must have added the accounting columns.
	rows, err := store.db.Query("PRAGMA table_info(sessions)")
	require.NoError(t, err)
	defer rows.Close()

	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dflt sql.NullString
		require.NoError(t, rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk))
		cols[name] = true
	}
	require.NoError(t, rows.Err())
	assert.True(t, cols["status"])
	assert.True(t, cols["turns"])
	assert.True(t, cols["input_tokens"])
	assert.True(t, cols["output_tokens"])

	// The legacy row is still readable through the upgraded schema.
	loaded, err := store.Get(context.Background(), "legacy1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "old session", loaded.Title)
}

func TestSQLiteStoreReopenKeepsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	store, err := NewSQLiteStore(StoreConfig{Enabled: true, Path: path})
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), &Session{Provider: "bedrock", Model: "m"}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(StoreConfig{Enabled: true, Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	var version int
	require.NoError(t, reopened.db.QueryRow("SELECT version FROM schema_version").Scan(&version))
	assert.Equal(t, schemaVersion, version)
}

func TestNewStoreDisabled(t *testing.T) {
	store, err := NewStore(StoreConfig{Enabled: false})
	require.NoError(t, err)

	_, ok := store.(*NoopStore)
	assert.True(t, ok)

	sess := &Session{}
	require.NoError(t, store.Create(context.Background(), sess))
	assert.NotEmpty(t, sess.ID)
	require.NoError(t, store.Close())
}

func TestNewIDUnique(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "fix the bug", "fix the bug"},
		{"multiline", "fix the bug\nwith details", "fix the bug"},
		{"padded", "  spaced  ", "spaced"},
		{"long", strings.Repeat("a", 120), strings.Repeat("a", 97) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateTitle(tt.in))
		})
	}
}
