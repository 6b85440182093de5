// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avasek/tailor/pkg/types"
)

func TestStack_SaveLoadRoundTrip(t *testing.T) {
	s, a, fsys := newTestStack(t, map[string]string{"f.txt": "one\ntwo\n"})

	applyAndRecord(t, s, a, []types.Edit{replacement(t, "f.txt", 1, 2, "ONE")})
	applyAndRecord(t, s, a, []types.Edit{replacement(t, "f.txt", 2, 3, "TWO")})
	_, err := s.Undo()
	require.NoError(t, err)

	statePath := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, s.Save(statePath))

	// A fresh stack over the same tree picks up where the first left off.
	restored := NewStack(fsys, nil)
	require.NoError(t, restored.Load(statePath))

	undoDepth, redoDepth := restored.Depth()
	assert.Equal(t, 1, undoDepth)
	assert.Equal(t, 1, redoDepth)

	rep, err := restored.Undo()
	require.NoError(t, err)
	assert.True(t, rep.Clean())

	got, _ := fsys.ReadFile("f.txt")
	assert.Equal(t, "one\ntwo\n", got)
}

func TestStack_LoadMissingFileLeavesEmptyStack(t *testing.T) {
	s, _, _ := newTestStack(t, nil)

	require.NoError(t, s.Load(filepath.Join(t.TempDir(), "absent.json")))
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
}

func TestStack_LoadRejectsCorruptState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	s, _, _ := newTestStack(t, nil)
	assert.Error(t, s.Load(path))
}

func TestStack_LoadRejectsVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "undo": [], "redo": []}`), 0o644))

	s, _, _ := newTestStack(t, nil)
	assert.Error(t, s.Load(path))
}

func TestStack_SaveCreatesParentDirs(t *testing.T) {
	s, _, _ := newTestStack(t, nil)

	path := filepath.Join(t.TempDir(), "deep", "nested", "state.json")
	require.NoError(t, s.Save(path))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestStatePath_DistinctPerWorkDir(t *testing.T) {
	dataDir := t.TempDir()

	a := StatePath(dataDir, "/some/project")
	b := StatePath(dataDir, "/other/project")

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, StatePath(dataDir, "/some/project"))
	assert.Equal(t, filepath.Join(dataDir, "history"), filepath.Dir(a))
}

func TestStack_ReloadedUndoDetectsOutOfBand(t *testing.T) {
	s, a, fsys := newTestStack(t, map[string]string{"f.txt": "original\n"})

	applyAndRecord(t, s, a, []types.Edit{replacement(t, "f.txt", 1, 2, "applied")})

	statePath := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, s.Save(statePath))

	// The file changes between invocations.
	require.NoError(t, fsys.WriteFile("f.txt", "hand edited\n"))

	restored := NewStack(fsys, nil)
	require.NoError(t, restored.Load(statePath))

	rep, err := restored.Undo()
	require.NoError(t, err)
	assert.Equal(t, []string{"f.txt"}, rep.OutOfBand)

	got, _ := fsys.ReadFile("f.txt")
	assert.Equal(t, "original\n", got)
}
