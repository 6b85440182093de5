// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package gitrepo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleDirty_CleanRepo(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := Open(Config{WorkDir: dir, Dirty: PolicyCommit}, zap.NewNop())
	require.NoError(t, err)

	// Clean repo: HandleDirty should be a no-op.
	require.NoError(t, repo.HandleDirty())

	// Commit count should still be 1 (only the initial commit).
	count, err := repo.commitCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHandleDirty_CommitsDirtyFiles(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := Open(Config{WorkDir: dir, Dirty: PolicyCommit}, zap.NewNop())
	require.NoError(t, err)

	// Create a dirty file.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dirty.go"), []byte("package main\n"), 0o644))

	require.NoError(t, repo.HandleDirty())

	// Should now be clean.
	dirty, err := repo.IsDirty()
	require.NoError(t, err)
	assert.False(t, dirty)

	// Commit count should be 2.
	count, err := repo.commitCount()
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// The dirty commit message should match the expected message.
	msg, err := repo.lastCommitMessage()
	require.NoError(t, err)
	assert.Equal(t, dirtyCommitMsg, msg)
}

func TestHandleDirty_FailPolicy(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := Open(Config{WorkDir: dir, Dirty: PolicyFail}, zap.NewNop())
	require.NoError(t, err)

	// Create a dirty file.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dirty.go"), []byte("package main\n"), 0o644))

	err = repo.HandleDirty()
	assert.ErrorIs(t, err, ErrDirtyWorktree)
}

func TestHandleDirty_IgnorePolicy(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := Open(Config{WorkDir: dir, Dirty: PolicyIgnore}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dirty.go"), []byte("package main\n"), 0o644))

	require.NoError(t, repo.HandleDirty())

	// Nothing committed; the tree stays dirty.
	dirty, err := repo.IsDirty()
	require.NoError(t, err)
	assert.True(t, dirty)

	count, err := repo.commitCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAutoCommit_StagesAndCommits(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := Open(Config{WorkDir: dir, AutoCommit: true}, zap.NewNop())
	require.NoError(t, err)

	// Create files that the assistant "changed".
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feature.go"), []byte("package main\n\nfunc Feature() {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "helper.go"), []byte("package main\n\nfunc Helper() {}\n"), 0o644))

	err = repo.AutoCommit([]Change{
		{Path: "feature.go", Op: OpCreate},
		{Path: "helper.go", Op: OpCreate},
	}, "Add a feature and helper")
	require.NoError(t, err)

	// Repo should be clean.
	dirty, err := repo.IsDirty()
	require.NoError(t, err)
	assert.False(t, dirty)

	msg, err := repo.lastCommitMessage()
	require.NoError(t, err)
	assert.Contains(t, msg, trailer)
	assert.Contains(t, msg, "feat:")
	assert.Contains(t, msg, "- feature.go")
}

func TestAutoCommit_OnlyStagesChangedFiles(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := Open(Config{WorkDir: dir, AutoCommit: true}, zap.NewNop())
	require.NoError(t, err)

	// Two new files, but only one belongs to the turn.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mine.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.go"), []byte("package main\n"), 0o644))

	err = repo.AutoCommit([]Change{{Path: "mine.go", Op: OpCreate}}, "Add mine file")
	require.NoError(t, err)

	// users.go is still uncommitted.
	dirty, err := repo.IsDirty()
	require.NoError(t, err)
	assert.True(t, dirty)

	msg, err := repo.lastCommitMessage()
	require.NoError(t, err)
	assert.NotContains(t, msg, "users.go")
}

func TestAutoCommit_DisabledIsNoop(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := Open(Config{WorkDir: dir, AutoCommit: false}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "feature.go"), []byte("package main\n"), 0o644))

	err = repo.AutoCommit([]Change{{Path: "feature.go", Op: OpCreate}}, "Add feature")
	require.NoError(t, err)

	// Should still be dirty since AutoCommit is disabled.
	dirty, err := repo.IsDirty()
	require.NoError(t, err)
	assert.True(t, dirty)

	count, err := repo.commitCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAutoCommit_StagesRenames(t *testing.T) {
	dir := initTestRepo(t)
	addFileAndCommit(t, dir, "old.go", "package main\n\nfunc Old() {}\n", "feat: add old")

	repo, err := Open(Config{WorkDir: dir, AutoCommit: true}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.Rename(filepath.Join(dir, "old.go"), filepath.Join(dir, "new.go")))

	err = repo.AutoCommit([]Change{{Path: "new.go", OldPath: "old.go", Op: OpRename}}, "Rename old to new")
	require.NoError(t, err)

	dirty, err := repo.IsDirty()
	require.NoError(t, err)
	assert.False(t, dirty)

	msg, err := repo.lastCommitMessage()
	require.NoError(t, err)
	assert.Contains(t, msg, "old.go -> new.go")
}

func TestAutoCommit_StagesDeletions(t *testing.T) {
	dir := initTestRepo(t)
	addFileAndCommit(t, dir, "doomed.go", "package main\n", "feat: add doomed")

	repo, err := Open(Config{WorkDir: dir, AutoCommit: true}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "doomed.go")))

	err = repo.AutoCommit([]Change{{Path: "doomed.go", Op: OpDelete}}, "Remove doomed file")
	require.NoError(t, err)

	dirty, err := repo.IsDirty()
	require.NoError(t, err)
	assert.False(t, dirty)

	msg, err := repo.lastCommitMessage()
	require.NoError(t, err)
	assert.Contains(t, msg, "Deleted:\n- doomed.go")
}

func TestAutoCommit_IntegrationWithHandleDirty(t *testing.T) {
	dir := initTestRepo(t)
	repo, err := Open(Config{WorkDir: dir, AutoCommit: true, Dirty: PolicyCommit}, zap.NewNop())
	require.NoError(t, err)

	// Create a pre-existing dirty file.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.go"), []byte("package main\n"), 0o644))

	// HandleDirty commits the dirty file.
	require.NoError(t, repo.HandleDirty())

	// Now simulate assistant work.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "turn.go"), []byte("package main\n\nfunc Turn() {}\n"), 0o644))

	err = repo.AutoCommit([]Change{{Path: "turn.go", Op: OpCreate}}, "Add turn function")
	require.NoError(t, err)

	// Should have 3 commits: initial, dirty save, turn commit.
	count, err := repo.commitCount()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Last commit should be a tailor commit.
	isTailor, err := repo.IsTailorCommit()
	require.NoError(t, err)
	assert.True(t, isTailor)
}
