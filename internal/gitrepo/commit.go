// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package gitrepo

import (
	"fmt"

	"go.uber.org/zap"
)

// ChangeOp classifies how a turn touched a file.
type ChangeOp string

const (
	OpCreate ChangeOp = "create"
	OpEdit   ChangeOp = "edit"
	OpRename ChangeOp = "rename"
	OpDelete ChangeOp = "delete"
)

// Change describes one file touched by an applied turn. Path is the path
// after the turn; OldPath is set for renames.
type Change struct {
	Path    string
	OldPath string
	Op      ChangeOp
}

// AutoCommit stages exactly the changed files and commits them with a
// message generated from the task. Files the user touched out of band
// are never staged. No-op unless auto-commit is configured.
func (r *Repo) AutoCommit(changes []Change, task string) error {
	if r == nil || !r.cfg.AutoCommit {
		return nil
	}
	if len(changes) == 0 {
		return nil
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	for _, ch := range changes {
		// Staging a renamed file's old path records its removal.
		if ch.Op == OpRename && ch.OldPath != "" {
			if _, err := wt.Add(slashPath(ch.OldPath)); err != nil {
				return fmt.Errorf("staging %s: %w", ch.OldPath, err)
			}
		}
		if _, err := wt.Add(slashPath(ch.Path)); err != nil {
			return fmt.Errorf("staging %s: %w", ch.Path, err)
		}
	}

	msg := GenerateMessage(task, changes)
	if _, err := wt.Commit(msg, commitOptions()); err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	paths := make([]string, len(changes))
	for i, ch := range changes {
		paths[i] = ch.Path
	}
	r.log.Info("auto-committed applied edits", zap.Strings("files", paths))
	return nil
}
