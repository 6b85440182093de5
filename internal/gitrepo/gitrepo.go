// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

// Package gitrepo integrates the session with a git working tree: dirty
// handling at session start, reading file content at HEAD, optional
// auto-commits of applied turns, and drift detection between turns. The
// session treats git as optional; a nil *Repo disables every operation
// here without error.
package gitrepo

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"
)

const (
	authorName  = "tailor"
	authorEmail = "noreply@tailor"

	// trailer marks commits tailor created, so later invocations can tell
	// its commits from the user's.
	trailer = "Co-Authored-By: tailor <noreply@tailor>"

	dirtyCommitMsg = "tailor: save uncommitted changes before edits"
)

// ErrNoRepo is returned when the working directory is not inside a git
// repository.
var ErrNoRepo = errors.New("not a git repository")

// ErrDirtyWorktree is returned when uncommitted changes exist and the
// dirty policy is PolicyFail.
var ErrDirtyWorktree = errors.New("working tree has uncommitted changes")

// DirtyPolicy decides what a session does with uncommitted changes found
// at startup.
type DirtyPolicy string

const (
	PolicyFail   DirtyPolicy = "fail"   // refuse to run
	PolicyCommit DirtyPolicy = "commit" // commit them first, separately
	PolicyIgnore DirtyPolicy = "ignore" // proceed, edits stack on top
)

// ParseDirtyPolicy converts a configuration string into a DirtyPolicy.
func ParseDirtyPolicy(s string) (DirtyPolicy, error) {
	switch DirtyPolicy(s) {
	case PolicyFail, PolicyCommit, PolicyIgnore:
		return DirtyPolicy(s), nil
	case "":
		return PolicyIgnore, nil
	}
	return "", fmt.Errorf("unknown dirty policy %q (supported: fail, commit, ignore)", s)
}

// Config configures git integration.
type Config struct {
	WorkDir    string      // Repository working directory
	Dirty      DirtyPolicy // What to do with uncommitted changes at start
	AutoCommit bool        // Commit applied turns
}

// Repo wraps a go-git repository for the operations the session needs.
type Repo struct {
	repo *gogit.Repository
	cfg  Config
	log  *zap.Logger
}

// Open opens the repository containing the configured work directory.
// Returns ErrNoRepo when there is none; callers are expected to carry on
// with a nil *Repo in that case.
func Open(cfg Config, log *zap.Logger) (*Repo, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r, err := gogit.PlainOpenWithOptions(cfg.WorkDir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRepo, err)
	}
	return &Repo{repo: r, cfg: cfg, log: log}, nil
}

// Enabled reports whether git integration is active. Defined on a nil
// receiver so callers can hold a nil *Repo when no repository exists.
func (r *Repo) Enabled() bool {
	return r != nil
}

// IsDirty reports whether the working tree has uncommitted changes,
// staged or not.
func (r *Repo) IsDirty() (bool, error) {
	status, err := r.status()
	if err != nil {
		return false, err
	}
	return !status.IsClean(), nil
}

// HandleDirty applies the configured dirty policy at session start.
// PolicyCommit stages everything and commits it separately from the
// turn's own commit, so an undo never entangles the user's work with
// tailor's.
func (r *Repo) HandleDirty() error {
	dirty, err := r.IsDirty()
	if err != nil {
		return err
	}
	if !dirty {
		return nil
	}

	switch r.cfg.Dirty {
	case PolicyFail:
		return ErrDirtyWorktree
	case PolicyCommit:
		wt, err := r.repo.Worktree()
		if err != nil {
			return fmt.Errorf("getting worktree: %w", err)
		}
		if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
			return fmt.Errorf("staging dirty files: %w", err)
		}
		if _, err := wt.Commit(dirtyCommitMsg, commitOptions()); err != nil {
			return fmt.Errorf("committing dirty files: %w", err)
		}
		r.log.Info("committed pre-existing changes before editing")
		return nil
	}

	// PolicyIgnore and the zero value: proceed, edits stack on top.
	r.log.Debug("proceeding with dirty working tree")
	return nil
}

// FileAtHead returns a file's content at the HEAD commit. Missing from
// HEAD (untracked or newly created) is an error the caller can treat as
// "no committed baseline".
func (r *Repo) FileAtHead(path string) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("getting HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return "", fmt.Errorf("getting HEAD commit: %w", err)
	}
	f, err := commit.File(slashPath(path))
	if err != nil {
		return "", fmt.Errorf("%s at HEAD: %w", path, err)
	}
	return f.Contents()
}

// ModifiedSinceHead reports whether the worktree file differs from its
// HEAD version. Untracked files count as modified: there is no committed
// baseline under them. The status map only holds changed and untracked
// paths, so membership is the test.
func (r *Repo) ModifiedSinceHead(path string) bool {
	status, err := r.status()
	if err != nil {
		return false
	}
	_, present := status[slashPath(path)]
	return present
}

// StatusDigest returns a stable digest of the working tree status, used
// to detect out-of-band changes between capture points. Equal digests
// mean no tracked or untracked path changed state.
func (r *Repo) StatusDigest() (string, error) {
	status, err := r.status()
	if err != nil {
		return "", err
	}

	lines := make([]string, 0, len(status))
	for path, fs := range status {
		lines = append(lines, fmt.Sprintf("%s:%c%c", path, byte(fs.Staging), byte(fs.Worktree)))
	}
	sort.Strings(lines)

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:]), nil
}

// IsTailorCommit reports whether HEAD carries tailor's trailer. Used to
// warn when a history undo leaves a tailor commit stale.
func (r *Repo) IsTailorCommit() (bool, error) {
	head, err := r.repo.Head()
	if err != nil {
		return false, fmt.Errorf("getting HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return false, fmt.Errorf("getting commit: %w", err)
	}
	return strings.Contains(commit.Message, trailer), nil
}

func (r *Repo) status() (gogit.Status, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("getting status: %w", err)
	}
	return status, nil
}

func (r *Repo) lastCommitMessage() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", err
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return "", err
	}
	return commit.Message, nil
}

func (r *Repo) commitCount() (int, error) {
	iter, err := r.repo.Log(&gogit.LogOptions{})
	if err != nil {
		return 0, err
	}
	count := 0
	err = iter.ForEach(func(c *object.Commit) error {
		count++
		return nil
	})
	return count, err
}

// slashPath normalizes a workdir-relative path to the slash form go-git
// status and tree lookups use.
func slashPath(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}

func commitOptions() *gogit.CommitOptions {
	return &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  time.Now(),
		},
	}
}
