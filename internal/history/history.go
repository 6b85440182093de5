// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

// Package history tracks applied turns for undo and redo. Each entry
// stores the edit list as applied, the pre-application snapshots of every
// mutated file, and the post-application content hashes used to detect
// out-of-band changes. Undoing restores snapshots; redoing replays the
// original edit list.
package history

import (
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/avasek/tailor/internal/apply"
	"github.com/avasek/tailor/pkg/types"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Entry is one successfully applied turn. Files whose application failed
// are excluded: nothing changed for them, so there is no inverse.
type Entry struct {
	At    time.Time
	Edits []types.Edit
	// Snapshots hold each mutated file's pre-application state, in
	// application order.
	Snapshots []apply.Snapshot
	// Hashes map each path to its expected post-application content hash.
	// An empty hash means the path should be absent.
	Hashes map[string]string
}

// Report describes what one undo changed, and what it found out of place.
type Report struct {
	Restored []string // files written back to their pre-turn content
	Removed  []string // files created by the turn, now deleted
	// OutOfBand lists files whose content no longer matched the entry's
	// recorded post-application state. Restoration proceeds anyway and may
	// discard those changes; callers must surface this.
	OutOfBand []string
	Failures  map[string]error
}

func (r *Report) merge(other *Report) {
	r.Restored = append(r.Restored, other.Restored...)
	r.Removed = append(r.Removed, other.Removed...)
	r.OutOfBand = append(r.OutOfBand, other.OutOfBand...)
	for path, err := range other.Failures {
		if r.Failures == nil {
			r.Failures = map[string]error{}
		}
		r.Failures[path] = err
	}
}

// Clean reports whether every restoration landed without failures.
func (r *Report) Clean() bool {
	return len(r.Failures) == 0
}

// Stack is one session's undo and redo state. It is not safe for
// concurrent use; the session processes turns sequentially.
type Stack struct {
	fs      apply.FS
	applier *apply.Applier
	log     *zap.Logger

	undo []*Entry
	redo []*Entry
}

func NewStack(fsys apply.FS, log *zap.Logger) *Stack {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stack{
		fs:      fsys,
		applier: apply.NewApplier(fsys, log),
		log:     log,
	}
}

// Record pushes a new entry built from an application result and clears
// the redo stack. Returns false when no file was successfully mutated, in
// which case nothing is recorded.
func (s *Stack) Record(edits []types.Edit, res *apply.Result) bool {
	touched := map[string]bool{}
	hashes := map[string]string{}
	for _, fr := range res.Files {
		if fr.Failure != nil {
			continue
		}
		if fr.Deleted {
			hashes[fr.Path] = ""
		} else {
			hashes[fr.Path] = fr.Hash
		}
		touched[fr.Path] = true
		if fr.OldPath != "" {
			hashes[fr.OldPath] = ""
			touched[fr.OldPath] = true
		}
	}
	if len(touched) == 0 {
		return false
	}

	var snaps []apply.Snapshot
	for _, snap := range res.Snapshots {
		if touched[snap.Path] {
			snaps = append(snaps, snap)
		}
	}

	s.undo = append(s.undo, &Entry{
		At:        time.Now(),
		Edits:     append([]types.Edit(nil), edits...),
		Snapshots: snaps,
		Hashes:    hashes,
	})
	s.redo = nil
	return true
}

func (s *Stack) CanUndo() bool { return len(s.undo) > 0 }
func (s *Stack) CanRedo() bool { return len(s.redo) > 0 }

// Depth returns the undo and redo stack sizes.
func (s *Stack) Depth() (int, int) {
	return len(s.undo), len(s.redo)
}

// Undo reverts the most recent turn and moves it to the redo stack.
func (s *Stack) Undo() (*Report, error) {
	if len(s.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	entry := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]

	rep := s.restore(entry)
	s.redo = append(s.redo, entry)
	return rep, nil
}

// Redo replays the most recently undone turn's edit list and moves its
// entry back to the undo stack. Per-file failures surface in the Result.
func (s *Stack) Redo() (*apply.Result, error) {
	if len(s.redo) == 0 {
		return nil, ErrNothingToRedo
	}
	entry := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]

	res := s.applier.Apply(entry.Edits)
	s.undo = append(s.undo, entry)
	return res, nil
}

// UndoAll unwinds the entire undo stack, newest first.
func (s *Stack) UndoAll() (*Report, error) {
	if len(s.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	total := &Report{}
	for len(s.undo) > 0 {
		rep, err := s.Undo()
		if err != nil {
			return total, err
		}
		total.merge(rep)
	}
	return total, nil
}

// restore puts every file of an entry back to its pre-turn state. Content
// that diverged from the recorded post-application hash is reported as out
// of band, then overwritten regardless: the warning is the contract, not a
// veto.
func (s *Stack) restore(entry *Entry) *Report {
	rep := &Report{}

	paths := make([]string, 0, len(entry.Hashes))
	for path := range entry.Hashes {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		want := entry.Hashes[path]
		got := ""
		if content, err := s.fs.ReadFile(path); err == nil {
			got = apply.ContentHash(content)
		}
		if got != want {
			rep.OutOfBand = append(rep.OutOfBand, path)
			s.log.Warn("file changed since it was applied, undo may discard edits",
				zap.String("path", path))
		}
	}

	for _, snap := range entry.Snapshots {
		if err := s.restoreSnapshot(snap); err != nil {
			if rep.Failures == nil {
				rep.Failures = map[string]error{}
			}
			rep.Failures[snap.Path] = err
			continue
		}
		if snap.Existed {
			rep.Restored = append(rep.Restored, snap.Path)
		} else {
			rep.Removed = append(rep.Removed, snap.Path)
		}
	}
	return rep
}

func (s *Stack) restoreSnapshot(snap apply.Snapshot) error {
	if !snap.Existed {
		if s.fs.Exists(snap.Path) {
			return s.fs.DeleteFile(snap.Path)
		}
		return nil
	}
	if s.fs.Exists(snap.Path) {
		return s.fs.WriteFile(snap.Path, snap.Content)
	}
	return s.fs.CreateFile(snap.Path, snap.Content)
}
