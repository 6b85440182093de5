// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

// Package apply commits a finalized edit list to the working tree. File
// operations run in list order first; line replacements are then grouped
// per file, checked for overlap, and spliced bottom to top so line numbers
// stay valid as the file shrinks or grows. A failure on one file never
// blocks the others.
package apply

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"go.uber.org/zap"

	"github.com/avasek/tailor/pkg/types"
)

// ErrOverlap marks two replacements claiming the same lines of a file.
var ErrOverlap = errors.New("overlapping edits")

// ErrOutOfRange marks a replacement interval beyond the file's last line.
var ErrOutOfRange = errors.New("interval out of range")

// Snapshot is a file's pre-application state, captured before the first
// mutation of the turn so history can restore it.
type Snapshot struct {
	Path    string
	Existed bool
	Content string
}

// FileResult reports the outcome for one touched file. Failure is nil on
// success; Lines and Hash describe the post-application content.
type FileResult struct {
	Path    string // final path, after any rename this turn
	OldPath string // pre-rename path, set only for renames
	Failure error
	Edits   int // replacements applied
	Created bool
	Deleted bool
	Lines   int
	Hash    string
}

// Result is the outcome of applying one turn's edit list.
type Result struct {
	Files     []*FileResult
	Snapshots []Snapshot
	// Aliases records successful renames, old path to new path.
	Aliases map[string]string
}

// Failed returns the results that carry a failure.
func (r *Result) Failed() []*FileResult {
	var out []*FileResult
	for _, fr := range r.Files {
		if fr.Failure != nil {
			out = append(out, fr)
		}
	}
	return out
}

// Succeeded counts files whose operations all landed.
func (r *Result) Succeeded() int {
	return len(r.Files) - len(r.Failed())
}

// Snapshot returns the pre-application state recorded for path, if any.
func (r *Result) Snapshot(path string) (Snapshot, bool) {
	for _, s := range r.Snapshots {
		if s.Path == path {
			return s, true
		}
	}
	return Snapshot{}, false
}

// Applier applies edit lists through an FS. Construct one per working
// tree; Apply may be called once per turn.
type Applier struct {
	fs  FS
	log *zap.Logger
}

func NewApplier(fsys FS, log *zap.Logger) *Applier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Applier{fs: fsys, log: log}
}

// Apply commits edits to the working tree. Per-file failures are recorded
// in the Result rather than aborting the turn; the error return is
// reserved for an unusable edit list (nil applier state).
func (a *Applier) Apply(edits []types.Edit) *Result {
	res := &Result{Aliases: map[string]string{}}
	results := map[string]*FileResult{}
	snapped := map[string]bool{}

	ensure := func(path string) *FileResult {
		if fr, ok := results[path]; ok {
			return fr
		}
		fr := &FileResult{Path: path}
		results[path] = fr
		res.Files = append(res.Files, fr)
		return fr
	}

	// Capture every touched path before the first mutation.
	for _, e := range edits {
		a.snapshot(res, snapped, e.File)
		if e.Kind == types.KindRename {
			a.snapshot(res, snapped, e.NewFile)
		}
	}

	// File operations run first, in list order.
	for _, e := range edits {
		switch e.Kind {
		case types.KindCreation:
			fr := ensure(e.File)
			content := types.JoinLines(e.Lines)
			if err := a.fs.CreateFile(e.File, content); err != nil {
				fr.Failure = err
				continue
			}
			fr.Created = true
			fr.Lines = len(e.Lines)
			fr.Hash = ContentHash(content)

		case types.KindDeletion:
			fr := ensure(e.File)
			if err := a.fs.DeleteFile(e.File); err != nil {
				fr.Failure = err
				continue
			}
			fr.Deleted = true
			fr.Lines = 0
			fr.Hash = ""

		case types.KindRename:
			fr := ensure(e.File)
			if err := a.fs.RenameFile(e.File, e.NewFile); err != nil {
				fr.Failure = err
				continue
			}
			res.Aliases[e.File] = e.NewFile
			fr.OldPath = e.File
			fr.Path = e.NewFile
			delete(results, e.File)
			results[e.NewFile] = fr
		}
	}

	// Replacements are grouped under their post-rename target and applied
	// per file. A file whose operation already failed is skipped, so one
	// bad file never contaminates the rest of the turn.
	groups, order := a.groupReplacements(edits, res.Aliases)
	for _, path := range order {
		fr := ensure(path)
		switch {
		case fr.Failure != nil:
			continue
		case fr.Deleted:
			fr.Failure = fmt.Errorf("replacement targets %s after its deletion this turn", path)
		default:
			a.applyFile(fr, path, groups[path])
		}
	}

	a.log.Debug("edit list applied",
		zap.Int("files", len(res.Files)),
		zap.Int("failed", len(res.Failed())))
	return res
}

// groupReplacements buckets replacement edits by target path, retargeting
// through renames performed earlier this turn. order preserves first
// appearance.
func (a *Applier) groupReplacements(edits []types.Edit, aliases map[string]string) (map[string][]types.Edit, []string) {
	groups := map[string][]types.Edit{}
	var order []string
	for _, e := range edits {
		if e.Kind != types.KindReplacement {
			continue
		}
		path := resolveAlias(aliases, e.File)
		if _, ok := groups[path]; !ok {
			order = append(order, path)
		}
		groups[path] = append(groups[path], e)
	}
	return groups, order
}

// resolveAlias follows rename chains to the final path.
func resolveAlias(aliases map[string]string, path string) string {
	for range aliases {
		next, ok := aliases[path]
		if !ok {
			return path
		}
		path = next
	}
	return path
}

// applyFile applies one file's replacements bottom to top.
func (a *Applier) applyFile(fr *FileResult, path string, edits []types.Edit) {
	content, err := a.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fr.Failure = fmt.Errorf("target file %s vanished before application: %w", path, err)
		} else {
			fr.Failure = err
		}
		return
	}
	lines := types.SplitLines(content)

	sorted := append([]types.Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Interval.Start < sorted[j].Interval.Start
	})
	if err := validateIntervals(path, sorted, len(lines)); err != nil {
		fr.Failure = err
		return
	}

	// Bottom to top. Among edits at the same start line, later list
	// entries splice first so the final content reads in list order.
	for i := len(sorted) - 1; i >= 0; i-- {
		lines = types.SpliceLines(lines, sorted[i].Interval, sorted[i].Lines)
	}

	joined := types.JoinLines(lines)
	if err := a.fs.WriteFile(path, joined); err != nil {
		fr.Failure = err
		return
	}
	fr.Edits = len(edits)
	fr.Lines = len(lines)
	fr.Hash = ContentHash(joined)
}

// validateIntervals rejects spans past the file's end and overlapping
// pairs. Zero-width insertions at a span's boundary do not overlap it.
func validateIntervals(path string, sorted []types.Edit, fileLines int) error {
	for i, e := range sorted {
		if e.Interval.End > fileLines+1 {
			return fmt.Errorf("%w: %s exceeds %d-line file %s", ErrOutOfRange, e.Interval, fileLines, path)
		}
		for j := i + 1; j < len(sorted); j++ {
			if e.Interval.Overlaps(sorted[j].Interval) {
				return fmt.Errorf("%w: %s and %s both claim lines of %s",
					ErrOverlap, e.Interval, sorted[j].Interval, path)
			}
		}
	}
	return nil
}

// snapshot records path's pre-application state once per turn.
func (a *Applier) snapshot(res *Result, seen map[string]bool, path string) {
	if path == "" || seen[path] {
		return
	}
	seen[path] = true
	content, err := a.fs.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			a.log.Warn("snapshot read failed", zap.String("path", path), zap.Error(err))
		}
		res.Snapshots = append(res.Snapshots, Snapshot{Path: path})
		return
	}
	res.Snapshots = append(res.Snapshots, Snapshot{Path: path, Existed: true, Content: content})
}

// ContentHash returns the hex sha256 of content, used to detect
// out-of-band changes between apply and undo.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
