// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package apply

import (
	"fmt"
	"io/fs"
	"sort"

	"github.com/avasek/tailor/pkg/types"
)

// FilePreview pairs a file's current content with what applying the
// turn's edits would produce for it. Nothing is written.
type FilePreview struct {
	Path      string
	OldPath   string // pre-rename path, set only for renames
	Old       string // current content, empty for creations
	New       string // post-application content, empty for deletions
	Created   bool
	Deleted   bool
	Failure   error
	Intervals []types.Interval // replaced ranges in the old content, merged

	exists bool
}

// Changed reports whether application would alter the file at all.
func (p *FilePreview) Changed() bool {
	return p.Created || p.Deleted || p.OldPath != "" || p.Old != p.New
}

// Preview computes each touched file's post-application content in
// memory, mirroring Apply's ordering rules: file operations in list
// order, then replacements grouped per file and spliced bottom to top.
// Failures predicted here are the ones Apply would report.
func (a *Applier) Preview(edits []types.Edit) []*FilePreview {
	var order []*FilePreview
	previews := map[string]*FilePreview{}
	aliases := map[string]string{}

	ensure := func(path string) *FilePreview {
		if pv, ok := previews[path]; ok {
			return pv
		}
		pv := &FilePreview{Path: path}
		if content, err := a.fs.ReadFile(path); err == nil {
			pv.Old = content
			pv.New = content
			pv.exists = true
		}
		previews[path] = pv
		order = append(order, pv)
		return pv
	}

	for _, e := range edits {
		switch e.Kind {
		case types.KindCreation:
			pv := ensure(e.File)
			if pv.exists {
				pv.Failure = fmt.Errorf("creating %s: %w", e.File, fs.ErrExist)
				continue
			}
			pv.Created = true
			pv.exists = true
			pv.New = types.JoinLines(e.Lines)

		case types.KindDeletion:
			pv := ensure(e.File)
			if !pv.exists {
				pv.Failure = fmt.Errorf("deleting %s: %w", e.File, fs.ErrNotExist)
				continue
			}
			pv.Deleted = true
			pv.exists = false
			pv.New = ""

		case types.KindRename:
			pv := ensure(e.File)
			if !pv.exists {
				pv.Failure = fmt.Errorf("renaming %s to %s: %w", e.File, e.NewFile, fs.ErrNotExist)
				continue
			}
			if tpv, ok := previews[e.NewFile]; (ok && tpv.exists) || (!ok && a.fs.Exists(e.NewFile)) {
				pv.Failure = fmt.Errorf("renaming %s to %s: %w", e.File, e.NewFile, fs.ErrExist)
				continue
			}
			aliases[e.File] = e.NewFile
			pv.OldPath = e.File
			pv.Path = e.NewFile
			delete(previews, e.File)
			previews[e.NewFile] = pv
		}
	}

	groups, groupOrder := a.groupReplacements(edits, aliases)
	for _, path := range groupOrder {
		pv := ensure(path)
		switch {
		case pv.Failure != nil:
			continue
		case pv.Deleted:
			pv.Failure = fmt.Errorf("replacement targets %s after its deletion this turn", path)
		case !pv.exists:
			pv.Failure = fmt.Errorf("replacement target %s: %w", path, fs.ErrNotExist)
		default:
			previewFile(pv, path, groups[path])
		}
	}

	return order
}

// previewFile splices one file's replacements onto its virtual content.
func previewFile(pv *FilePreview, path string, edits []types.Edit) {
	lines := types.SplitLines(pv.New)

	sorted := append([]types.Edit(nil), edits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Interval.Start < sorted[j].Interval.Start
	})
	if err := validateIntervals(path, sorted, len(lines)); err != nil {
		pv.Failure = err
		return
	}

	var ivs []types.Interval
	for i := len(sorted) - 1; i >= 0; i-- {
		lines = types.SpliceLines(lines, sorted[i].Interval, sorted[i].Lines)
	}
	for _, e := range sorted {
		ivs = append(ivs, e.Interval)
	}

	pv.New = types.JoinLines(lines)
	pv.Intervals = types.MergeIntervals(ivs)
}
