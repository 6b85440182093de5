// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import "fmt"

// EditKind identifies the variant of an Edit.
type EditKind int

const (
	KindReplacement EditKind = iota // Replace a line interval with new lines
	KindCreation                    // Create a new file
	KindDeletion                    // Delete an existing file
	KindRename                      // Rename a file
)

// String returns the human-readable name of the edit kind.
func (k EditKind) String() string {
	switch k {
	case KindReplacement:
		return "replacement"
	case KindCreation:
		return "creation"
	case KindDeletion:
		return "deletion"
	case KindRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Edit is the position-independent description of a single file mutation
// parsed from a model response. Edits are immutable value data once
// finalized; the one sanctioned exception is the second-pass interval
// rewrite on provisional diff hunks, which completes before the edit is
// published to the application engine.
type Edit struct {
	Kind     EditKind
	File     string   // Target path, relative to the working tree root
	NewFile  string   // Rename target (KindRename only)
	Interval Interval // Replaced line range (KindReplacement only)
	Lines    []string // Replacement lines, or initial content for a creation
}

// NewReplacement builds a replacement edit. An empty Lines slice deletes the
// interval; an insertion-point interval inserts before Interval.Start.
func NewReplacement(file string, iv Interval, lines []string) (Edit, error) {
	if file == "" {
		return Edit{}, fmt.Errorf("replacement edit: empty file path")
	}
	return Edit{Kind: KindReplacement, File: file, Interval: iv, Lines: lines}, nil
}

// NewCreation builds a file-creation edit with optional initial content.
func NewCreation(file string, lines []string) (Edit, error) {
	if file == "" {
		return Edit{}, fmt.Errorf("creation edit: empty file path")
	}
	return Edit{Kind: KindCreation, File: file, Lines: lines}, nil
}

// NewDeletion builds a file-deletion edit.
func NewDeletion(file string) (Edit, error) {
	if file == "" {
		return Edit{}, fmt.Errorf("deletion edit: empty file path")
	}
	return Edit{Kind: KindDeletion, File: file}, nil
}

// NewRename builds a rename edit.
func NewRename(file, newFile string) (Edit, error) {
	if file == "" || newFile == "" {
		return Edit{}, fmt.Errorf("rename edit: empty file path")
	}
	if file == newFile {
		return Edit{}, fmt.Errorf("rename edit: %s renamed to itself", file)
	}
	return Edit{Kind: KindRename, File: file, NewFile: newFile}, nil
}

// String renders a short description for logs and display.
func (e Edit) String() string {
	switch e.Kind {
	case KindReplacement:
		if e.Interval.IsInsertion() {
			return fmt.Sprintf("insert %s before line %d (%d lines)", e.File, e.Interval.Start, len(e.Lines))
		}
		return fmt.Sprintf("replace %s %s with %d lines", e.File, e.Interval, len(e.Lines))
	case KindCreation:
		return fmt.Sprintf("create %s", e.File)
	case KindDeletion:
		return fmt.Sprintf("delete %s", e.File)
	case KindRename:
		return fmt.Sprintf("rename %s -> %s", e.File, e.NewFile)
	default:
		return "unknown edit"
	}
}
