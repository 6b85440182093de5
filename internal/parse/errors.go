// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package parse

import (
	"errors"
	"fmt"

	"github.com/avasek/tailor/pkg/types"
)

// ErrNoEdits indicates the stream completed without a single parseable edit.
var ErrNoEdits = errors.New("no edits found in response")

// LexError records a malformed construct in the wire text: bad header JSON,
// an unknown directive, a non-integer line number. It is scoped to a single
// edit; the stream continues past it.
type LexError struct {
	Format  types.Format
	Line    int    // 1-indexed line in the response stream (0 when not line-oriented)
	Snippet string // Offending text, truncated for display
	Message string
}

func (e *LexError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s format, line %d: %s", e.Format, e.Line, e.Message)
	}
	return fmt.Sprintf("%s format: %s", e.Format, e.Message)
}

// ResolutionError records a diff hunk whose context could not be located in
// the current file content. It is scoped to one hunk; other hunks and files
// still proceed.
type ResolutionError struct {
	File       string
	Hunk       int // 1-based index of the hunk within its file
	Message    string
	ClosestIv  types.Interval // Best near-miss location, zero when none found
	Similarity float64        // Similarity of the near miss (0 when none)
}

func (e *ResolutionError) Error() string {
	if e.Similarity > 0 {
		return fmt.Sprintf("%s hunk %d: %s (closest candidate at %s, similarity %.2f)",
			e.File, e.Hunk, e.Message, e.ClosestIv, e.Similarity)
	}
	return fmt.Sprintf("%s hunk %d: %s", e.File, e.Hunk, e.Message)
}

// truncateSnippet keeps error annotations readable when the offending text
// is long.
func truncateSnippet(s string) string {
	const limit = 120
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
