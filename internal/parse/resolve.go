// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package parse

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/avasek/tailor/pkg/types"
)

// resolveHunk locates the hunk's context+deletion run in fileLines (the
// target file's current content, 0-based slice) and produces the finalized
// replacement edit. searchFrom is the 0-based index just past the previous
// hunk's resolved run; hunks arrive top-to-bottom, so among repeated
// occurrences the first one at or after searchFrom wins. hunkIdx is
// 1-based, for error reporting only.
//
// Matching is a two-stage ladder: exact line equality, then
// whitespace-insensitive equality. Repeated identical blocks can still
// resolve to the wrong occurrence; that is a documented best-effort limit
// of context addressing, not something this function papers over.
func resolveHunk(fileLines []string, h *hunk, searchFrom, hunkIdx int) (types.Edit, int, *ResolutionError) {
	match := h.matchLines()

	if len(match) == 0 {
		// No anchor at all. The only unambiguous target is an empty file,
		// where the hunk prepends its additions.
		if len(fileLines) > 0 {
			return types.Edit{}, 0, &ResolutionError{
				File:    h.file,
				Hunk:    hunkIdx,
				Message: "hunk has no context lines to locate it",
			}
		}
		iv := types.Interval{Start: 1, End: 1}
		edit, err := types.NewReplacement(h.file, iv, replacementLines(h, fileLines, 0))
		if err != nil {
			return types.Edit{}, 0, &ResolutionError{File: h.file, Hunk: hunkIdx, Message: err.Error()}
		}
		return edit, 0, nil
	}

	starts := findLineRuns(fileLines, match, func(s string) string { return s })
	if len(starts) == 0 {
		starts = findLineRuns(fileLines, match, normalizeLine)
	}
	if len(starts) == 0 {
		return types.Edit{}, 0, closestCandidateError(fileLines, match, h.file, hunkIdx)
	}

	start := nearestRun(starts, searchFrom)
	iv := types.Interval{Start: start + 1, End: start + len(match) + 1}
	edit, err := types.NewReplacement(h.file, iv, replacementLines(h, fileLines, start))
	if err != nil {
		return types.Edit{}, 0, &ResolutionError{File: h.file, Hunk: hunkIdx, Message: err.Error()}
	}
	return edit, start + len(match), nil
}

// findLineRuns returns every 0-based index where run matches fileLines
// contiguously under the given per-line normalization.
func findLineRuns(fileLines, run []string, norm func(string) string) []int {
	if len(run) == 0 || len(run) > len(fileLines) {
		return nil
	}
	normFile := make([]string, len(fileLines))
	for i, l := range fileLines {
		normFile[i] = norm(l)
	}
	normRun := make([]string, len(run))
	for i, l := range run {
		normRun[i] = norm(l)
	}

	var starts []int
	for i := 0; i+len(normRun) <= len(normFile); i++ {
		matched := true
		for j := range normRun {
			if normFile[i+j] != normRun[j] {
				matched = false
				break
			}
		}
		if matched {
			starts = append(starts, i)
		}
	}
	return starts
}

// nearestRun picks the occurrence for this hunk. starts is ascending, so
// the first entry at or after searchFrom is the closest forward match;
// matching behind searchFrom would land on a run an earlier hunk already
// claimed, so backward occurrences are only a fallback for hunks the model
// emitted out of file order.
func nearestRun(starts []int, searchFrom int) int {
	for _, s := range starts {
		if s >= searchFrom {
			return s
		}
	}
	return starts[len(starts)-1]
}

// replacementLines builds the hunk's resulting lines: context lines are
// taken from the file itself so whitespace-insensitive matches preserve the
// file's real indentation, additions come from the hunk.
func replacementLines(h *hunk, fileLines []string, start int) []string {
	var out []string
	runIdx := 0
	for _, l := range h.lines {
		switch l.op {
		case ' ':
			if start+runIdx < len(fileLines) {
				out = append(out, fileLines[start+runIdx])
			} else {
				out = append(out, l.text)
			}
			runIdx++
		case '-':
			runIdx++
		case '+':
			out = append(out, l.text)
		}
	}
	return out
}

// closestCandidateError builds the resolution error for an unmatched hunk,
// annotated with the most similar window of the file so the near miss is
// visible to the user.
func closestCandidateError(fileLines, match []string, file string, hunkIdx int) *ResolutionError {
	resErr := &ResolutionError{
		File:    file,
		Hunk:    hunkIdx,
		Message: "hunk context not found in current file content",
	}

	window := len(match)
	if window > len(fileLines) {
		window = len(fileLines)
	}
	if window == 0 {
		return resErr
	}

	search := strings.Join(match, "\n")
	var bestSim float64
	bestStart := -1
	for i := 0; i+window <= len(fileLines); i++ {
		candidate := strings.Join(fileLines[i:i+window], "\n")
		if sim := similarity(candidate, search); sim > bestSim {
			bestSim = sim
			bestStart = i
		}
	}
	if bestStart >= 0 {
		resErr.ClosestIv = types.Interval{Start: bestStart + 1, End: bestStart + window + 1}
		resErr.Similarity = bestSim
	}
	return resErr
}

// similarity computes the Levenshtein-based similarity ratio between two
// strings using the go-diff library. Returns a value between 0.0 and 1.0.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

// normalizeLine collapses runs of whitespace into single spaces and trims
// the ends, for whitespace-insensitive comparison.
func normalizeLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
