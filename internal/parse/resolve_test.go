// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avasek/tailor/pkg/types"
)

func TestFindLineRuns(t *testing.T) {
	file := []string{"a", "b", "c", "a", "b", "x"}

	assert.Equal(t, []int{0, 3}, findLineRuns(file, []string{"a", "b"}, identity))
	assert.Equal(t, []int{2}, findLineRuns(file, []string{"c"}, identity))
	assert.Nil(t, findLineRuns(file, []string{"missing"}, identity))
	assert.Nil(t, findLineRuns(file, nil, identity))
	assert.Nil(t, findLineRuns([]string{"a"}, []string{"a", "b"}, identity))
}

func identity(s string) string { return s }

func TestFindLineRuns_Normalized(t *testing.T) {
	file := []string{"\tif x :", "  done"}
	run := []string{"if x:", "done"}

	assert.Nil(t, findLineRuns(file, run, identity))
	// "if x :" and "if x:" stay distinct even normalized.
	assert.Nil(t, findLineRuns(file, run, normalizeLine))

	run = []string{"if  x :", "done"}
	assert.Equal(t, []int{0}, findLineRuns(file, run, normalizeLine))
}

func TestNearestRun(t *testing.T) {
	// First occurrence at or after searchFrom wins.
	assert.Equal(t, 4, nearestRun([]int{1, 4, 9}, 2))
	assert.Equal(t, 4, nearestRun([]int{1, 4, 9}, 4))
	assert.Equal(t, 1, nearestRun([]int{1, 4, 9}, 0))
	// Everything behind searchFrom: closest preceding occurrence.
	assert.Equal(t, 9, nearestRun([]int{1, 4, 9}, 12))
}

func TestResolveHunk_EmptyFile(t *testing.T) {
	h := &hunk{file: "empty.py", lines: []hunkLine{{op: '+', text: "first"}}}

	edit, next, resErr := resolveHunk(nil, h, 0, 1)
	require.Nil(t, resErr)
	assert.Equal(t, types.Interval{Start: 1, End: 1}, edit.Interval)
	assert.Equal(t, []string{"first"}, edit.Lines)
	assert.Equal(t, 0, next)
}

func TestResolveHunk_NoAnchorInNonEmptyFile(t *testing.T) {
	h := &hunk{file: "f.py", lines: []hunkLine{{op: '+', text: "orphan"}}}

	_, _, resErr := resolveHunk([]string{"content"}, h, 0, 3)
	require.NotNil(t, resErr)
	assert.Equal(t, 3, resErr.Hunk)
	assert.Contains(t, resErr.Message, "no context lines")
}

func TestResolveHunk_ClosestCandidateDiagnostic(t *testing.T) {
	file := []string{"def compute(x):", "    return x * 2", ""}
	h := &hunk{file: "calc.py", lines: []hunkLine{
		{op: ' ', text: "def compute(y):"},
		{op: '-', text: "    return y * 2"},
		{op: '+', text: "    return y * 3"},
	}}

	_, _, resErr := resolveHunk(file, h, 0, 1)
	require.NotNil(t, resErr)
	assert.Contains(t, resErr.Message, "not found")
	// The near miss at the top of the file is reported as the closest
	// candidate with a high similarity score.
	assert.Equal(t, types.Interval{Start: 1, End: 3}, resErr.ClosestIv)
	assert.Greater(t, resErr.Similarity, 0.8)
	assert.Less(t, resErr.Similarity, 1.0)
}

func TestReplacementLines_MixedOps(t *testing.T) {
	file := []string{"\tkeep one", "drop", "keep two"}
	h := &hunk{file: "f.py", lines: []hunkLine{
		{op: ' ', text: "keep one"},
		{op: '-', text: "drop"},
		{op: '+', text: "added"},
		{op: ' ', text: "keep two"},
	}}

	// Context comes back with the file's own whitespace, not the hunk's.
	got := replacementLines(h, file, 0)
	assert.Equal(t, []string{"\tkeep one", "added", "keep two"}, got)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("same", "same"))
	assert.Equal(t, 0.0, similarity("", "anything"))
	assert.InDelta(t, 0.75, similarity("abcd", "abcx"), 0.01)
}

func TestNormalizeLine(t *testing.T) {
	assert.Equal(t, "a b c", normalizeLine("  a\t\tb   c  "))
	assert.Equal(t, "", normalizeLine("   \t "))
}
