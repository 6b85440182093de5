// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avasek/tailor/pkg/types"
)

func TestNewLexer_UnknownFormat(t *testing.T) {
	_, err := NewLexer(types.Format("carrier-pigeon"))
	assert.Error(t, err)
}

func TestLex_CRLFLineEndings(t *testing.T) {
	response := "@ a.py starting_line=1 ending_line=2\r\nwindows line\r\n@\r\n"
	p := newTestParser(t, types.FormatReplacement, nil)
	p.Feed(response)
	out := p.Finish()

	require.Len(t, out.Edits, 1)
	assert.Equal(t, []string{"windows line"}, out.Edits[0].Lines)
}

func TestLex_BlockRestartDiscardsOpenBlock(t *testing.T) {
	// A second @@start before @@end means the model abandoned the first
	// block mid-way; the open block is dropped and parsing restarts.
	response := `@@start
{"file": "a.py", "action": "replace", "start-line": 1, "end-line": 1}
@@code
abandoned
@@start
{"file": "b.py", "action": "replace", "start-line": 2, "end-line": 2}
@@code
kept
@@end
`
	p := newTestParser(t, types.FormatBlock, nil)
	p.Feed(response)
	out := p.Finish()

	require.Len(t, out.Edits, 1)
	assert.Equal(t, "b.py", out.Edits[0].File)
	require.Len(t, out.LexErrors, 1)
	assert.Equal(t, 1, out.BlocksDiscarded)
}

func TestLex_UdiffDanglingOldHeaderIsCommentary(t *testing.T) {
	// "--- " narration that is never followed by "+++" replays as plain
	// commentary instead of opening a file.
	response := "--- this is just a separator\nsome prose\n"
	p := newTestParser(t, types.FormatUnifiedDiff, mapReader{})
	p.Feed(response)
	out := p.Finish()

	assert.Empty(t, out.Edits)
	assert.Contains(t, out.Commentary, "--- this is just a separator")
	assert.Contains(t, out.Commentary, "some prose")
}

func TestLex_UdiffMissingTrailingEndMarker(t *testing.T) {
	// Models routinely omit the final "@@ end @@"; the open hunk closes at
	// end of stream.
	reader := mapReader{"a.py": "one\ntwo\n"}
	response := `--- a.py
+++ a.py
@@ @@
 one
-two
+TWO
`
	p := newTestParser(t, types.FormatUnifiedDiff, reader)
	p.Feed(response)
	out := p.Finish()

	require.Empty(t, out.LexErrors)
	require.Len(t, out.Edits, 1)
	assert.Equal(t, []string{"one", "TWO"}, out.Edits[0].Lines)
}

func TestLex_UdiffUnknownBodyPrefixDiscardsHunk(t *testing.T) {
	reader := mapReader{"a.py": "one\ntwo\nthree\n"}
	response := `--- a.py
+++ a.py
@@ @@
 one
* not a diff line
-two
@@ @@
 three
+four
@@ end @@
`
	p := newTestParser(t, types.FormatUnifiedDiff, reader)
	p.Feed(response)
	out := p.Finish()

	require.Len(t, out.LexErrors, 1)
	// The broken hunk is swallowed; the next one still lands.
	require.Len(t, out.Edits, 1)
	assert.Equal(t, types.Interval{Start: 3, End: 4}, out.Edits[0].Interval)
	assert.Equal(t, []string{"three", "four"}, out.Edits[0].Lines)
}

func TestLex_UdiffBothDevNullRejected(t *testing.T) {
	response := "--- /dev/null\n+++ /dev/null\n@@ end @@\n"
	p := newTestParser(t, types.FormatUnifiedDiff, mapReader{})
	p.Feed(response)
	out := p.Finish()

	assert.Empty(t, out.Edits)
	require.Len(t, out.LexErrors, 1)
}

func TestLex_UnrecognizedLinesOutsideBlocksAreCommentary(t *testing.T) {
	response := "random prose line\n@@almost a marker\n  indented text\n"
	p := newTestParser(t, types.FormatBlock, nil)
	p.Feed(response)
	out := p.Finish()

	assert.Empty(t, out.Edits)
	assert.Empty(t, out.LexErrors)
	assert.Contains(t, out.Commentary, "random prose line")
	assert.Contains(t, out.Commentary, "@@almost a marker")
}

func TestLex_PartialLineBufferedAcrossChunks(t *testing.T) {
	p := newTestParser(t, types.FormatReplacement, nil)
	p.Feed("@ a.py starting_")
	p.Feed("line=1 ending_line=1\nbo")
	p.Feed("dy\n@")
	p.Feed("\n")
	out := p.Finish()

	require.Len(t, out.Edits, 1)
	assert.Equal(t, []string{"body"}, out.Edits[0].Lines)
}

func TestLex_FinalFlushWithoutTrailingNewline(t *testing.T) {
	// The terminator arrives without a trailing newline; Finalize must
	// still see the buffered "@".
	p := newTestParser(t, types.FormatReplacement, nil)
	p.Feed("@ a.py starting_line=1 ending_line=1\nlast\n@")
	out := p.Finish()

	require.Len(t, out.Edits, 1)
	assert.Empty(t, out.LexErrors)
}
