// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avasek/tailor/pkg/types"
)

func mustEdit(t *testing.T, e types.Edit, err error) types.Edit {
	t.Helper()
	require.NoError(t, err)
	return e
}

func TestRender_ReplacementRoundTrip(t *testing.T) {
	edits := []types.Edit{
		mustEdit(t, types.NewReplacement("util.py", types.Interval{Start: 3, End: 5}, []string{"def helper():", "    return 2"})),
		mustEdit(t, types.NewReplacement("util.py", types.Interval{Start: 1, End: 1}, []string{"import os"})),
		mustEdit(t, types.NewReplacement("gone.py", types.Interval{Start: 5, End: 8}, nil)),
		mustEdit(t, types.NewCreation("fresh.py", nil)),
		mustEdit(t, types.NewDeletion("stale.py")),
		mustEdit(t, types.NewRename("old.py", "new.py")),
	}

	text, err := Render(types.FormatReplacement, edits)
	require.NoError(t, err)

	p := newTestParser(t, types.FormatReplacement, nil)
	p.Feed(text)
	out := p.Finish()

	require.Empty(t, out.LexErrors)
	assert.Equal(t, edits, out.Edits)
}

func TestRender_ReplacementSeededCreation(t *testing.T) {
	edits := []types.Edit{
		mustEdit(t, types.NewCreation("seeded.py", []string{"x = 1", "y = 2"})),
	}

	text, err := Render(types.FormatReplacement, edits)
	require.NoError(t, err)
	assert.Equal(t, "@ seeded.py +\n@ seeded.py insert_line=1\nx = 1\ny = 2\n@\n", text)

	// The dialect cannot express a seeded creation in one directive, so it
	// comes back as a bare creation plus a top-of-file insertion.
	p := newTestParser(t, types.FormatReplacement, nil)
	p.Feed(text)
	out := p.Finish()

	require.Len(t, out.Edits, 2)
	assert.Equal(t, types.KindCreation, out.Edits[0].Kind)
	assert.Empty(t, out.Edits[0].Lines)
	assert.Equal(t, types.Interval{Start: 1, End: 1}, out.Edits[1].Interval)
	assert.Equal(t, []string{"x = 1", "y = 2"}, out.Edits[1].Lines)
}

func TestRender_BlockRoundTrip(t *testing.T) {
	edits := []types.Edit{
		mustEdit(t, types.NewReplacement("main.py", types.Interval{Start: 2, End: 3}, []string{"    return 1"})),
		mustEdit(t, types.NewReplacement("util.py", types.Interval{Start: 4, End: 4}, []string{"import os"})),
		mustEdit(t, types.NewReplacement("gone.py", types.Interval{Start: 5, End: 8}, nil)),
		mustEdit(t, types.NewCreation("new.py", []string{"a = 1", ""})),
		mustEdit(t, types.NewDeletion("old.py")),
		mustEdit(t, types.NewRename("a.py", "b.py")),
	}

	text, err := Render(types.FormatBlock, edits)
	require.NoError(t, err)

	p := newTestParser(t, types.FormatBlock, nil)
	p.Feed(text)
	out := p.Finish()

	require.Empty(t, out.LexErrors)
	assert.Equal(t, edits, out.Edits)
}

func TestRender_BlockHeaderLayout(t *testing.T) {
	edits := []types.Edit{
		mustEdit(t, types.NewReplacement("main.py", types.Interval{Start: 2, End: 3}, []string{"    return 1"})),
	}

	text, err := Render(types.FormatBlock, edits)
	require.NoError(t, err)

	want := `@@start
{
    "file": "main.py",
    "action": "replace",
    "start-line": 2,
    "end-line": 2
}
@@code
    return 1
@@end
`
	assert.Equal(t, want, text)
}

func TestRender_UnsupportedFormat(t *testing.T) {
	_, err := Render(types.FormatUnifiedDiff, nil)
	assert.Error(t, err)
	_, err = Render(types.FormatJSON, nil)
	assert.Error(t, err)
}
