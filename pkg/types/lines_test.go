// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitLines(t *testing.T) {
	assert.Nil(t, SplitLines(""))
	assert.Equal(t, []string{"a"}, SplitLines("a"))
	assert.Equal(t, []string{"a"}, SplitLines("a\n"))
	assert.Equal(t, []string{"a", "", "b"}, SplitLines("a\n\nb\n"))
	assert.Equal(t, []string{""}, SplitLines("\n"))
}

func TestJoinLines(t *testing.T) {
	assert.Equal(t, "", JoinLines(nil))
	assert.Equal(t, "a\n", JoinLines([]string{"a"}))
	assert.Equal(t, "a\n\nb\n", JoinLines([]string{"a", "", "b"}))
}

func TestSpliceLines(t *testing.T) {
	base := []string{"one", "two", "three"}

	got := SpliceLines(base, Interval{Start: 2, End: 3}, []string{"TWO"})
	assert.Equal(t, []string{"one", "TWO", "three"}, got)

	// Insertion leaves every original line in place.
	got = SpliceLines(base, Interval{Start: 2, End: 2}, []string{"1.5"})
	assert.Equal(t, []string{"one", "1.5", "two", "three"}, got)

	// Append past the last line.
	got = SpliceLines(base, Interval{Start: 4, End: 4}, []string{"four"})
	assert.Equal(t, []string{"one", "two", "three", "four"}, got)

	// Deletion.
	got = SpliceLines(base, Interval{Start: 1, End: 4}, nil)
	assert.Empty(t, got)

	// Out-of-range spans clamp instead of panicking.
	got = SpliceLines(base, Interval{Start: 2, End: 99}, []string{"x"})
	assert.Equal(t, []string{"one", "x"}, got)
}
