// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import "strings"

// SplitLines converts file content to a line slice. A trailing newline
// does not produce a phantom empty line; empty content has no lines.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// JoinLines is the inverse of SplitLines. Non-empty content always gains a
// trailing newline, so a source file missing its final newline is
// normalized the first time it is written back.
func JoinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// SpliceLines replaces iv's span within lines, returning a new slice. The
// interval is clamped to the slice bounds; callers that need strict bounds
// validate first.
func SpliceLines(lines []string, iv Interval, replacement []string) []string {
	start := iv.Start - 1
	end := iv.End - 1
	if start < 0 {
		start = 0
	}
	if start > len(lines) {
		start = len(lines)
	}
	if end < start {
		end = start
	}
	if end > len(lines) {
		end = len(lines)
	}
	out := make([]string, 0, len(lines)-(end-start)+len(replacement))
	out = append(out, lines[:start]...)
	out = append(out, replacement...)
	out = append(out, lines[end:]...)
	return out
}
