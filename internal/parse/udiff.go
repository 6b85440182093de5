// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package parse

import (
	"strings"

	"github.com/avasek/tailor/pkg/types"
)

const devNull = "/dev/null"

// hunkLine is one tagged line of a diff hunk: ' ' context, '-' deletion,
// '+' addition.
type hunkLine struct {
	op   byte
	text string
}

// hunk is a provisional edit from the unified-diff dialect. It carries no
// line numbers; the second pass resolves matchLines against the target
// file's current content.
type hunk struct {
	file  string
	lines []hunkLine
}

// matchLines returns the run that must match the file: context and deleted
// lines, in order.
func (h *hunk) matchLines() []string {
	var out []string
	for _, l := range h.lines {
		if l.op == ' ' || l.op == '-' {
			out = append(out, l.text)
		}
	}
	return out
}

// additions reports whether the hunk contains any added lines.
func (h *hunk) additions() bool {
	for _, l := range h.lines {
		if l.op == '+' {
			return true
		}
	}
	return false
}

type udiffState int

const (
	udiffIdle     udiffState = iota
	udiffAfterOld            // saw "---", awaiting "+++"
	udiffInFile              // header pair consumed, awaiting a hunk sentinel
	udiffInHunk
)

// udiffLexer recognizes "--- old" / "+++ new" header pairs and numberless
// "@@ @@" hunks. /dev/null as the old path is a creation, as the new path a
// deletion; distinct real paths are a rename followed by edits. Hunks carry
// the pre-rename path so the application engine's retargeting applies.
type udiffLexer struct {
	buf     lineBuffer
	state   udiffState
	oldPath string
	// hunkFile is the path hunks resolve against: the old path for renames,
	// since resolution reads the pre-apply working tree.
	hunkFile string
	created  bool // current file is a creation
	deleted  bool // current file is a deletion; its hunks are redundant
	current  *hunk
	broken   bool // current hunk already failed; swallow lines to its end
}

func newUdiffLexer() *udiffLexer {
	return &udiffLexer{}
}

func (l *udiffLexer) ConsumeChunk(chunk string) []lexEvent {
	var events []lexEvent
	for _, line := range l.buf.Add(chunk) {
		events = append(events, l.consumeLine(line)...)
	}
	return events
}

// Finalize closes an open hunk leniently: models often stop without the
// trailing "@@ end @@".
func (l *udiffLexer) Finalize() []lexEvent {
	var events []lexEvent
	if line, ok := l.buf.Flush(); ok {
		events = append(events, l.consumeLine(line)...)
	}
	switch l.state {
	case udiffInHunk:
		events = append(events, l.closeHunk()...)
		events = append(events, l.closeFile()...)
	case udiffInFile:
		events = append(events, l.closeFile()...)
	case udiffAfterOld:
		events = append(events, errorEvent(&LexError{
			Format:  types.FormatUnifiedDiff,
			Line:    l.buf.Line(),
			Snippet: l.oldPath,
			Message: "stream ended after \"---\" with no \"+++\" header",
		}, true))
	}
	l.state = udiffIdle
	return events
}

func (l *udiffLexer) consumeLine(line string) []lexEvent {
	switch l.state {
	case udiffIdle:
		if old, ok := strings.CutPrefix(line, "--- "); ok {
			l.oldPath = strings.TrimSpace(old)
			l.state = udiffAfterOld
			return []lexEvent{headerStartedEvent()}
		}
		return []lexEvent{commentaryEvent(line)}

	case udiffAfterOld:
		if newer, ok := strings.CutPrefix(line, "+++ "); ok {
			return l.openFile(strings.TrimSpace(newer))
		}
		// A dangling "---" was commentary after all; replay both lines.
		l.state = udiffIdle
		events := []lexEvent{commentaryEvent("--- " + l.oldPath)}
		return append(events, l.consumeLine(line)...)

	case udiffInFile:
		return l.fileLine(line, false)

	case udiffInHunk:
		return l.fileLine(line, true)
	}
	return nil
}

// openFile interprets the completed header pair.
func (l *udiffLexer) openFile(newPath string) []lexEvent {
	old := l.oldPath
	l.state = udiffInFile
	l.created = false
	l.deleted = false
	l.broken = false
	l.current = nil

	switch {
	case old == devNull && newPath == devNull:
		l.state = udiffIdle
		return []lexEvent{errorEvent(&LexError{
			Format:  types.FormatUnifiedDiff,
			Line:    l.buf.Line(),
			Message: "diff header maps /dev/null to /dev/null",
		}, true)}

	case old == devNull:
		edit, err := types.NewCreation(newPath, nil)
		if err != nil {
			l.state = udiffIdle
			return l.headerError(err.Error())
		}
		l.created = true
		l.hunkFile = newPath
		return []lexEvent{openedEvent(newPath, types.KindCreation), closedEvent(edit)}

	case newPath == devNull:
		edit, err := types.NewDeletion(old)
		if err != nil {
			l.state = udiffIdle
			return l.headerError(err.Error())
		}
		l.deleted = true
		l.hunkFile = old
		return []lexEvent{openedEvent(old, types.KindDeletion), closedEvent(edit)}

	case old != newPath:
		edit, err := types.NewRename(old, newPath)
		if err != nil {
			l.state = udiffIdle
			return l.headerError(err.Error())
		}
		l.hunkFile = old
		return []lexEvent{openedEvent(old, types.KindRename), closedEvent(edit)}

	default:
		l.hunkFile = old
		return nil
	}
}

// fileLine handles lines between a header pair and the end of the file's
// hunks. inHunk distinguishes whether a hunk is currently open.
func (l *udiffLexer) fileLine(line string, inHunk bool) []lexEvent {
	trimmed := strings.TrimRight(line, " \t")

	// File-ending sentinel.
	if trimmed == "@@ end @@" {
		var events []lexEvent
		if inHunk {
			events = l.closeHunk()
		}
		events = append(events, l.closeFile()...)
		l.state = udiffIdle
		return events
	}

	// Next file's header.
	if old, ok := strings.CutPrefix(line, "--- "); ok {
		var events []lexEvent
		if inHunk {
			events = l.closeHunk()
		}
		events = append(events, l.closeFile()...)
		l.oldPath = strings.TrimSpace(old)
		l.state = udiffAfterOld
		return append(events, headerStartedEvent())
	}

	// Hunk sentinel: "@@ @@", tolerating content between the markers.
	if strings.HasPrefix(trimmed, "@@") && strings.HasSuffix(trimmed, "@@") && len(trimmed) >= 4 {
		var events []lexEvent
		if inHunk {
			events = l.closeHunk()
		}
		l.current = &hunk{file: l.hunkFile}
		l.broken = false
		l.state = udiffInHunk
		if !l.deleted {
			events = append(events, openedEvent(l.hunkFile, types.KindReplacement))
		}
		return events
	}

	if !inHunk {
		// Lines between the header pair and the first sentinel.
		return []lexEvent{commentaryEvent(line)}
	}
	if l.broken {
		return nil
	}

	switch {
	case line == "":
		// Models drop the trailing space on blank context lines.
		l.current.lines = append(l.current.lines, hunkLine{op: ' ', text: ""})
	case line[0] == ' ':
		l.current.lines = append(l.current.lines, hunkLine{op: ' ', text: line[1:]})
	case line[0] == '-':
		l.current.lines = append(l.current.lines, hunkLine{op: '-', text: line[1:]})
	case line[0] == '+':
		l.current.lines = append(l.current.lines, hunkLine{op: '+', text: line[1:]})
	default:
		l.broken = true
		l.current = nil
		return []lexEvent{errorEvent(&LexError{
			Format:  types.FormatUnifiedDiff,
			Line:    l.buf.Line(),
			Snippet: truncateSnippet(line),
			Message: "hunk line has no diff prefix",
		}, true)}
	}
	if l.deleted {
		return nil
	}
	return []lexEvent{bodyEvent(l.hunkFile, line)}
}

// closeHunk emits the provisional hunk, dropping redundant hunks of deleted
// files and hunks already marked broken.
func (l *udiffLexer) closeHunk() []lexEvent {
	h := l.current
	l.current = nil
	l.state = udiffInFile
	if h == nil || l.broken {
		l.broken = false
		return nil
	}
	if l.deleted || len(h.lines) == 0 {
		return nil
	}
	return []lexEvent{{kind: lexHunkClosed, file: h.file, hunk: h}}
}

func (l *udiffLexer) closeFile() []lexEvent {
	if l.hunkFile == "" {
		return nil
	}
	file := l.hunkFile
	l.hunkFile = ""
	return []lexEvent{{kind: lexFileDone, file: file}}
}

func (l *udiffLexer) headerError(msg string) []lexEvent {
	return []lexEvent{errorEvent(&LexError{
		Format:  types.FormatUnifiedDiff,
		Line:    l.buf.Line(),
		Message: msg,
	}, true)}
}
