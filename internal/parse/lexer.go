// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

// Package parse converts a streamed model response into validated file
// edits. A StreamParser owns one format-specific lexer per turn; the lexer
// recognizes the wire format and the parser tracks state, emits display
// events, and resolves diff hunks against file content.
package parse

import (
	"fmt"
	"strings"

	"github.com/avasek/tailor/pkg/types"
)

// Lexer is the capability every format dialect implements. Chunks arrive
// with arbitrary boundaries; a chunk may split a line, a marker, or a JSON
// token at any byte. Finalize flushes whatever state remains at end of
// stream.
type Lexer interface {
	ConsumeChunk(chunk string) []lexEvent
	Finalize() []lexEvent
}

// NewLexer constructs the lexer dialect for a format.
func NewLexer(format types.Format) (Lexer, error) {
	switch format {
	case types.FormatBlock:
		return newBlockLexer(), nil
	case types.FormatReplacement:
		return newReplacementLexer(), nil
	case types.FormatUnifiedDiff:
		return newUdiffLexer(), nil
	case types.FormatJSON:
		return newJSONLexer(), nil
	}
	return nil, fmt.Errorf("no lexer for format %q", format)
}

// lexKind tags the lexer-to-parser protocol events.
type lexKind int

const (
	lexCommentary    lexKind = iota // Free text outside any edit block
	lexHeaderStarted                // A block/header sentinel opened, header not yet complete
	lexEditOpened                   // An edit header was recognized
	lexBodyLine                     // One body line consumed for the open edit
	lexEditClosed                   // A finalized edit (numbered formats)
	lexHunkClosed                   // A provisional hunk awaiting second-pass resolution
	lexFileDone                     // All hunks for a file are collected
	lexError                        // A malformed construct was discarded
)

// lexEvent is one step of lexer output. Only the fields relevant to the
// kind are set.
type lexEvent struct {
	kind lexKind

	text     string // Commentary or body line text
	file     string
	editKind types.EditKind
	edit     types.Edit // lexEditClosed
	hunk     *hunk      // lexHunkClosed
	err      *LexError  // lexError

	// discarded marks errors that consumed an entire block, for the
	// seen/parsed accounting.
	discarded bool
}

func commentaryEvent(text string) lexEvent {
	return lexEvent{kind: lexCommentary, text: text}
}

func headerStartedEvent() lexEvent {
	return lexEvent{kind: lexHeaderStarted}
}

func openedEvent(file string, kind types.EditKind) lexEvent {
	return lexEvent{kind: lexEditOpened, file: file, editKind: kind}
}

func bodyEvent(file, text string) lexEvent {
	return lexEvent{kind: lexBodyLine, file: file, text: text}
}

func closedEvent(edit types.Edit) lexEvent {
	return lexEvent{kind: lexEditClosed, file: edit.File, edit: edit}
}

func errorEvent(err *LexError, discarded bool) lexEvent {
	return lexEvent{kind: lexError, err: err, discarded: discarded}
}

// lineBuffer splits a chunked character stream into complete lines,
// carrying the incomplete trailing line across calls. Dialects that are
// line-oriented compose one; the JSON dialect does not.
type lineBuffer struct {
	partial strings.Builder
	lineNo  int
}

// Add appends a chunk and returns the complete lines it yielded, without
// terminators. Trailing carriage returns are stripped.
func (b *lineBuffer) Add(chunk string) []string {
	if chunk == "" {
		return nil
	}
	var lines []string
	for {
		i := strings.IndexByte(chunk, '\n')
		if i < 0 {
			b.partial.WriteString(chunk)
			return lines
		}
		b.partial.WriteString(chunk[:i])
		line := strings.TrimSuffix(b.partial.String(), "\r")
		b.partial.Reset()
		b.lineNo++
		lines = append(lines, line)
		chunk = chunk[i+1:]
	}
}

// Flush returns the final unterminated line, if any.
func (b *lineBuffer) Flush() (string, bool) {
	if b.partial.Len() == 0 {
		return "", false
	}
	line := strings.TrimSuffix(b.partial.String(), "\r")
	b.partial.Reset()
	b.lineNo++
	return line, true
}

// Line reports the 1-indexed number of the most recently completed line.
func (b *lineBuffer) Line() int {
	return b.lineNo
}
