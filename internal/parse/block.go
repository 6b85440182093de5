// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package parse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avasek/tailor/pkg/types"
)

// Block dialect sentinels. A block is @@start, a JSON header, optionally
// @@code and body lines, then @@end.
const (
	blockStartMarker = "@@start"
	blockCodeMarker  = "@@code"
	blockEndMarker   = "@@end"
)

type blockState int

const (
	blockIdle blockState = iota
	blockHeader
	blockBody
)

// blockHeaderSpec is the JSON header of one block. Line numbers are
// 1-indexed and inclusive on both ends; pointers distinguish absent fields
// from zero values.
type blockHeaderSpec struct {
	File         string `json:"file"`
	Action       string `json:"action"`
	InsertAfter  *int   `json:"insert-after-line,omitempty"`
	InsertBefore *int   `json:"insert-before-line,omitempty"`
	StartLine    *int   `json:"start-line,omitempty"`
	EndLine      *int   `json:"end-line,omitempty"`
	Name         string `json:"name,omitempty"`
}

type blockLexer struct {
	buf         lineBuffer
	state       blockState
	headerLines []string
	header      *blockHeaderSpec
	body        []string
}

func newBlockLexer() *blockLexer {
	return &blockLexer{}
}

func (l *blockLexer) ConsumeChunk(chunk string) []lexEvent {
	var events []lexEvent
	for _, line := range l.buf.Add(chunk) {
		events = append(events, l.consumeLine(line)...)
	}
	return events
}

func (l *blockLexer) Finalize() []lexEvent {
	var events []lexEvent
	if line, ok := l.buf.Flush(); ok {
		events = append(events, l.consumeLine(line)...)
	}
	if l.state != blockIdle {
		events = append(events, errorEvent(&LexError{
			Format:  types.FormatBlock,
			Line:    l.buf.Line(),
			Message: "stream ended inside an unterminated block",
		}, true))
		l.reset()
	}
	return events
}

func (l *blockLexer) consumeLine(line string) []lexEvent {
	trimmed := strings.TrimSpace(line)
	switch l.state {
	case blockIdle:
		if trimmed == blockStartMarker {
			l.state = blockHeader
			l.headerLines = nil
			l.header = nil
			l.body = nil
			return []lexEvent{headerStartedEvent()}
		}
		return []lexEvent{commentaryEvent(line)}

	case blockHeader:
		switch trimmed {
		case blockCodeMarker:
			ev, ok := l.parseHeader()
			if !ok {
				return ev
			}
			l.state = blockBody
			return ev
		case blockEndMarker:
			ev, ok := l.parseHeader()
			if !ok {
				return ev
			}
			return append(ev, l.close()...)
		case blockStartMarker:
			ev := l.discard("new block started before @@end", strings.Join(l.headerLines, "\n"))
			l.state = blockHeader
			return ev
		default:
			l.headerLines = append(l.headerLines, line)
			return nil
		}

	case blockBody:
		switch trimmed {
		case blockEndMarker:
			return l.close()
		case blockStartMarker:
			ev := l.discard("new block started before @@end", l.header.File)
			l.state = blockHeader
			return ev
		}
		l.body = append(l.body, line)
		return []lexEvent{bodyEvent(l.header.File, line)}
	}
	return nil
}

// parseHeader decodes the accumulated JSON header. On failure the whole
// block is discarded and the lexer returns to idle.
func (l *blockLexer) parseHeader() ([]lexEvent, bool) {
	raw := strings.Join(l.headerLines, "\n")
	var hdr blockHeaderSpec
	if err := json.Unmarshal([]byte(raw), &hdr); err != nil {
		return l.discard(fmt.Sprintf("malformed block header JSON: %v", err), raw), false
	}
	if hdr.File == "" {
		return l.discard("block header missing \"file\"", raw), false
	}
	kind, err := blockActionKind(hdr.Action)
	if err != nil {
		return l.discard(err.Error(), raw), false
	}
	l.header = &hdr
	return []lexEvent{openedEvent(hdr.File, kind)}, true
}

// close validates the completed block against its action and emits the
// finalized edit.
func (l *blockLexer) close() []lexEvent {
	hdr := l.header
	body := l.body
	l.reset()

	var edit types.Edit
	var err error
	switch hdr.Action {
	case "insert":
		edit, err = blockInsertEdit(hdr, body)
	case "replace":
		edit, err = blockReplaceEdit(hdr, body)
	case "delete":
		if len(body) > 0 {
			err = fmt.Errorf("delete block carries a body")
			break
		}
		edit, err = blockRangeEdit(hdr, nil)
	case "create-file":
		edit, err = types.NewCreation(hdr.File, body)
	case "delete-file":
		if len(body) > 0 {
			err = fmt.Errorf("delete-file block carries a body")
			break
		}
		edit, err = types.NewDeletion(hdr.File)
	case "rename-file":
		if hdr.Name == "" {
			err = fmt.Errorf("rename-file block missing \"name\"")
			break
		}
		edit, err = types.NewRename(hdr.File, hdr.Name)
	}
	if err != nil {
		return []lexEvent{errorEvent(&LexError{
			Format:  types.FormatBlock,
			Line:    l.buf.Line(),
			Snippet: truncateSnippet(hdr.File + " " + hdr.Action),
			Message: err.Error(),
		}, true)}
	}
	return []lexEvent{closedEvent(edit)}
}

func (l *blockLexer) discard(msg, snippet string) []lexEvent {
	l.reset()
	return []lexEvent{errorEvent(&LexError{
		Format:  types.FormatBlock,
		Line:    l.buf.Line(),
		Snippet: truncateSnippet(snippet),
		Message: msg,
	}, true)}
}

func (l *blockLexer) reset() {
	l.state = blockIdle
	l.headerLines = nil
	l.header = nil
	l.body = nil
}

func blockActionKind(action string) (types.EditKind, error) {
	switch action {
	case "insert", "replace", "delete":
		return types.KindReplacement, nil
	case "create-file":
		return types.KindCreation, nil
	case "delete-file":
		return types.KindDeletion, nil
	case "rename-file":
		return types.KindRename, nil
	case "":
		return 0, fmt.Errorf("block header missing \"action\"")
	}
	return 0, fmt.Errorf("unknown block action %q", action)
}

// blockInsertEdit handles the insert action: insert-after-line and
// insert-before-line must be consecutive, and content goes directly
// between them.
func blockInsertEdit(hdr *blockHeaderSpec, body []string) (types.Edit, error) {
	if hdr.InsertAfter == nil || hdr.InsertBefore == nil {
		return types.Edit{}, fmt.Errorf("insert block missing insert-after-line/insert-before-line")
	}
	after, before := *hdr.InsertAfter, *hdr.InsertBefore
	if after+1 != before {
		return types.Edit{}, fmt.Errorf("insert lines %d/%d are not consecutive", after, before)
	}
	iv, err := types.NewInterval(before, before)
	if err != nil {
		return types.Edit{}, err
	}
	return types.NewReplacement(hdr.File, iv, body)
}

// blockReplaceEdit handles the replace action with inclusive-inclusive line
// numbers, converted here to the internal exclusive-end interval.
func blockReplaceEdit(hdr *blockHeaderSpec, body []string) (types.Edit, error) {
	return blockRangeEdit(hdr, body)
}

func blockRangeEdit(hdr *blockHeaderSpec, body []string) (types.Edit, error) {
	if hdr.StartLine == nil || hdr.EndLine == nil {
		return types.Edit{}, fmt.Errorf("%s block missing start-line/end-line", hdr.Action)
	}
	start, end := *hdr.StartLine, *hdr.EndLine
	if end < start {
		return types.Edit{}, fmt.Errorf("%s block end-line %d precedes start-line %d", hdr.Action, end, start)
	}
	iv, err := types.NewInterval(start, end+1)
	if err != nil {
		return types.Edit{}, err
	}
	return types.NewReplacement(hdr.File, iv, body)
}
