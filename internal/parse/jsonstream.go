// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package parse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avasek/tailor/pkg/types"
)

type jsonPhase int

const (
	jsonPreamble  jsonPhase = iota // before the document's opening brace
	jsonSeekArray                  // inside the object, before the content array
	jsonInArray                    // yielding elements
	jsonDone
)

// jsonLexer consumes the JSON dialect: one object whose "content" array
// holds tagged elements. The dialect is not line-oriented, so this lexer
// scans raw chunks with a hand-rolled bracket/quote depth tracker and
// yields each array element as soon as its closing brace arrives, well
// before the document completes. A full-document json.Unmarshal would have
// to wait for the final byte and lose progressive display.
type jsonLexer struct {
	raw []byte
	pos int

	phase    jsonPhase
	depth    int
	inStr    bool
	escaped  bool
	strStart int

	lastString string // most recent string completed at depth 1
	elemStart  int    // byte offset of the open element, -1 when none
	skipping   bool   // discarding a non-object array element

	preamble strings.Builder
}

func newJSONLexer() *jsonLexer {
	return &jsonLexer{elemStart: -1}
}

func (l *jsonLexer) ConsumeChunk(chunk string) []lexEvent {
	l.raw = append(l.raw, chunk...)
	return l.scan()
}

func (l *jsonLexer) Finalize() []lexEvent {
	events := l.scan()
	if text := strings.TrimSpace(l.preamble.String()); text != "" {
		events = append(events, commentaryEvent(text))
		l.preamble.Reset()
	}
	if l.phase != jsonDone {
		msg := "stream ended before the JSON document completed"
		if l.elemStart >= 0 {
			msg = "stream ended inside a content element"
		} else if l.phase == jsonPreamble {
			msg = "response contained no JSON object"
		}
		events = append(events, errorEvent(&LexError{
			Format:  types.FormatJSON,
			Message: msg,
		}, l.elemStart >= 0))
		l.phase = jsonDone
	}
	return events
}

func (l *jsonLexer) scan() []lexEvent {
	var events []lexEvent
	for ; l.pos < len(l.raw); l.pos++ {
		c := l.raw[l.pos]

		if l.phase == jsonPreamble {
			if c == '{' {
				if text := strings.TrimSpace(l.preamble.String()); text != "" {
					events = append(events, commentaryEvent(text))
				}
				l.preamble.Reset()
				l.phase = jsonSeekArray
				l.depth = 1
				continue
			}
			if c == '\n' {
				if text := strings.TrimRight(l.preamble.String(), " \t\r"); text != "" {
					events = append(events, commentaryEvent(text))
				}
				l.preamble.Reset()
				continue
			}
			l.preamble.WriteByte(c)
			continue
		}
		if l.phase == jsonDone {
			break
		}

		// String state applies uniformly inside the document.
		if l.inStr {
			switch {
			case l.escaped:
				l.escaped = false
			case c == '\\':
				l.escaped = true
			case c == '"':
				l.inStr = false
				if l.phase == jsonSeekArray && l.depth == 1 {
					l.lastString = string(l.raw[l.strStart+1 : l.pos])
				}
			}
			continue
		}
		if c == '"' {
			l.inStr = true
			l.escaped = false
			l.strStart = l.pos
			continue
		}

		switch l.phase {
		case jsonSeekArray:
			switch c {
			case '[':
				if l.depth == 1 && l.lastString == "content" {
					l.phase = jsonInArray
				}
				l.depth++
			case '{':
				l.depth++
			case '}', ']':
				l.depth--
				if l.depth == 0 {
					l.phase = jsonDone
					events = append(events, errorEvent(&LexError{
						Format:  types.FormatJSON,
						Message: "JSON object has no \"content\" array",
					}, false))
				}
			}

		case jsonInArray:
			switch {
			case l.elemStart >= 0:
				switch c {
				case '{', '[':
					l.depth++
				case '}', ']':
					l.depth--
					if l.depth == 2 {
						raw := l.raw[l.elemStart : l.pos+1]
						l.elemStart = -1
						events = append(events, l.decodeElement(raw)...)
					}
				}
			case c == '{':
				if l.skipping {
					l.depth++
					continue
				}
				l.elemStart = l.pos
				l.depth++
			case c == '[':
				l.depth++
			case c == '}' || c == ']':
				l.depth--
				if l.depth == 1 {
					// Content array closed; the rest of the document is
					// structural and carries no further edits.
					l.phase = jsonDone
				}
			case c == ',':
				if l.depth == 2 {
					l.skipping = false
				}
			case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			default:
				if l.depth == 2 && !l.skipping {
					l.skipping = true
					events = append(events, errorEvent(&LexError{
						Format:  types.FormatJSON,
						Message: fmt.Sprintf("content array element starting with %q is not an object", c),
					}, true))
				}
			}
		}
	}
	return events
}

// jsonElementSpec is one element of the content array. Line numbers are
// 0-indexed with an exclusive end; pointers distinguish absent fields.
type jsonElementSpec struct {
	Type         string  `json:"type"`
	Content      *string `json:"content"`
	File         string  `json:"file"`
	Name         string  `json:"name"`
	StartingLine *int    `json:"starting-line"`
	EndingLine   *int    `json:"ending-line"`
}

func (l *jsonLexer) decodeElement(raw []byte) []lexEvent {
	var spec jsonElementSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return []lexEvent{l.elementError(fmt.Sprintf("undecodable content element: %v", err), raw)}
	}

	switch spec.Type {
	case "comment":
		if spec.Content == nil {
			return []lexEvent{l.elementError("comment element missing \"content\"", raw)}
		}
		return []lexEvent{commentaryEvent(*spec.Content)}

	case "edit":
		if spec.File == "" {
			return []lexEvent{l.elementError("edit element missing \"file\"", raw)}
		}
		if spec.StartingLine == nil || spec.EndingLine == nil {
			return []lexEvent{l.elementError("edit element missing starting-line/ending-line", raw)}
		}
		start, end := *spec.StartingLine, *spec.EndingLine
		if start < 0 || end < start {
			return []lexEvent{l.elementError(fmt.Sprintf("edit element lines %d/%d out of order", start, end), raw)}
		}
		// 0-indexed exclusive-end maps to the internal interval by a +1
		// shift on both bounds.
		iv, err := types.NewInterval(start+1, end+1)
		if err != nil {
			return []lexEvent{l.elementError(err.Error(), raw)}
		}
		edit, err := types.NewReplacement(spec.File, iv, splitContent(spec.Content))
		if err != nil {
			return []lexEvent{l.elementError(err.Error(), raw)}
		}
		return []lexEvent{openedEvent(edit.File, edit.Kind), closedEvent(edit)}

	case "creation":
		edit, err := types.NewCreation(spec.File, splitContent(spec.Content))
		if err != nil {
			return []lexEvent{l.elementError(err.Error(), raw)}
		}
		return []lexEvent{openedEvent(edit.File, edit.Kind), closedEvent(edit)}

	case "deletion":
		edit, err := types.NewDeletion(spec.File)
		if err != nil {
			return []lexEvent{l.elementError(err.Error(), raw)}
		}
		return []lexEvent{openedEvent(edit.File, edit.Kind), closedEvent(edit)}

	case "rename":
		edit, err := types.NewRename(spec.File, spec.Name)
		if err != nil {
			return []lexEvent{l.elementError(err.Error(), raw)}
		}
		return []lexEvent{openedEvent(edit.File, edit.Kind), closedEvent(edit)}
	}
	return []lexEvent{l.elementError(fmt.Sprintf("unknown content element type %q", spec.Type), raw)}
}

func (l *jsonLexer) elementError(msg string, raw []byte) lexEvent {
	return errorEvent(&LexError{
		Format:  types.FormatJSON,
		Snippet: truncateSnippet(string(raw)),
		Message: msg,
	}, true)
}

// splitContent turns the element's newline-joined content into lines.
// Absent or empty content means no lines at all (a pure deletion for an
// edit element), not a single empty line.
func splitContent(content *string) []string {
	if content == nil || *content == "" {
		return nil
	}
	return strings.Split(*content, "\n")
}
