// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package parse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/avasek/tailor/pkg/types"
)

// Replacement dialect: single-line headers "@ <file> <directive>", bodies
// terminated by a lone "@". Directives: "+" create, "-" delete, a bare
// token renames to that token, "starting_line=<n> ending_line=<m>" replaces
// (start inclusive, end exclusive, 1-indexed), "insert_line=<n>" inserts
// before line n. Bodiless directives close at the header line.
type replacementLexer struct {
	buf    lineBuffer
	inBody bool
	file   string
	iv     types.Interval
	body   []string
}

func newReplacementLexer() *replacementLexer {
	return &replacementLexer{}
}

func (l *replacementLexer) ConsumeChunk(chunk string) []lexEvent {
	var events []lexEvent
	for _, line := range l.buf.Add(chunk) {
		events = append(events, l.consumeLine(line)...)
	}
	return events
}

func (l *replacementLexer) Finalize() []lexEvent {
	var events []lexEvent
	if line, ok := l.buf.Flush(); ok {
		events = append(events, l.consumeLine(line)...)
	}
	if l.inBody {
		events = append(events, errorEvent(&LexError{
			Format:  types.FormatReplacement,
			Line:    l.buf.Line(),
			Snippet: l.file,
			Message: "stream ended inside an unterminated edit body",
		}, true))
		l.inBody = false
	}
	return events
}

func (l *replacementLexer) consumeLine(line string) []lexEvent {
	if l.inBody {
		if strings.TrimRight(line, " \t") == "@" {
			edit, err := types.NewReplacement(l.file, l.iv, l.body)
			l.inBody = false
			l.body = nil
			if err != nil {
				return []lexEvent{errorEvent(&LexError{
					Format:  types.FormatReplacement,
					Line:    l.buf.Line(),
					Message: err.Error(),
				}, true)}
			}
			return []lexEvent{closedEvent(edit)}
		}
		l.body = append(l.body, line)
		return []lexEvent{bodyEvent(l.file, line)}
	}

	if !strings.HasPrefix(line, "@ ") {
		return []lexEvent{commentaryEvent(line)}
	}
	return l.consumeHeader(line)
}

func (l *replacementLexer) consumeHeader(line string) []lexEvent {
	fields := strings.Fields(line)
	// fields[0] is "@"; a header needs at least a file and a directive.
	if len(fields) < 3 {
		return l.headerError(line, "header needs a file and a directive")
	}
	file := fields[1]
	directive := fields[2:]

	switch {
	case len(directive) == 1 && directive[0] == "+":
		edit, err := types.NewCreation(file, nil)
		return l.headerResult(line, edit, err)

	case len(directive) == 1 && directive[0] == "-":
		edit, err := types.NewDeletion(file)
		return l.headerResult(line, edit, err)

	case len(directive) == 1 && strings.HasPrefix(directive[0], "insert_line="):
		n, err := parseLineField(directive[0], "insert_line")
		if err != nil {
			return l.headerError(line, err.Error())
		}
		iv, err := types.NewInterval(n, n)
		if err != nil {
			return l.headerError(line, err.Error())
		}
		return l.openBody(file, iv)

	case len(directive) == 2 && strings.HasPrefix(directive[0], "starting_line="):
		start, err := parseLineField(directive[0], "starting_line")
		if err != nil {
			return l.headerError(line, err.Error())
		}
		end, err := parseLineField(directive[1], "ending_line")
		if err != nil {
			return l.headerError(line, err.Error())
		}
		// starting_line is inclusive and ending_line exclusive, so the
		// numbers map onto the internal interval unchanged.
		iv, err := types.NewInterval(start, end)
		if err != nil {
			return l.headerError(line, err.Error())
		}
		return l.openBody(file, iv)

	case len(directive) == 1 && !strings.Contains(directive[0], "="):
		edit, err := types.NewRename(file, directive[0])
		return l.headerResult(line, edit, err)
	}
	return l.headerError(line, fmt.Sprintf("unrecognized directive %q", strings.Join(directive, " ")))
}

func (l *replacementLexer) openBody(file string, iv types.Interval) []lexEvent {
	l.inBody = true
	l.file = file
	l.iv = iv
	l.body = nil
	return []lexEvent{openedEvent(file, types.KindReplacement)}
}

// headerResult emits a bodiless edit: opened and closed on the same header
// line.
func (l *replacementLexer) headerResult(line string, edit types.Edit, err error) []lexEvent {
	if err != nil {
		return l.headerError(line, err.Error())
	}
	return []lexEvent{openedEvent(edit.File, edit.Kind), closedEvent(edit)}
}

func (l *replacementLexer) headerError(line, msg string) []lexEvent {
	return []lexEvent{errorEvent(&LexError{
		Format:  types.FormatReplacement,
		Line:    l.buf.Line(),
		Snippet: truncateSnippet(line),
		Message: msg,
	}, true)}
}

// parseLineField extracts the integer from "name=<n>", rejecting the wrong
// name and non-integer values.
func parseLineField(field, name string) (int, error) {
	val, ok := strings.CutPrefix(field, name+"=")
	if !ok {
		return 0, fmt.Errorf("expected %s=<n>, got %q", name, field)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s value %q is not an integer", name, val)
	}
	return n, nil
}
