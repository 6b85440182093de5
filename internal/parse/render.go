// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package parse

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avasek/tailor/pkg/types"
)

// Render serializes an edit list into wire text for a line-number-explicit
// format, the inverse of that format's lexer. Prompt construction uses it
// for worked examples; the round-trip tests rely on parse(render(edits))
// reproducing the list. The diff-style and JSON formats are rendered for
// prompts by hand-written examples instead, since their output depends on
// file content or is trivially static.
func Render(format types.Format, edits []types.Edit) (string, error) {
	switch format {
	case types.FormatBlock:
		return renderBlock(edits)
	case types.FormatReplacement:
		return renderReplacement(edits)
	}
	return "", fmt.Errorf("format %q has no renderer", format)
}

func renderReplacement(edits []types.Edit) (string, error) {
	var b strings.Builder
	for _, e := range edits {
		switch e.Kind {
		case types.KindCreation:
			fmt.Fprintf(&b, "@ %s +\n", e.File)
			if len(e.Lines) > 0 {
				// The dialect's creation directive is bodiless; seed content
				// rides along as an insertion at the top of the new file.
				fmt.Fprintf(&b, "@ %s insert_line=1\n", e.File)
				writeBody(&b, e.Lines)
			}
		case types.KindDeletion:
			fmt.Fprintf(&b, "@ %s -\n", e.File)
		case types.KindRename:
			fmt.Fprintf(&b, "@ %s %s\n", e.File, e.NewFile)
		case types.KindReplacement:
			if e.Interval.IsInsertion() {
				fmt.Fprintf(&b, "@ %s insert_line=%d\n", e.File, e.Interval.Start)
			} else {
				fmt.Fprintf(&b, "@ %s starting_line=%d ending_line=%d\n", e.File, e.Interval.Start, e.Interval.End)
			}
			writeBody(&b, e.Lines)
		default:
			return "", fmt.Errorf("cannot render edit kind %v", e.Kind)
		}
	}
	return b.String(), nil
}

func writeBody(b *strings.Builder, lines []string) {
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString("@\n")
}

func renderBlock(edits []types.Edit) (string, error) {
	var b strings.Builder
	for _, e := range edits {
		hdr := blockHeaderSpec{File: e.File}
		var body []string
		switch e.Kind {
		case types.KindCreation:
			hdr.Action = "create-file"
			body = e.Lines
		case types.KindDeletion:
			hdr.Action = "delete-file"
		case types.KindRename:
			hdr.Action = "rename-file"
			hdr.Name = e.NewFile
		case types.KindReplacement:
			switch {
			case e.Interval.IsInsertion():
				hdr.Action = "insert"
				after := e.Interval.Start - 1
				before := e.Interval.Start
				hdr.InsertAfter = &after
				hdr.InsertBefore = &before
				body = e.Lines
			case len(e.Lines) == 0:
				hdr.Action = "delete"
				start, end := e.Interval.Start, e.Interval.End-1
				hdr.StartLine = &start
				hdr.EndLine = &end
			default:
				hdr.Action = "replace"
				start, end := e.Interval.Start, e.Interval.End-1
				hdr.StartLine = &start
				hdr.EndLine = &end
				body = e.Lines
			}
		default:
			return "", fmt.Errorf("cannot render edit kind %v", e.Kind)
		}

		raw, err := json.MarshalIndent(hdr, "", "    ")
		if err != nil {
			return "", fmt.Errorf("marshal block header: %w", err)
		}
		b.WriteString(blockStartMarker)
		b.WriteByte('\n')
		b.Write(raw)
		b.WriteByte('\n')
		if body != nil {
			b.WriteString(blockCodeMarker)
			b.WriteByte('\n')
			for _, l := range body {
				b.WriteString(l)
				b.WriteByte('\n')
			}
		}
		b.WriteString(blockEndMarker)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
