// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package display

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	diff "github.com/shogoki/gotextdiff"

	"github.com/avasek/tailor/internal/apply"
	"github.com/avasek/tailor/pkg/types"
)

var (
	addColor    = color.New(color.FgGreen)
	removeColor = color.New(color.FgRed)
	hunkColor   = color.New(color.FgCyan)
)

// ShowPreviews renders the pending changes as unified diffs, one block
// per file, before the user confirms. Files the application would
// reject are listed with their predicted failure instead of a diff.
func (d *Display) ShowPreviews(previews []*apply.FilePreview) {
	if len(previews) == 0 {
		return
	}
	d.Headerf("--- Proposed Changes ---")
	for _, pv := range previews {
		d.showPreview(pv)
	}
}

func (d *Display) showPreview(pv *apply.FilePreview) {
	if pv.Failure != nil {
		errorColor.Fprintf(d.out, "cannot apply %s: %v\n", pv.Path, pv.Failure)
		return
	}
	if !pv.Changed() {
		return
	}

	switch {
	case pv.Created:
		headerColor.Fprintf(d.out, "Create: %s\n", pv.Path)
	case pv.Deleted:
		headerColor.Fprintf(d.out, "Delete: %s\n", pv.Path)
	case pv.OldPath != "":
		header := fmt.Sprintf("Rename: %s -> %s", pv.OldPath, pv.Path)
		if len(pv.Intervals) > 0 {
			header += " (" + formatIntervals(pv.Intervals) + ")"
		}
		headerColor.Fprintln(d.out, header)
	default:
		headerColor.Fprintf(d.out, "Edit: %s (%s)\n", pv.Path, formatIntervals(pv.Intervals))
	}

	body := diff.Diff(pv.Path, []byte(pv.Old), pv.Path, []byte(pv.New))
	d.writeDiff(string(body))
}

// writeDiff colorizes a unified diff body, dropping the file headers;
// the preview header above already names the file.
func (d *Display) writeDiff(text string) {
	for _, line := range strings.Split(text, "\n") {
		if line == "" ||
			strings.HasPrefix(line, "diff ") ||
			strings.HasPrefix(line, "--- ") ||
			strings.HasPrefix(line, "+++ ") {
			continue
		}
		switch line[0] {
		case '@':
			hunkColor.Fprintln(d.out, line)
		case '+':
			addColor.Fprintln(d.out, line)
		case '-':
			removeColor.Fprintln(d.out, line)
		default:
			fmt.Fprintln(d.out, line)
		}
	}
}

// formatIntervals renders merged line ranges compactly: "lines 3-5, 9";
// a pure insertion point shows as "at N".
func formatIntervals(ivs []types.Interval) string {
	if len(ivs) == 0 {
		return "no lines"
	}
	if len(ivs) == 1 && ivs[0].IsInsertion() {
		return fmt.Sprintf("insert at line %d", ivs[0].Start)
	}
	parts := make([]string, 0, len(ivs))
	for _, iv := range ivs {
		switch {
		case iv.IsInsertion():
			parts = append(parts, fmt.Sprintf("at %d", iv.Start))
		case iv.Len() == 1:
			parts = append(parts, fmt.Sprintf("%d", iv.Start))
		default:
			parts = append(parts, fmt.Sprintf("%d-%d", iv.Start, iv.End-1))
		}
	}
	return "lines " + strings.Join(parts, ", ")
}
