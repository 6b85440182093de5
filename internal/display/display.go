// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

// Package display renders the conversation on the terminal: live parse
// events while the model streams, diff previews before application, and
// summaries after. Output goes to the terminal, never the log; colors
// degrade automatically when stdout is not a TTY.
package display

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/avasek/tailor/internal/apply"
	"github.com/avasek/tailor/internal/history"
	"github.com/avasek/tailor/pkg/types"
)

var (
	headerColor  = color.New(color.FgBlue, color.Bold)
	fileColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	promptColor  = color.New(color.FgMagenta)
	dimColor     = color.New(color.FgHiBlack)
)

// hintColors maps commentary color hints to terminal styles. Unknown
// hints fall back to plain text.
var hintColors = map[string]*color.Color{
	"red":     errorColor,
	"green":   successColor,
	"yellow":  warningColor,
	"blue":    headerColor,
	"cyan":    fileColor,
	"magenta": promptColor,
	"dim":     dimColor,
}

// Display writes the human-facing stream. One instance serves one
// process; methods are called from the session goroutine except render,
// which runs on the Watch goroutine.
type Display struct {
	out io.Writer
	in  *bufio.Reader
	log *zap.Logger

	progressLen int
}

// New builds a Display on the process terminal.
func New(log *zap.Logger) *Display {
	return NewWithStreams(os.Stdout, os.Stdin, log)
}

// NewWithStreams builds a Display with explicit streams, used by tests.
func NewWithStreams(out io.Writer, in io.Reader, log *zap.Logger) *Display {
	if log == nil {
		log = zap.NewNop()
	}
	return &Display{out: out, in: bufio.NewReader(in), log: log}
}

// Watch consumes parser events on a new goroutine. The returned channel
// closes once the parser closes its event stream; callers must wait on
// it before printing anything else.
func (d *Display) Watch(events <-chan types.Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			d.render(ev)
		}
		d.clearProgress()
	}()
	return done
}

func (d *Display) render(ev types.Event) {
	switch ev.Kind {
	case types.EventCommentary:
		d.clearProgress()
		if c, ok := hintColors[ev.Color]; ok {
			c.Fprintln(d.out, ev.Text)
		} else {
			fmt.Fprintln(d.out, ev.Text)
		}

	case types.EventEditOpened:
		d.clearProgress()
		fileColor.Fprintf(d.out, "> %s: %s\n", ev.EditKind, ev.File)

	case types.EventEditProgress:
		line := fmt.Sprintf("  ... %d lines", ev.Lines)
		dimColor.Fprintf(d.out, "\r%s", line)
		d.progressLen = len(line)

	case types.EventEditClosed:
		d.clearProgress()
		successColor.Fprintf(d.out, "%s\n", describeClosed(ev))

	case types.EventParseFailure:
		d.clearProgress()
		errorColor.Fprintf(d.out, "parse error: %s\n", ev.Text)
	}
}

// clearProgress erases an in-place progress line before the next full
// line is printed.
func (d *Display) clearProgress() {
	if d.progressLen == 0 {
		return
	}
	fmt.Fprintf(d.out, "\r%s\r", strings.Repeat(" ", d.progressLen))
	d.progressLen = 0
}

func describeClosed(ev types.Event) string {
	switch ev.EditKind {
	case types.KindReplacement:
		if ev.Interval.IsInsertion() {
			return fmt.Sprintf("insert %s before line %d (+%d lines)", ev.File, ev.Interval.Start, len(ev.Content))
		}
		return fmt.Sprintf("replace %s %s (+%d lines)", ev.File, ev.Interval, len(ev.Content))
	case types.KindCreation:
		return fmt.Sprintf("create %s (%d lines)", ev.File, len(ev.Content))
	case types.KindDeletion:
		return fmt.Sprintf("delete %s", ev.File)
	case types.KindRename:
		return fmt.Sprintf("rename %s", ev.File)
	default:
		return fmt.Sprintf("edit %s", ev.File)
	}
}

// Confirm prints the prompt and reads one line from the input stream.
// Only an explicit yes applies.
func (d *Display) Confirm(prompt string) bool {
	promptColor.Fprintf(d.out, "%s (y/N): ", prompt)
	line, err := d.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Headerf prints a bold section header.
func (d *Display) Headerf(format string, a ...any) {
	headerColor.Fprintf(d.out, format+"\n", a...)
}

// Infof prints a plain informational line.
func (d *Display) Infof(format string, a ...any) {
	fmt.Fprintf(d.out, format+"\n", a...)
}

// Warnf prints a warning line.
func (d *Display) Warnf(format string, a ...any) {
	warningColor.Fprintf(d.out, format+"\n", a...)
}

// Errorf prints an error line.
func (d *Display) Errorf(format string, a ...any) {
	errorColor.Fprintf(d.out, format+"\n", a...)
}

// ShowRetry reports a rate-limit backoff while the stream is quiet.
func (d *Display) ShowRetry(attempt int, wait time.Duration) {
	warningColor.Fprintf(d.out, "rate limited, retrying in %s (attempt %d)\n", wait, attempt)
}

// ShowUsage prints the turn's token accounting.
func (d *Display) ShowUsage(usage types.TokenUsage, retries int) {
	line := fmt.Sprintf("tokens: %d in / %d out", usage.InputTokens, usage.OutputTokens)
	if retries > 0 {
		line += fmt.Sprintf(", %d retries", retries)
	}
	dimColor.Fprintln(d.out, line)
}

// ShowApplyResult summarizes one application: what landed, grouped by
// operation, then what failed and why.
func (d *Display) ShowApplyResult(res *apply.Result) {
	var edited, created, deleted, renamed, failed []*apply.FileResult
	for _, fr := range res.Files {
		switch {
		case fr.Failure != nil:
			failed = append(failed, fr)
		case fr.Created:
			created = append(created, fr)
		case fr.Deleted:
			deleted = append(deleted, fr)
		case fr.OldPath != "":
			renamed = append(renamed, fr)
		default:
			edited = append(edited, fr)
		}
	}

	d.Headerf("--- Apply Summary ---")
	if len(res.Files) == 0 {
		d.Infof("No files were touched.")
		return
	}

	if len(edited) > 0 {
		successColor.Fprintf(d.out, "Edited %d file(s):\n", len(edited))
		for _, fr := range edited {
			fmt.Fprintf(d.out, "  - %s (%d edits)\n", fr.Path, fr.Edits)
		}
	}
	if len(created) > 0 {
		successColor.Fprintf(d.out, "Created %d file(s):\n", len(created))
		for _, fr := range created {
			fmt.Fprintf(d.out, "  - %s\n", fr.Path)
		}
	}
	if len(renamed) > 0 {
		successColor.Fprintf(d.out, "Renamed %d file(s):\n", len(renamed))
		for _, fr := range renamed {
			fmt.Fprintf(d.out, "  - %s -> %s\n", fr.OldPath, fr.Path)
		}
	}
	if len(deleted) > 0 {
		successColor.Fprintf(d.out, "Deleted %d file(s):\n", len(deleted))
		for _, fr := range deleted {
			fmt.Fprintf(d.out, "  - %s\n", fr.Path)
		}
	}
	if len(failed) > 0 {
		errorColor.Fprintf(d.out, "Failed %d file(s):\n", len(failed))
		for _, fr := range failed {
			fmt.Fprintf(d.out, "  - %s: %v\n", fr.Path, fr.Failure)
		}
	}
}

// ShowUndoReport summarizes an undo. Out-of-band changes were already
// overwritten by the time this prints; the warning is mandatory.
func (d *Display) ShowUndoReport(rep *history.Report) {
	for _, path := range rep.OutOfBand {
		d.Warnf("warning: %s changed outside this session; undo discarded those changes", path)
	}
	if len(rep.Restored) > 0 {
		successColor.Fprintf(d.out, "Restored %d file(s):\n", len(rep.Restored))
		for _, path := range rep.Restored {
			fmt.Fprintf(d.out, "  - %s\n", path)
		}
	}
	if len(rep.Removed) > 0 {
		successColor.Fprintf(d.out, "Removed %d created file(s):\n", len(rep.Removed))
		for _, path := range rep.Removed {
			fmt.Fprintf(d.out, "  - %s\n", path)
		}
	}
	if len(rep.Failures) > 0 {
		errorColor.Fprintf(d.out, "Failed to restore %d file(s):\n", len(rep.Failures))
		for path, err := range rep.Failures {
			fmt.Fprintf(d.out, "  - %s: %v\n", path, err)
		}
	}
}
