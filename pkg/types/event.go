// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package types

// EventKind identifies the variant of a display event.
type EventKind int

const (
	EventCommentary   EventKind = iota // Free text from the model, echoed verbatim
	EventEditOpened                    // An edit block header was recognized
	EventEditProgress                  // Body lines consumed so far for the open edit
	EventEditClosed                    // An edit was finalized and resolved
	EventParseFailure                  // A lex or resolution error was recorded
)

// Event is one entry in the live display stream the parser emits while the
// model is still generating. Events flow over a single-producer
// single-consumer channel: the parser goroutine produces, the display
// goroutine consumes.
type Event struct {
	Kind EventKind

	Text  string // Commentary text, or failure message
	Color string // Optional display color hint for commentary

	File     string   // Target file (opened/closed/failure events)
	EditKind EditKind // Edit variant (EventEditOpened, EventEditClosed)
	Lines    int      // Body lines consumed so far (EventEditProgress)
	Interval Interval // Resolved target range (EventEditClosed)
	Content  []string // Resolved replacement lines (EventEditClosed)
	Scope    string   // Failure scope: file path, hunk, or dialect name
}
