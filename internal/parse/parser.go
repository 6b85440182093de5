// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package parse

import (
	"errors"
	"io/fs"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/avasek/tailor/pkg/types"
)

// State is the parser's position in the stream.
type State int

const (
	StateAwaitingContent State = iota
	StateInCommentary
	StateInEditHeader
	StateInEditBody
	StateFinalizing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingContent:
		return "awaiting-content"
	case StateInCommentary:
		return "in-commentary"
	case StateInEditHeader:
		return "in-edit-header"
	case StateInEditBody:
		return "in-edit-body"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// FileReader supplies current file content for second-pass hunk
// resolution. Missing files must surface as fs.ErrNotExist.
type FileReader interface {
	ReadFile(path string) (string, error)
}

// eventBuffer sizes the display channel. The consumer is expected to drain
// while the parser feeds; the buffer only absorbs scheduling jitter.
const eventBuffer = 4096

// Outcome is the finalized result of one parsed turn.
type Outcome struct {
	Edits            []types.Edit
	Commentary       string
	LexErrors        []*LexError
	ResolutionErrors []*ResolutionError
	Interrupted      bool
	BlocksParsed     int // Edits and hunks successfully closed
	BlocksDiscarded  int // Blocks consumed by lex errors
}

// HasEdits reports whether any edit survived parsing.
func (o *Outcome) HasEdits() bool {
	return len(o.Edits) > 0
}

// Annotations renders every recorded error as a display line.
func (o *Outcome) Annotations() []string {
	var out []string
	for _, e := range o.LexErrors {
		out = append(out, e.Error())
	}
	for _, e := range o.ResolutionErrors {
		out = append(out, e.Error())
	}
	return out
}

// StreamParser drives one format lexer over a chunked model response,
// tracks the stream state machine, emits live display events, and runs the
// second resolution pass for diff-style dialects. One instance serves one
// turn. Feed and Finish must be called from a single goroutine; Interrupt
// may be called from any goroutine.
type StreamParser struct {
	format types.Format
	lexer  Lexer
	reader FileReader
	log    *zap.Logger

	events      chan types.Event
	interrupted atomic.Bool

	state      State
	commentary strings.Builder
	edits      []types.Edit
	lexErrs    []*LexError
	resErrs    []*ResolutionError

	pending    map[string][]*hunk // hunks per file awaiting resolution
	createdIdx map[string]int     // file -> index of its Creation edit this turn

	openLines int

	blocksParsed    int
	blocksDiscarded int

	outcome *Outcome
}

// NewStreamParser builds a parser for the given format. reader feeds the
// second pass; it is only consulted for diff-style dialects. A nil logger
// disables debug logging.
func NewStreamParser(format types.Format, reader FileReader, log *zap.Logger) (*StreamParser, error) {
	lexer, err := NewLexer(format)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StreamParser{
		format:     format,
		lexer:      lexer,
		reader:     reader,
		log:        log,
		events:     make(chan types.Event, eventBuffer),
		pending:    make(map[string][]*hunk),
		createdIdx: make(map[string]int),
	}, nil
}

// Events returns the live display stream. The channel closes when Finish
// completes; the consumer should drain it while the parser feeds.
func (p *StreamParser) Events() <-chan types.Event {
	return p.events
}

// State returns the parser's current position in the stream.
func (p *StreamParser) State() State {
	return p.state
}

// Interrupt requests cooperative cancellation. The parser observes the
// flag at the next chunk boundary or completed edit, then finalizes with
// only the edits fully closed so far. Interruption is not an error.
func (p *StreamParser) Interrupt() {
	p.interrupted.Store(true)
}

// Interrupted reports whether cancellation was requested.
func (p *StreamParser) Interrupted() bool {
	return p.interrupted.Load()
}

// Feed consumes the next chunk of the model's output. Chunk boundaries are
// arbitrary; incomplete trailing lines are buffered internally.
func (p *StreamParser) Feed(chunk string) {
	if p.state == StateFinalizing || p.state == StateDone {
		return
	}
	if p.interrupted.Load() {
		return
	}
	p.handle(p.lexer.ConsumeChunk(chunk))
}

// Finish finalizes the turn: flushes the lexer (unless interrupted, which
// discards partially open edits), resolves pending hunks, closes the event
// channel, and returns the outcome. Finish is idempotent.
func (p *StreamParser) Finish() *Outcome {
	if p.outcome != nil {
		return p.outcome
	}
	p.state = StateFinalizing
	if !p.interrupted.Load() {
		p.handle(p.lexer.Finalize())
	}
	p.resolveAllPending()

	p.outcome = &Outcome{
		Edits:            p.edits,
		Commentary:       p.commentary.String(),
		LexErrors:        p.lexErrs,
		ResolutionErrors: p.resErrs,
		Interrupted:      p.interrupted.Load(),
		BlocksParsed:     p.blocksParsed,
		BlocksDiscarded:  p.blocksDiscarded,
	}
	p.state = StateDone
	close(p.events)
	p.log.Debug("parse finished",
		zap.String("format", string(p.format)),
		zap.Int("edits", len(p.outcome.Edits)),
		zap.Int("lex_errors", len(p.outcome.LexErrors)),
		zap.Int("resolution_errors", len(p.outcome.ResolutionErrors)),
		zap.Bool("interrupted", p.outcome.Interrupted))
	return p.outcome
}

func (p *StreamParser) handle(events []lexEvent) {
	for _, ev := range events {
		switch ev.kind {
		case lexCommentary:
			p.setState(StateInCommentary)
			p.commentary.WriteString(ev.text)
			p.commentary.WriteByte('\n')
			p.emit(types.Event{Kind: types.EventCommentary, Text: ev.text})

		case lexHeaderStarted:
			p.setState(StateInEditHeader)

		case lexEditOpened:
			p.setState(StateInEditBody)
			p.openLines = 0
			p.emit(types.Event{Kind: types.EventEditOpened, File: ev.file, EditKind: ev.editKind})

		case lexBodyLine:
			p.setState(StateInEditBody)
			p.openLines++
			p.emit(types.Event{Kind: types.EventEditProgress, File: ev.file, Lines: p.openLines})

		case lexEditClosed:
			p.closeEdit(ev.edit)
			if p.interrupted.Load() && p.state != StateFinalizing {
				// Next suspension point: keep what is closed, stop consuming.
				return
			}

		case lexHunkClosed:
			p.pending[ev.file] = append(p.pending[ev.file], ev.hunk)
			p.blocksParsed++
			p.setState(StateInCommentary)
			if p.interrupted.Load() && p.state != StateFinalizing {
				return
			}

		case lexFileDone:
			p.resolveFile(ev.file)

		case lexError:
			p.lexErrs = append(p.lexErrs, ev.err)
			if ev.discarded {
				p.blocksDiscarded++
			}
			p.setState(StateInCommentary)
			p.emit(types.Event{
				Kind:  types.EventParseFailure,
				Text:  ev.err.Error(),
				Scope: string(ev.err.Format),
			})
		}
	}
}

// closeEdit publishes a finalized edit from a numbered dialect or a file
// operation header.
func (p *StreamParser) closeEdit(edit types.Edit) {
	if edit.Kind == types.KindCreation {
		p.createdIdx[edit.File] = len(p.edits)
	}
	p.edits = append(p.edits, edit)
	p.blocksParsed++
	p.setState(StateInCommentary)
	p.emit(types.Event{
		Kind:     types.EventEditClosed,
		File:     edit.File,
		EditKind: edit.Kind,
		Interval: edit.Interval,
		Content:  edit.Lines,
	})
	p.log.Debug("edit closed", zap.String("edit", edit.String()))
}

// resolveFile runs the second pass over a file's collected hunks. Files
// created this turn resolve against their evolving virtual content and fold
// the result back into the creation edit; existing files resolve every hunk
// against the same on-disk baseline so the finalized intervals compose
// under bottom-to-top application.
func (p *StreamParser) resolveFile(file string) {
	hunks := p.pending[file]
	delete(p.pending, file)
	if len(hunks) == 0 {
		return
	}

	if idx, created := p.createdIdx[file]; created {
		p.resolveCreated(file, idx, hunks)
		return
	}

	fileLines, missing, err := p.readLines(file)
	if err != nil {
		p.resolutionFailure(&ResolutionError{File: file, Message: err.Error()})
		return
	}
	if missing {
		p.resolutionFailure(&ResolutionError{File: file, Message: "target file does not exist"})
		return
	}

	searchFrom := 0
	for i, h := range hunks {
		edit, next, resErr := resolveHunk(fileLines, h, searchFrom, i+1)
		if resErr != nil {
			p.resolutionFailure(resErr)
			continue
		}
		searchFrom = next
		p.closeEdit(edit)
	}
}

// resolveCreated folds hunks for a file created this turn into the
// creation edit itself, applying each hunk to the virtual content in order.
func (p *StreamParser) resolveCreated(file string, editIdx int, hunks []*hunk) {
	virtual := append([]string(nil), p.edits[editIdx].Lines...)
	for i, h := range hunks {
		edit, _, resErr := resolveHunk(virtual, h, len(virtual), i+1)
		if resErr != nil {
			p.resolutionFailure(resErr)
			continue
		}
		virtual = types.SpliceLines(virtual, edit.Interval, edit.Lines)
		p.emit(types.Event{
			Kind:     types.EventEditClosed,
			File:     file,
			EditKind: types.KindReplacement,
			Interval: edit.Interval,
			Content:  edit.Lines,
		})
		p.blocksParsed++
	}
	p.edits[editIdx].Lines = virtual
}

func (p *StreamParser) resolutionFailure(resErr *ResolutionError) {
	p.resErrs = append(p.resErrs, resErr)
	p.emit(types.Event{
		Kind:  types.EventParseFailure,
		Text:  resErr.Error(),
		File:  resErr.File,
		Scope: resErr.File,
	})
	p.log.Debug("hunk resolution failed", zap.String("file", resErr.File), zap.String("reason", resErr.Message))
}

// resolveAllPending drains files whose hunks never saw an explicit
// end-of-file marker before the stream stopped.
func (p *StreamParser) resolveAllPending() {
	for file := range p.pending {
		p.resolveFile(file)
	}
}

func (p *StreamParser) readLines(path string) ([]string, bool, error) {
	if p.reader == nil {
		return nil, true, nil
	}
	content, err := p.reader.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, true, nil
		}
		return nil, false, err
	}
	return types.SplitLines(content), false, nil
}

func (p *StreamParser) setState(s State) {
	if p.state == StateFinalizing || p.state == StateDone {
		return
	}
	p.state = s
}

func (p *StreamParser) emit(ev types.Event) {
	p.events <- ev
}

