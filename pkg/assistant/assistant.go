// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

// Package assistant defines the public interface for tailor, an
// interactive LLM coding assistant that streams model responses into
// reviewable, undoable file edits.
package assistant

import (
	"context"
	"errors"

	"github.com/avasek/tailor/internal/llm"
	"github.com/avasek/tailor/pkg/types"
)

// Error types for the Assistant API.
var (
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLLMFailure marks provider construction and streaming failures.
	ErrLLMFailure   = llm.ErrLLMFailure
	ErrNoEdits      = errors.New("no edits parsed from response")
	ErrApplyFailure = errors.New("failed to apply edits")
)

// Config configures an Assistant instance.
type Config struct {
	WorkDir  string // Working tree root (required)
	Provider string // "bedrock" (default) or "anthropic"
	Model    string // Model identifier (required)
	Region   string // Bedrock: AWS region
	Profile  string // Bedrock: AWS credential profile (optional)
	APIKey   string // Anthropic: API key (falls back to ANTHROPIC_API_KEY)

	Format      string // Edit notation: block (default), replacement, udiff, json
	DirtyPolicy string // Uncommitted changes at start: fail, commit, ignore (default)

	AutoCommit  bool // Commit applied turns with a generated message
	AutoApprove bool // Apply edits without the confirmation prompt
	NoGit       bool // Disable git integration
	NoMap       bool // Disable the code map
	NoStore     bool // Disable transcript storage

	ContextGlobs []string // Files included verbatim in the prompt
	ExcludeGlobs []string // Files excluded from the prompt and the code map

	MapTokenBudget int // Token budget for the code map (default 4096)
	MaxTokens      int // Maximum tokens for the model response (default 4096)

	Resume    string // Session ID to resume; empty starts a new session
	StorePath string // Transcript database path; empty uses the data dir
}

// FileOutcome reports what happened to one file during a turn.
type FileOutcome struct {
	Path    string
	OldPath string // Set for renames
	Op      string // created, edited, renamed, deleted
	Error   string // Empty on success
}

// Result holds the outcome of an Assistant.Run invocation.
type Result struct {
	SessionID   string           // Transcript session this turn belongs to
	Commentary  string           // Prose the model wrote around its edits
	Files       []FileOutcome    // Per-file application outcomes
	EditsParsed int              // Edits that survived parsing
	Declined    bool             // Edits were proposed and the user said no
	Interrupted bool             // The stream was cut short by an interrupt
	TokensUsed  types.TokenUsage // Tokens consumed by this turn
	Retries     int              // Provider retry attempts during streaming
	Success     bool             // True when nothing failed
}

// Assistant runs coding tasks against a working tree and manages the
// resulting edit history.
type Assistant interface {
	// Run executes one conversation turn: assemble context, stream the
	// model's response through the edit parser, preview, confirm, apply.
	Run(ctx context.Context, task string) (*Result, error)

	// Undo reverts the most recently applied turn.
	Undo() error

	// Redo replays the most recently undone turn.
	Redo() error

	// UndoAll unwinds every applied turn, newest first.
	UndoAll() error

	// Close releases the transcript store.
	Close() error
}
