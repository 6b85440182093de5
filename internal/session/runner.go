// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/avasek/tailor/internal/apply"
	"github.com/avasek/tailor/internal/codemap"
	"github.com/avasek/tailor/internal/display"
	"github.com/avasek/tailor/internal/gitrepo"
	"github.com/avasek/tailor/internal/history"
	"github.com/avasek/tailor/internal/llm"
	"github.com/avasek/tailor/internal/parse"
	"github.com/avasek/tailor/pkg/types"
)

// defaultMaxFileSize caps files included verbatim in the prompt.
const defaultMaxFileSize = 32 * 1024

// Config holds per-session settings.
type Config struct {
	WorkDir      string
	Model        string // Recorded on the session row; the provider holds the effective model
	Format       types.Format
	AutoApprove  bool     // Skip the confirmation prompt before applying
	ContextGlobs []string // Files sent verbatim in the prompt
	ExcludeGlobs []string // Files dropped from the prompt and the code map
	MapBudget    float64  // Code map token budget; 0 uses the default
	MaxFileSize  int64    // Per-file cap for verbatim context; 0 uses the default
	HistoryPath  string   // Undo state checkpoint; empty disables persistence
	Resume       string   // Session ID to resume; empty starts fresh
}

// Deps holds injected dependencies for the runner.
type Deps struct {
	Provider llm.Provider
	FS       *apply.DirFS
	Display  *display.Display
	Store    Store            // nil falls back to NoopStore
	Repo     *gitrepo.Repo    // nil outside a git repository
	Maps     *codemap.Builder // nil disables the code map
	History  *history.Stack
	Log      *zap.Logger
}

// Runner drives the conversation: it assembles prompt context, streams
// the model's response through the edit parser, and applies confirmed
// edits. One Runner serves one session; turns share the conversation
// history and the code map extraction cache.
type Runner struct {
	cfg     Config
	deps    Deps
	applier *apply.Applier

	id       string // session record ID, set lazily on the first turn
	prev     []types.Message
	lastResp string
	digest   string // working tree fingerprint taken before streaming
}

// TurnResult summarizes one completed turn.
type TurnResult struct {
	SessionID string
	Response  string
	Outcome   *parse.Outcome
	Applied   *apply.Result // nil when nothing was applied
	Declined  bool          // edits were proposed and the user said no
	Usage     types.TokenUsage
	Retries   int
}

// NewRunner validates dependencies and fills defaults.
func NewRunner(cfg Config, deps Deps) (*Runner, error) {
	if deps.Provider == nil {
		return nil, errors.New("session: provider is required")
	}
	if deps.FS == nil {
		return nil, errors.New("session: filesystem is required")
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Store == nil {
		deps.Store = &NoopStore{}
	}
	if deps.Display == nil {
		deps.Display = display.New(deps.Log)
	}
	if deps.History == nil {
		deps.History = history.NewStack(deps.FS, deps.Log)
	}
	if cfg.Format == "" {
		cfg.Format = types.FormatBlock
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	return &Runner{
		cfg:     cfg,
		deps:    deps,
		applier: apply.NewApplier(deps.FS, deps.Log),
	}, nil
}

// SessionID returns the session record ID, or "" before the first turn.
func (r *Runner) SessionID() string { return r.id }

// Run executes one conversation turn: context assembly, streaming,
// parsing, preview, confirmation, application, undo recording, commit.
func (r *Runner) Run(ctx context.Context, task string) (*TurnResult, error) {
	result := &TurnResult{}

	if err := r.ensureSession(ctx, task); err != nil {
		return result, err
	}
	result.SessionID = r.id

	// Step 1: settle the working tree per the dirty policy, then
	// fingerprint it so post-stream drift is detectable.
	if r.deps.Repo.Enabled() {
		if err := r.deps.Repo.HandleDirty(); err != nil {
			return result, fmt.Errorf("handling dirty working tree: %w", err)
		}
		if digest, err := r.deps.Repo.StatusDigest(); err == nil {
			r.digest = digest
		}
	}

	// Step 2: read the files included verbatim in the prompt.
	files, err := r.readContextFiles()
	if err != nil {
		return result, err
	}

	// Step 3: build the code map, focused on the included files.
	codeMap := r.buildCodeMap(ctx, files)

	// Step 4: render the system prompt for the configured edit format.
	system, err := llm.RenderSystemPrompt(r.cfg.Format)
	if err != nil {
		return result, err
	}

	// Step 5: construct the conversation messages.
	messages := r.constructMessages(codeMap, files, task)

	// Step 6: stream the response through the edit parser while the
	// display renders its events.
	parser, err := parse.NewStreamParser(r.cfg.Format, r.deps.FS, r.deps.Log)
	if err != nil {
		return result, err
	}
	rendered := r.deps.Display.Watch(parser.Events())

	response, streamErr := r.stream(ctx, llm.Request{
		System:   system,
		Messages: messages,
	}, parser, result)

	outcome := parser.Finish()
	<-rendered
	result.Response = response
	result.Outcome = outcome

	if streamErr != nil {
		r.finishTurn(task, response, result, StatusError)
		return result, fmt.Errorf("streaming response: %w", streamErr)
	}

	// Step 7: surface parse annotations and token usage.
	for _, note := range outcome.Annotations() {
		r.deps.Display.Errorf("%s", note)
	}
	r.deps.Display.ShowUsage(result.Usage, result.Retries)

	r.prev = messages
	r.lastResp = response

	if !outcome.HasEdits() {
		r.finishTurn(task, response, result, turnStatus(outcome))
		return result, nil
	}

	// Step 8: preview the edits and ask before touching the tree.
	previews := r.applier.Preview(outcome.Edits)
	r.deps.Display.ShowPreviews(previews)

	if !r.cfg.AutoApprove {
		prompt := fmt.Sprintf("Apply %d edit(s) to %d file(s)?", len(outcome.Edits), len(previews))
		if !r.deps.Display.Confirm(prompt) {
			result.Declined = true
			r.deps.Display.Infof("edits discarded")
			r.finishTurn(task, response, result, turnStatus(outcome))
			return result, nil
		}
	}

	// Step 9: warn when the tree moved underneath the proposal.
	r.warnDrift(previews)

	// Step 10: apply, record undo state, auto-commit.
	res := r.applier.Apply(outcome.Edits)
	result.Applied = res
	r.deps.Display.ShowApplyResult(res)

	if r.deps.History.Record(outcome.Edits, res) {
		r.persistHistory()
	}
	if res.Succeeded() > 0 {
		r.autoCommit(res, task)
	}

	r.finishTurn(task, response, result, turnStatus(outcome))
	return result, nil
}

// ensureSession creates the session record on the first turn, or loads
// the resumed session's transcript into the conversation state.
func (r *Runner) ensureSession(ctx context.Context, task string) error {
	if r.id != "" {
		return nil
	}

	if r.cfg.Resume != "" {
		sess, err := r.deps.Store.Get(ctx, r.cfg.Resume)
		if err != nil {
			return fmt.Errorf("resuming session %s: %w", r.cfg.Resume, err)
		}
		if sess == nil {
			return fmt.Errorf("session %s not found", r.cfg.Resume)
		}
		rows, err := r.deps.Store.Messages(ctx, sess.ID)
		if err != nil {
			return fmt.Errorf("loading session transcript: %w", err)
		}
		r.prev, r.lastResp = conversationFromTranscript(rows)
		r.id = sess.ID
		if err := r.deps.Store.SetStatus(ctx, r.id, StatusActive); err != nil {
			r.deps.Log.Debug("marking session active", zap.Error(err))
		}
		r.deps.Display.Infof("resumed session %s (%d prior messages)", sess.ID, len(rows))
		return nil
	}

	rec := &Session{
		ID:       NewID(),
		Title:    TruncateTitle(task),
		Provider: r.deps.Provider.Name(),
		Model:    r.cfg.Model,
		WorkDir:  r.cfg.WorkDir,
		Status:   StatusActive,
	}
	if err := r.deps.Store.Create(ctx, rec); err != nil {
		return fmt.Errorf("creating session record: %w", err)
	}
	r.id = rec.ID
	return nil
}

// conversationFromTranscript rebuilds the model conversation from stored
// rows. Only user and assistant rows participate; a trailing assistant
// row becomes the response the next follow-up extends.
func conversationFromTranscript(rows []Message) (prev []types.Message, lastResp string) {
	var msgs []types.Message
	for _, m := range rows {
		if m.Role != types.RoleUser && m.Role != types.RoleAssistant {
			continue
		}
		msgs = append(msgs, types.Message{Role: m.Role, Content: m.Content})
	}
	if n := len(msgs); n > 0 && msgs[n-1].Role == types.RoleAssistant {
		return msgs[:n-1], msgs[n-1].Content
	}
	return msgs, ""
}

// constructMessages builds the turn's message list. The first turn sends
// the full context; follow-ups extend the prior conversation instead of
// resending it.
func (r *Runner) constructMessages(codeMap string, files []types.FileContent, task string) []types.Message {
	switch {
	case len(r.prev) == 0 && r.lastResp == "":
		return llm.ConstructMessages(codeMap, files, task)
	case r.lastResp != "":
		return llm.ConstructFollowUp(r.prev, r.lastResp, task)
	default:
		// Resumed transcript ended on a user message; append rather
		// than fabricate an assistant turn.
		messages := append([]types.Message(nil), r.prev...)
		return append(messages, types.Message{Role: types.RoleUser, Content: task})
	}
}

// readContextFiles collects the files matching the include globs, capped
// per file so one large artifact cannot crowd out the rest of the
// prompt. No globs means no verbatim files; the code map carries the
// tree's shape instead.
func (r *Runner) readContextFiles() ([]types.FileContent, error) {
	if len(r.cfg.ContextGlobs) == 0 {
		return nil, nil
	}
	filter, err := codemap.NewFilter(r.cfg.ContextGlobs, r.cfg.ExcludeGlobs)
	if err != nil {
		return nil, err
	}

	var files []types.FileContent
	walkErr := filepath.WalkDir(r.cfg.WorkDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if path != r.cfg.WorkDir && (strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(r.cfg.WorkDir, path)
		if err != nil || !filter.Admit(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() > r.cfg.MaxFileSize {
			r.deps.Log.Debug("skipping oversized context file",
				zap.String("path", rel), zap.Int64("size", info.Size()))
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		files = append(files, types.FileContent{
			Path:    filepath.ToSlash(rel),
			Content: string(content),
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("reading context files: %w", walkErr)
	}
	return files, nil
}

// buildCodeMap renders the ranked map of the working tree with the
// context files as ranking focus. Map failures degrade to a mapless
// prompt rather than aborting the turn.
func (r *Runner) buildCodeMap(ctx context.Context, files []types.FileContent) string {
	if r.deps.Maps == nil {
		return ""
	}
	filter, err := codemap.NewFilter(nil, r.cfg.ExcludeGlobs)
	if err != nil {
		r.deps.Display.Warnf("code map disabled: %v", err)
		return ""
	}
	focus := make([]string, 0, len(files))
	for _, f := range files {
		focus = append(focus, f.Path)
	}
	cm, err := r.deps.Maps.Build(ctx, codemap.Config{
		WorkDir:     r.cfg.WorkDir,
		Filter:      filter,
		FocusFiles:  focus,
		TokenBudget: r.cfg.MapBudget,
	})
	if err != nil {
		r.deps.Display.Warnf("code map failed, continuing without it: %v", err)
		return ""
	}
	return cm.Text
}

// stream pumps provider events into the parser and display. A context
// cancellation interrupts the parser, closes the stream, and keeps the
// partial response; every other receive error aborts the turn.
func (r *Runner) stream(ctx context.Context, req llm.Request, parser *parse.StreamParser, result *TurnResult) (string, error) {
	stream, err := r.deps.Provider.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var response strings.Builder
	for {
		if ctx.Err() != nil && !parser.Interrupted() {
			parser.Interrupt()
			stream.Close()
		}

		ev, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return response.String(), nil
			}
			if parser.Interrupted() {
				r.deps.Log.Info("stream interrupted, keeping partial response",
					zap.Int("bytes", response.Len()))
				return response.String(), nil
			}
			return response.String(), err
		}

		switch ev.Type {
		case llm.EventTextDelta:
			response.WriteString(ev.Text)
			parser.Feed(ev.Text)
		case llm.EventUsage:
			if ev.Usage != nil {
				result.Usage.InputTokens += ev.Usage.InputTokens
				result.Usage.OutputTokens += ev.Usage.OutputTokens
			}
		case llm.EventRetry:
			result.Retries++
			r.deps.Display.ShowRetry(ev.RetryAttempt, ev.RetryWait)
		case llm.EventDone:
			return response.String(), nil
		}
	}
}

// warnDrift surfaces working tree movement the turn did not make: a
// status change since streaming began, and apply targets that already
// differ from HEAD, where the edits would stack on uncommitted work.
func (r *Runner) warnDrift(previews []*apply.FilePreview) {
	if !r.deps.Repo.Enabled() {
		return
	}

	if r.digest != "" {
		if now, err := r.deps.Repo.StatusDigest(); err == nil && now != r.digest {
			r.deps.Display.Warnf("working tree changed while the model was responding")
		}
	}

	for _, pv := range previews {
		if pv.Created || pv.Failure != nil {
			continue
		}
		base := pv.Path
		if pv.OldPath != "" {
			base = pv.OldPath
		}
		head, err := r.deps.Repo.FileAtHead(base)
		if err != nil {
			continue // untracked, no committed baseline
		}
		if head != pv.Old {
			r.deps.Display.Warnf("%s has uncommitted changes; edits will stack on top of them", base)
		}
	}
}

// persistHistory checkpoints the undo state when a path is configured.
func (r *Runner) persistHistory() {
	if r.cfg.HistoryPath == "" {
		return
	}
	if err := r.deps.History.Save(r.cfg.HistoryPath); err != nil {
		r.deps.Display.Warnf("saving undo history: %v", err)
	}
}

// autoCommit commits the applied files when the repository is configured
// for it. Commit failures warn rather than fail the turn; the edits are
// already on disk.
func (r *Runner) autoCommit(res *apply.Result, task string) {
	if !r.deps.Repo.Enabled() {
		return
	}
	changes := commitChanges(res)
	if len(changes) == 0 {
		return
	}
	if err := r.deps.Repo.AutoCommit(changes, task); err != nil {
		r.deps.Display.Warnf("auto-commit failed: %v", err)
	}
}

// commitChanges maps successful file results to commit change records.
func commitChanges(res *apply.Result) []gitrepo.Change {
	var changes []gitrepo.Change
	for _, fr := range res.Files {
		if fr.Failure != nil {
			continue
		}
		op := gitrepo.OpEdit
		switch {
		case fr.Created:
			op = gitrepo.OpCreate
		case fr.Deleted:
			op = gitrepo.OpDelete
		case fr.OldPath != "":
			op = gitrepo.OpRename
		}
		changes = append(changes, gitrepo.Change{Path: fr.Path, OldPath: fr.OldPath, Op: op})
	}
	return changes
}

// finishTurn records the transcript rows, turn usage, and session
// status. Writes use a fresh context so an interrupt that cancelled the
// turn cannot also lose its record.
func (r *Runner) finishTurn(task, response string, result *TurnResult, status Status) {
	ctx := context.Background()

	add := func(role types.MessageRole, content string) {
		if content == "" {
			return
		}
		err := r.deps.Store.AddMessage(ctx, r.id, &Message{Role: role, Content: content, Seq: -1})
		if err != nil {
			r.deps.Log.Debug("recording transcript message", zap.Error(err))
		}
	}

	add(types.RoleUser, task)
	add(types.RoleAssistant, response)
	if result.Applied != nil {
		add(types.RoleSystem, applySummary(result.Applied))
	}

	if err := r.deps.Store.RecordTurn(ctx, r.id, result.Usage); err != nil {
		r.deps.Log.Debug("recording turn usage", zap.Error(err))
	}
	if err := r.deps.Store.SetStatus(ctx, r.id, status); err != nil {
		r.deps.Log.Debug("recording session status", zap.Error(err))
	}
}

func turnStatus(outcome *parse.Outcome) Status {
	if outcome != nil && outcome.Interrupted {
		return StatusInterrupted
	}
	return StatusComplete
}

// applySummary renders the application outcome as a transcript row, so
// a resumed session can see what actually landed on disk.
func applySummary(res *apply.Result) string {
	var b strings.Builder
	b.WriteString("Applied edits:\n")
	for _, fr := range res.Files {
		if fr.Failure != nil {
			fmt.Fprintf(&b, "- %s: failed: %v\n", fr.Path, fr.Failure)
			continue
		}
		switch {
		case fr.Created:
			fmt.Fprintf(&b, "- %s: created (%d lines)\n", fr.Path, fr.Lines)
		case fr.Deleted:
			fmt.Fprintf(&b, "- %s: deleted\n", fr.Path)
		case fr.OldPath != "":
			fmt.Fprintf(&b, "- %s: renamed from %s\n", fr.Path, fr.OldPath)
		default:
			fmt.Fprintf(&b, "- %s: %d replacement(s)\n", fr.Path, fr.Edits)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
