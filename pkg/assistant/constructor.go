// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package assistant

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/avasek/tailor/internal/apply"
	"github.com/avasek/tailor/internal/codemap"
	"github.com/avasek/tailor/internal/display"
	"github.com/avasek/tailor/internal/gitrepo"
	"github.com/avasek/tailor/internal/history"
	"github.com/avasek/tailor/internal/llm"
	"github.com/avasek/tailor/internal/logging"
	"github.com/avasek/tailor/internal/session"
	"github.com/avasek/tailor/pkg/types"
)

const (
	defaultMapTokenBudget = 4096
	defaultMaxTokens      = 4096
)

// New validates the config and wires the provider, store, git
// integration, code map, history, and display behind the Assistant
// interface. It does not contact the model; that happens in Run.
func New(cfg Config) (Assistant, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	applyDefaults(&cfg)

	format, err := types.ParseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	dirty, err := gitrepo.ParseDirtyPolicy(cfg.DirtyPolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	log := logging.L()

	fsys, err := apply.NewDirFS(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	provider, err := llm.NewProvider(context.Background(), llm.Config{
		Provider:  cfg.Provider,
		ModelID:   cfg.Model,
		Region:    cfg.Region,
		Profile:   cfg.Profile,
		APIKey:    cfg.APIKey,
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	var store session.Store
	if cfg.NoStore {
		store = &session.NoopStore{}
	} else {
		store, err = session.NewStore(session.StoreConfig{Enabled: true, Path: cfg.StorePath})
		if err != nil {
			return nil, fmt.Errorf("opening transcript store: %w", err)
		}
	}

	var repo *gitrepo.Repo
	if !cfg.NoGit {
		repo, err = gitrepo.Open(gitrepo.Config{
			WorkDir:    cfg.WorkDir,
			Dirty:      dirty,
			AutoCommit: cfg.AutoCommit,
		}, log)
		if err != nil {
			log.Debug("git integration disabled", zap.Error(err))
			repo = nil
		}
	}

	var maps *codemap.Builder
	if !cfg.NoMap {
		maps = codemap.NewBuilder(log)
	}

	stack := history.NewStack(fsys, log)
	historyPath := ""
	if dataDir, dirErr := session.DataDir(); dirErr == nil {
		historyPath = history.StatePath(dataDir, cfg.WorkDir)
		if loadErr := stack.Load(historyPath); loadErr != nil {
			log.Warn("undo history unreadable, starting fresh", zap.Error(loadErr))
		}
	}

	disp := display.New(log)

	runner, err := session.NewRunner(session.Config{
		WorkDir:      cfg.WorkDir,
		Model:        cfg.Model,
		Format:       format,
		AutoApprove:  cfg.AutoApprove,
		ContextGlobs: cfg.ContextGlobs,
		ExcludeGlobs: cfg.ExcludeGlobs,
		MapBudget:    float64(cfg.MapTokenBudget),
		HistoryPath:  historyPath,
		Resume:       cfg.Resume,
	}, session.Deps{
		Provider: provider,
		FS:       fsys,
		Display:  disp,
		Store:    store,
		Repo:     repo,
		Maps:     maps,
		History:  stack,
		Log:      log,
	})
	if err != nil {
		return nil, err
	}

	return &assistant{
		runner:      runner,
		history:     stack,
		historyPath: historyPath,
		display:     disp,
		store:       store,
		repo:        repo,
	}, nil
}

// assistant adapts the session runner and history stack to the public
// Assistant interface.
type assistant struct {
	runner      *session.Runner
	history     *history.Stack
	historyPath string
	display     *display.Display
	store       session.Store
	repo        *gitrepo.Repo
}

func (a *assistant) Run(ctx context.Context, task string) (*Result, error) {
	tr, err := a.runner.Run(ctx, task)
	res := convertResult(tr)
	if err != nil {
		return res, err
	}
	return res, resultError(tr)
}

func (a *assistant) Undo() error {
	rep, err := a.history.Undo()
	if err != nil {
		return err
	}
	a.display.ShowUndoReport(rep)
	a.warnStaleCommit()
	a.saveHistory()
	return nil
}

func (a *assistant) Redo() error {
	res, err := a.history.Redo()
	if err != nil {
		return err
	}
	a.display.ShowApplyResult(res)
	a.saveHistory()
	return nil
}

func (a *assistant) UndoAll() error {
	rep, err := a.history.UndoAll()
	if err != nil {
		return err
	}
	a.display.ShowUndoReport(rep)
	a.warnStaleCommit()
	a.saveHistory()
	return nil
}

func (a *assistant) Close() error {
	return a.store.Close()
}

// warnStaleCommit flags a HEAD auto-commit whose content an undo just
// rewrote; the commit now disagrees with the working tree.
func (a *assistant) warnStaleCommit() {
	if !a.repo.Enabled() {
		return
	}
	if stale, err := a.repo.IsTailorCommit(); err == nil && stale {
		a.display.Warnf("HEAD is a tailor auto-commit; it no longer matches the working tree")
	}
}

func (a *assistant) saveHistory() {
	if a.historyPath == "" {
		return
	}
	if err := a.history.Save(a.historyPath); err != nil {
		a.display.Warnf("saving undo history: %v", err)
	}
}

// convertResult maps the internal turn result to the public Result.
func convertResult(tr *session.TurnResult) *Result {
	if tr == nil {
		return &Result{}
	}
	res := &Result{
		SessionID:  tr.SessionID,
		Declined:   tr.Declined,
		TokensUsed: tr.Usage,
		Retries:    tr.Retries,
	}
	if tr.Outcome != nil {
		res.Commentary = tr.Outcome.Commentary
		res.EditsParsed = len(tr.Outcome.Edits)
		res.Interrupted = tr.Outcome.Interrupted
	}
	if tr.Applied != nil {
		for _, fr := range tr.Applied.Files {
			out := FileOutcome{Path: fr.Path, OldPath: fr.OldPath, Op: fileOp(fr)}
			if fr.Failure != nil {
				out.Error = fr.Failure.Error()
			}
			res.Files = append(res.Files, out)
		}
	}
	res.Success = succeeded(tr)
	return res
}

func fileOp(fr *apply.FileResult) string {
	switch {
	case fr.Created:
		return "created"
	case fr.Deleted:
		return "deleted"
	case fr.OldPath != "":
		return "renamed"
	default:
		return "edited"
	}
}

// succeeded reports whether the turn finished with nothing it attempted
// failing. Commentary-only turns and declined proposals count as
// success; discarded blocks and application failures do not.
func succeeded(tr *session.TurnResult) bool {
	if tr.Outcome == nil {
		return false
	}
	if tr.Applied != nil {
		return len(tr.Applied.Failed()) == 0
	}
	if !tr.Outcome.HasEdits() {
		return len(tr.Outcome.LexErrors) == 0 &&
			len(tr.Outcome.ResolutionErrors) == 0 &&
			tr.Outcome.BlocksDiscarded == 0
	}
	return tr.Declined
}

// resultError maps a completed turn to its sentinel error, or nil.
func resultError(tr *session.TurnResult) error {
	if tr == nil || tr.Outcome == nil {
		return nil
	}
	if !tr.Outcome.HasEdits() {
		if len(tr.Outcome.LexErrors) > 0 || len(tr.Outcome.ResolutionErrors) > 0 || tr.Outcome.BlocksDiscarded > 0 {
			return ErrNoEdits
		}
		return nil
	}
	if tr.Applied != nil && len(tr.Applied.Files) > 0 && tr.Applied.Succeeded() == 0 {
		return ErrApplyFailure
	}
	return nil
}

// validateConfig checks that required fields are present and enumerated
// fields hold known values.
func validateConfig(cfg Config) error {
	if cfg.WorkDir == "" {
		return fmt.Errorf("WorkDir is required")
	}
	if info, err := os.Stat(cfg.WorkDir); err != nil || !info.IsDir() {
		return fmt.Errorf("WorkDir %q does not exist or is not a directory", cfg.WorkDir)
	}
	if cfg.Model == "" {
		return fmt.Errorf("Model is required")
	}
	switch cfg.Provider {
	case "", "bedrock":
		if cfg.Region == "" {
			return fmt.Errorf("Region is required for the bedrock provider")
		}
	case "anthropic":
	default:
		return fmt.Errorf("unknown provider %q (supported: bedrock, anthropic)", cfg.Provider)
	}
	if cfg.Format != "" {
		if _, err := types.ParseFormat(cfg.Format); err != nil {
			return err
		}
	}
	if _, err := gitrepo.ParseDirtyPolicy(cfg.DirtyPolicy); err != nil {
		return err
	}
	return nil
}

// applyDefaults fills in zero-value fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Provider == "" {
		cfg.Provider = "bedrock"
	}
	if cfg.Format == "" {
		cfg.Format = string(types.FormatBlock)
	}
	if cfg.MapTokenBudget == 0 {
		cfg.MapTokenBudget = defaultMapTokenBudget
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
}
