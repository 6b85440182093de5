// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avasek/tailor/internal/apply"
	"github.com/avasek/tailor/internal/display"
	"github.com/avasek/tailor/internal/gitrepo"
	"github.com/avasek/tailor/internal/history"
	"github.com/avasek/tailor/internal/logging"
	"github.com/avasek/tailor/internal/session"
)

// newUndoCmd creates the "undo" command.
func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert the most recently applied turn",
		Long:  "Undo restores the files the last applied turn touched to their pre-turn content.",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openHistory()
			if err != nil {
				return err
			}
			rep, err := env.stack.Undo()
			if err != nil {
				return err
			}
			env.display.ShowUndoReport(rep)
			env.warnStale()
			return env.save()
		},
	}
}

// newRedoCmd creates the "redo" command.
func newRedoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redo",
		Short: "Replay the most recently undone turn",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openHistory()
			if err != nil {
				return err
			}
			res, err := env.stack.Redo()
			if err != nil {
				return err
			}
			env.display.ShowApplyResult(res)
			return env.save()
		},
	}
}

// newUndoAllCmd creates the "undo-all" command.
func newUndoAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo-all",
		Short: "Revert every applied turn, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openHistory()
			if err != nil {
				return err
			}
			rep, err := env.stack.UndoAll()
			if err != nil {
				return err
			}
			env.display.ShowUndoReport(rep)
			env.warnStale()
			return env.save()
		},
	}
}

// historyEnv bundles what the undo commands need: the persisted stack,
// a display, and the optional repository for stale-commit warnings.
type historyEnv struct {
	stack   *history.Stack
	display *display.Display
	repo    *gitrepo.Repo
	path    string
}

// openHistory loads the working tree's persisted undo state. An
// unreadable checkpoint warns and starts fresh rather than blocking the
// command.
func openHistory() (*historyEnv, error) {
	workDir := viper.GetString("workdir")
	log := logging.L()
	disp := display.New(log)

	fsys, err := apply.NewDirFS(workDir)
	if err != nil {
		return nil, err
	}
	stack := history.NewStack(fsys, log)

	dataDir, err := session.DataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data dir: %w", err)
	}
	path := history.StatePath(dataDir, workDir)
	if err := stack.Load(path); err != nil {
		disp.Warnf("undo history unreadable, starting fresh: %v", err)
	}

	var repo *gitrepo.Repo
	if !viper.GetBool("no-git") {
		if r, openErr := gitrepo.Open(gitrepo.Config{WorkDir: workDir}, log); openErr == nil {
			repo = r
		}
	}

	return &historyEnv{stack: stack, display: disp, repo: repo, path: path}, nil
}

func (h *historyEnv) save() error {
	return h.stack.Save(h.path)
}

// warnStale flags a HEAD auto-commit whose content the undo just
// rewrote; the commit now disagrees with the working tree.
func (h *historyEnv) warnStale() {
	if !h.repo.Enabled() {
		return
	}
	if stale, err := h.repo.IsTailorCommit(); err == nil && stale {
		h.display.Warnf("HEAD is a tailor auto-commit; it no longer matches the working tree")
	}
}
