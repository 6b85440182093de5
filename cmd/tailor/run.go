// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avasek/tailor/pkg/assistant"
)

// newRunCmd creates the "run" command.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [task...]",
		Short: "Execute a coding task",
		Long: "Run sends the task to the model, streams the response as it arrives,\n" +
			"previews the proposed edits, and applies them on confirmation.",
		Args: cobra.MinimumNArgs(1),
		RunE: runTask,
	}

	cmd.Flags().String("resume", "", "Session ID to resume")
	viper.BindPFlag("resume", cmd.Flags().Lookup("resume"))

	return cmd
}

// runTask executes one conversation turn.
func runTask(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")

	cfg := configFromViper()
	cfg.Resume = viper.GetString("resume")

	a, err := assistant.New(cfg)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer a.Close()

	// SIGINT cancels the stream; edits parsed before the interrupt are
	// still offered for application.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	result, err := a.Run(ctx, task)
	if err != nil {
		return err
	}

	if result.SessionID != "" {
		fmt.Printf("\nsession %s (continue with --resume)\n", result.SessionID)
	}
	return nil
}

// configFromViper assembles the assistant configuration from the bound
// flags, environment, and config file.
func configFromViper() assistant.Config {
	return assistant.Config{
		WorkDir:        viper.GetString("workdir"),
		Provider:       viper.GetString("provider"),
		Model:          viper.GetString("model"),
		Region:         viper.GetString("region"),
		Profile:        viper.GetString("profile"),
		APIKey:         viper.GetString("api-key"),
		Format:         viper.GetString("format"),
		DirtyPolicy:    viper.GetString("dirty-policy"),
		AutoCommit:     viper.GetBool("auto-commit"),
		AutoApprove:    viper.GetBool("auto-approve"),
		NoGit:          viper.GetBool("no-git"),
		NoMap:          viper.GetBool("no-map"),
		NoStore:        viper.GetBool("no-store"),
		ContextGlobs:   viper.GetStringSlice("include"),
		ExcludeGlobs:   viper.GetStringSlice("exclude"),
		MapTokenBudget: viper.GetInt("map-token-budget"),
		MaxTokens:      viper.GetInt("max-tokens"),
	}
}
