// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

// Command tailor is an interactive LLM coding assistant: it streams a
// model's response into reviewable file edits, applies them on
// confirmation, and keeps every applied turn undoable.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avasek/tailor/internal/logging"
)

const version = "0.1.0"

func main() {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	logging.Close()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tailor",
		Short: "Interactive LLM coding assistant",
		Long: "tailor takes a natural language task, streams the model's response as\n" +
			"it arrives, previews the proposed file edits, and applies them to your\n" +
			"working tree on confirmation. Applied turns can be undone and redone.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := logging.Init(viper.GetBool("debug"), ""); err != nil {
				fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
			}
		},
	}

	// Global flags.
	pf := rootCmd.PersistentFlags()
	pf.String("workdir", ".", "Working tree root directory")
	pf.String("provider", "bedrock", "Model provider: bedrock or anthropic")
	pf.String("model", "", "Model identifier")
	pf.String("region", "", "AWS region for Bedrock")
	pf.String("profile", "", "AWS credential profile for Bedrock")
	pf.String("format", "block", "Edit notation: block, replacement, udiff, or json")
	pf.String("dirty-policy", "ignore", "Uncommitted changes at start: fail, commit, or ignore")
	pf.Bool("auto-commit", false, "Commit applied turns with a generated message")
	pf.Bool("auto-approve", false, "Apply edits without the confirmation prompt")
	pf.Bool("no-git", false, "Disable git integration")
	pf.Bool("no-map", false, "Disable the code map")
	pf.Bool("no-store", false, "Disable transcript storage")
	pf.StringSlice("include", nil, "Glob patterns for files sent verbatim in the prompt")
	pf.StringSlice("exclude", nil, "Glob patterns for files excluded from prompt and map")
	pf.Int("map-token-budget", 4096, "Token budget for the code map")
	pf.Int("max-tokens", 4096, "Maximum tokens for the model response")
	pf.Bool("debug", false, "Enable debug logging")

	// Bind flags to viper.
	for _, name := range []string{
		"workdir", "provider", "model", "region", "profile", "format",
		"dirty-policy", "auto-commit", "auto-approve", "no-git", "no-map",
		"no-store", "include", "exclude", "map-token-budget", "max-tokens",
		"debug",
	} {
		viper.BindPFlag(name, pf.Lookup(name))
	}

	// Env vars: TAILOR_MODEL, TAILOR_DIRTY_POLICY, TAILOR_API_KEY, etc.
	viper.SetEnvPrefix("TAILOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Config file.
	viper.SetConfigName(".tailor")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.ReadInConfig() // Ignore error; config file is optional.

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newUndoCmd())
	rootCmd.AddCommand(newRedoCmd())
	rootCmd.AddCommand(newUndoAllCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// newVersionCmd creates the "version" command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print tailor version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tailor %s\n", version)
		},
	}
}
