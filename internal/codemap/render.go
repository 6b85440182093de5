// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package codemap

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/avasek/tailor/pkg/types"
)

const (
	defaultTokenRatio  = 0.25
	defaultTokenBudget = 4096
	maxLineLength      = 100

	// headerAllowance reserves room in the budget for the summary line
	// prepended after sections are chosen.
	headerAllowance = 80
)

// RenderConfig configures map rendering.
type RenderConfig struct {
	TokenBudget float64 // Maximum tokens for the map (default 4096)
	TokenRatio  float64 // Tokens per character (default 0.25)
	WorkDir     string  // Root for reading signatures not already loaded
}

// Render produces the text block for the prompt: files in rank order,
// each followed by its definition signatures, cut off at the token
// budget. Whole files are admitted or not; a file never renders half its
// symbols.
func Render(ranked []types.RankedSymbol, totalFiles, totalSyms int, cfg RenderConfig) *types.CodeMap {
	budget := cfg.TokenBudget
	if budget == 0 {
		budget = defaultTokenBudget
	}
	ratio := cfg.TokenRatio
	if ratio == 0 {
		ratio = defaultTokenRatio
	}

	type fileSym struct {
		name string
		line int
		sig  string
	}
	var fileOrder []string
	fileSyms := make(map[string][]fileSym)

	for _, rs := range ranked {
		if _, seen := fileSyms[rs.FilePath]; !seen {
			fileOrder = append(fileOrder, rs.FilePath)
		}
		sig := rs.Signature
		if sig == "" && cfg.WorkDir != "" {
			sig = readSignature(cfg.WorkDir, rs.FilePath, rs.Line)
		}
		fileSyms[rs.FilePath] = append(fileSyms[rs.FilePath], fileSym{name: rs.Name, line: rs.Line, sig: sig})
	}

	var sections strings.Builder
	tokensUsed := float64(headerAllowance) * ratio
	filesShown := 0
	symsShown := 0

	for _, file := range fileOrder {
		var section strings.Builder
		section.WriteString(file + "\n")

		syms := fileSyms[file]
		for _, s := range syms {
			line := "  " + s.sig
			if s.sig == "" {
				line = "  " + s.name
			}
			if len(line) > maxLineLength {
				line = line[:maxLineLength-3] + "..."
			}
			section.WriteString(line + "\n")
		}

		sectionTokens := float64(section.Len()) * ratio
		if tokensUsed+sectionTokens > budget {
			break
		}

		sections.WriteString(section.String())
		tokensUsed += sectionTokens
		filesShown++
		symsShown += len(syms)
	}

	header := fmt.Sprintf("Code map (%d/%d files, %d/%d symbols)", filesShown, totalFiles, symsShown, totalSyms)

	return &types.CodeMap{
		Text:       header + "\n" + sections.String(),
		FileCount:  filesShown,
		TotalFiles: totalFiles,
		SymCount:   symsShown,
		TotalSyms:  totalSyms,
	}
}

// readSignature reads the source line a symbol was defined on.
func readSignature(workDir, relPath string, line int) string {
	content, err := os.ReadFile(filepath.Join(workDir, relPath))
	if err != nil {
		return ""
	}
	return signatureAt(content, line)
}

// signatureAt returns the trimmed source line, shortened for rendering.
func signatureAt(content []byte, line int) string {
	lines := strings.Split(string(content), "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	sig := strings.TrimSpace(lines[line-1])
	if len(sig) > maxLineLength {
		sig = sig[:maxLineLength-3] + "..."
	}
	return sig
}
