// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

// Package codemap builds a ranked map of the working tree for prompt
// context. Symbols are extracted with tree-sitter, linked into a
// cross-file reference graph, ranked with a personalized PageRank, and
// rendered into a budgeted text block. Files explicitly included in the
// session's context receive a rank boost so the map stays centered on
// what the task is about.
package codemap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/avasek/tailor/pkg/types"
)

// Config selects the files and sizing for one map build.
type Config struct {
	WorkDir     string
	Filter      Filter   // Include/exclude globs for the scanned set
	FocusFiles  []string // Workdir-relative paths boosted during ranking
	TokenBudget float64  // Rendered size cap; 0 means the default
}

// Builder runs the extract-graph-rank-render pipeline. It keeps the
// extraction cache between builds, so repeated turns in one session only
// re-parse files that changed.
type Builder struct {
	extractor *Extractor
	log       *zap.Logger
}

// NewBuilder creates a Builder with an empty extraction cache.
func NewBuilder(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		extractor: NewExtractor(),
		log:       log,
	}
}

// Build produces the code map for the configured working tree.
func (b *Builder) Build(ctx context.Context, cfg Config) (*types.CodeMap, error) {
	files, err := collectFiles(cfg.WorkDir, cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("collecting files: %w", err)
	}

	symbols, stats, err := b.extractor.Extract(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("extracting symbols: %w", err)
	}

	graph := BuildGraph(symbols)
	ranked := Rank(graph, symbols, RankConfig{FocusFiles: cfg.FocusFiles})

	result := Render(ranked, stats.Processed, countDefinitions(symbols), RenderConfig{
		TokenBudget: cfg.TokenBudget,
		WorkDir:     cfg.WorkDir,
	})

	b.log.Debug("built code map",
		zap.Int("files_scanned", stats.Processed),
		zap.Int("cache_hits", stats.CacheHits),
		zap.Int("map_files", result.FileCount),
		zap.Int("map_symbols", result.SymCount))

	return result, nil
}

func countDefinitions(symbols []types.SymbolRef) int {
	n := 0
	for _, s := range symbols {
		if s.Kind == types.Definition {
			n++
		}
	}
	return n
}
