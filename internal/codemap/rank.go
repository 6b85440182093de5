// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package codemap

import (
	"math"
	"sort"

	"github.com/avasek/tailor/pkg/types"
)

const (
	defaultDamping   = 0.85
	defaultMaxIter   = 100
	defaultTolerance = 1e-6
	focusFactor      = 100.0
)

// RankConfig configures the PageRank pass.
type RankConfig struct {
	Damping       float64 // Default 0.85
	MaxIterations int     // Default 100
	Tolerance     float64 // Convergence threshold, default 1e-6

	// FocusFiles receive 100x teleportation weight, pulling the ranking
	// toward the files the session is actually working on.
	FocusFiles []string
}

// Rank runs personalized PageRank over the reference graph and returns
// every definition tagged with its file's score, highest first. Ties
// break on path then line so the ordering is stable.
func Rank(g *Graph, symbols []types.SymbolRef, cfg RankConfig) []types.RankedSymbol {
	damping := cfg.Damping
	if damping == 0 {
		damping = defaultDamping
	}
	maxIter := cfg.MaxIterations
	if maxIter == 0 {
		maxIter = defaultMaxIter
	}
	tolerance := cfg.Tolerance
	if tolerance == 0 {
		tolerance = defaultTolerance
	}

	n := len(g.Nodes)
	if n == 0 {
		return nil
	}

	idx := make(map[string]int, n)
	for i, node := range g.Nodes {
		idx[node] = i
	}

	// Teleportation vector: focus files weigh focusFactor, the rest 1.
	focus := make(map[string]bool, len(cfg.FocusFiles))
	for _, f := range cfg.FocusFiles {
		focus[f] = true
	}
	teleport := make([]float64, n)
	total := 0.0
	for i, node := range g.Nodes {
		teleport[i] = 1.0
		if focus[node] {
			teleport[i] = focusFactor
		}
		total += teleport[i]
	}
	for i := range teleport {
		teleport[i] /= total
	}

	type outEdge struct {
		to     int
		weight float64
	}
	outEdges := make([][]outEdge, n)
	outWeight := make([]float64, n)
	for _, e := range g.Edges {
		fromIdx, okF := idx[e.From]
		toIdx, okT := idx[e.To]
		if !okF || !okT {
			continue
		}
		outEdges[fromIdx] = append(outEdges[fromIdx], outEdge{to: toIdx, weight: e.Weight})
		outWeight[fromIdx] += e.Weight
	}

	rank := make([]float64, n)
	for i := range rank {
		rank[i] = 1.0 / float64(n)
	}

	next := make([]float64, n)
	for iter := 0; iter < maxIter; iter++ {
		for i := range next {
			next[i] = (1.0 - damping) * teleport[i]
		}

		for i := 0; i < n; i++ {
			if outWeight[i] == 0 {
				// Dangling node: its rank teleports.
				for j := range next {
					next[j] += damping * rank[i] * teleport[j]
				}
				continue
			}
			for _, e := range outEdges[i] {
				next[e.to] += damping * rank[i] * (e.weight / outWeight[i])
			}
		}

		diff := 0.0
		for i := range rank {
			diff += math.Abs(next[i] - rank[i])
		}
		copy(rank, next)
		if diff < tolerance {
			break
		}
	}

	// Every definition inherits its file's score.
	defsByFile := make(map[string][]types.SymbolRef)
	for _, s := range symbols {
		if s.Kind == types.Definition {
			defsByFile[s.FilePath] = append(defsByFile[s.FilePath], s)
		}
	}

	var ranked []types.RankedSymbol
	for file, defs := range defsByFile {
		fileIdx, ok := idx[file]
		if !ok {
			continue
		}
		for _, d := range defs {
			ranked = append(ranked, types.RankedSymbol{
				FilePath: d.FilePath,
				Name:     d.Name,
				Line:     d.Line,
				Score:    rank[fileIdx],
			})
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].FilePath != ranked[j].FilePath {
			return ranked[i].FilePath < ranked[j].FilePath
		}
		return ranked[i].Line < ranked[j].Line
	})

	return ranked
}
