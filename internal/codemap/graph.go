// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package codemap

import (
	"github.com/avasek/tailor/pkg/types"
)

const (
	longNameThreshold = 8
	longNameWeight    = 1.0
	shortNameWeight   = 0.5
	underscoreWeight  = 0.1
	commonThreshold   = 5
	commonFactor      = 0.1
)

// Edge is a directed edge in the reference graph: the From file mentions
// a symbol the To file defines.
type Edge struct {
	From      string
	To        string
	Reference string  // Symbol name
	Weight    float64 // Count scaled by identifier quality
}

// Graph is a directed multigraph whose nodes are files and whose edges
// are cross-file symbol references.
type Graph struct {
	Nodes []string
	Edges []Edge
	defs  map[string][]string // symbol name → defining files
}

// BuildGraph links the extracted symbols into a reference graph. Edge
// weights favor distinctive identifiers: long names score full weight,
// short names half, underscore-prefixed names a tenth, and symbols
// defined all over the tree are damped the same way.
func BuildGraph(symbols []types.SymbolRef) *Graph {
	g := &Graph{defs: make(map[string][]string)}

	nodeSet := make(map[string]bool)
	for _, s := range symbols {
		nodeSet[s.FilePath] = true
		if s.Kind == types.Definition {
			g.defs[s.Name] = append(g.defs[s.Name], s.FilePath)
		}
	}
	for f := range nodeSet {
		g.Nodes = append(g.Nodes, f)
	}

	// Count references per (from, to, symbol); each count becomes one
	// weighted edge. Self-references stay out of the graph.
	type edgeKey struct {
		from, to, ref string
	}
	edgeCounts := make(map[edgeKey]int)

	for _, s := range symbols {
		if s.Kind != types.Reference {
			continue
		}
		for _, defFile := range g.defs[s.Name] {
			if defFile == s.FilePath {
				continue
			}
			edgeCounts[edgeKey{from: s.FilePath, to: defFile, ref: s.Name}]++
		}
	}

	for key, count := range edgeCounts {
		g.Edges = append(g.Edges, Edge{
			From:      key.from,
			To:        key.to,
			Reference: key.ref,
			Weight:    float64(count) * identifierWeight(key.ref) * commonWeight(key.ref, g.defs),
		})
	}

	return g
}

// identifierWeight scores a symbol name by how distinctive it is.
func identifierWeight(name string) float64 {
	if len(name) > 0 && name[0] == '_' {
		return underscoreWeight
	}
	if len(name) >= longNameThreshold {
		return longNameWeight
	}
	return shortNameWeight
}

// commonWeight damps symbols defined in many files; edges through them
// say little about structure.
func commonWeight(name string, defs map[string][]string) float64 {
	if len(defs[name]) >= commonThreshold {
		return commonFactor
	}
	return 1.0
}
