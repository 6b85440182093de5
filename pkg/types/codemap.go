// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package types

// SymbolRef represents a symbol extracted from a source file, used by the
// code map to build the reference graph.
type SymbolRef struct {
	Name     string // Symbol name
	FilePath string // Source file path (relative to the working tree root)
	Line     int    // Line number (1-based)
	Kind     RefKind
}

// RefKind distinguishes symbol definitions from references.
type RefKind int

const (
	Definition RefKind = iota
	Reference
)

// RankedSymbol is a symbol with its graph rank score.
type RankedSymbol struct {
	FilePath  string
	Name      string
	Line      int
	Signature string
	Score     float64
}

// CodeMap holds the rendered code map and metadata about its coverage.
type CodeMap struct {
	Text       string // Rendered map text for the prompt
	FileCount  int    // Files represented in the map
	TotalFiles int    // Files scanned in the working tree
	SymCount   int    // Symbols in the map
	TotalSyms  int    // Symbols extracted overall
}
