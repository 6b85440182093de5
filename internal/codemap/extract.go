// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package codemap

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"

	"github.com/avasek/tailor/pkg/types"
)

// langSpec holds the tree-sitter language and query patterns for a file type.
type langSpec struct {
	lang *sitter.Language
	defQ string // Query for definitions (capture @name)
	refQ string // Query for references (capture @ref)
}

// supportedLangs maps file extensions to their langSpec.
var supportedLangs = map[string]*langSpec{
	".go": {
		lang: golang.GetLanguage(),
		defQ: `
			(function_declaration name: (identifier) @name)
			(method_declaration name: (field_identifier) @name)
			(type_declaration (type_spec name: (type_identifier) @name))
		`,
		refQ: `
			(identifier) @ref
			(field_identifier) @ref
			(type_identifier) @ref
		`,
	},
	".py": {
		lang: python.GetLanguage(),
		defQ: `
			(function_definition name: (identifier) @name)
			(class_definition name: (identifier) @name)
		`,
		refQ: `
			(identifier) @ref
		`,
	},
	".js": {
		lang: javascript.GetLanguage(),
		defQ: `
			(function_declaration name: (identifier) @name)
			(class_declaration name: (identifier) @name)
			(variable_declarator name: (identifier) @name)
		`,
		refQ: `
			(identifier) @ref
		`,
	},
	".ts": {
		lang: typescript.GetLanguage(),
		defQ: `
			(function_declaration name: (identifier) @name)
			(class_declaration name: (identifier) @name)
			(variable_declarator name: (identifier) @name)
			(interface_declaration name: (type_identifier) @name)
		`,
		refQ: `
			(identifier) @ref
			(type_identifier) @ref
		`,
	},
	".yaml": {
		lang: yaml.GetLanguage(),
		defQ: `
			(block_mapping_pair key: (flow_node) @name)
		`,
		refQ: "",
	},
	".yml": {
		lang: yaml.GetLanguage(),
		defQ: `
			(block_mapping_pair key: (flow_node) @name)
		`,
		refQ: "",
	},
}

// cacheEntry stores extraction results keyed by file path and mod time.
type cacheEntry struct {
	modTime time.Time
	symbols []types.SymbolRef
}

// Stats counts what one extraction pass did.
type Stats struct {
	Processed int // Files whose symbols ended up in the result
	Skipped   int // Files that failed to read or parse
	CacheHits int
	Parses    int
}

// Extractor extracts symbols from source files using tree-sitter, with a
// mod-time keyed cache so unchanged files are never re-parsed.
type Extractor struct {
	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewExtractor creates an extractor with an empty cache.
func NewExtractor() *Extractor {
	return &Extractor{cache: make(map[string]cacheEntry)}
}

// Extract pulls symbols from the given files. Files that fail to read or
// parse are skipped, not fatal.
func (e *Extractor) Extract(ctx context.Context, files []sourceFile) ([]types.SymbolRef, Stats, error) {
	var all []types.SymbolRef
	var stats Stats

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		symbols, err := e.extractFile(ctx, f, &stats)
		if err != nil {
			stats.Skipped++
			continue
		}
		stats.Processed++
		all = append(all, symbols...)
	}
	return all, stats, nil
}

func (e *Extractor) extractFile(ctx context.Context, f sourceFile, stats *Stats) ([]types.SymbolRef, error) {
	e.mu.Lock()
	if cached, ok := e.cache[f.relPath]; ok && cached.modTime.Equal(f.modTime) {
		stats.CacheHits++
		symbols := cached.symbols
		e.mu.Unlock()
		return symbols, nil
	}
	e.mu.Unlock()

	content, err := os.ReadFile(f.absPath)
	if err != nil {
		return nil, err
	}

	symbols, err := parseSymbols(ctx, content, f.relPath, f.spec)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	stats.Parses++
	e.cache[f.relPath] = cacheEntry{modTime: f.modTime, symbols: symbols}
	e.mu.Unlock()

	return symbols, nil
}

// parseSymbols runs the language's queries over one file's syntax tree.
// Reference captures that shadow a definition in the same file are
// dropped; they would only add self-edges.
func parseSymbols(ctx context.Context, content []byte, relPath string, spec *langSpec) ([]types.SymbolRef, error) {
	root, err := sitter.ParseCtx(ctx, content, spec.lang)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("parsing %s: no tree", relPath)
	}

	var symbols []types.SymbolRef

	if spec.defQ != "" {
		for _, d := range runQuery(spec.defQ, spec.lang, root, content) {
			symbols = append(symbols, types.SymbolRef{
				Name:     d.name,
				FilePath: relPath,
				Line:     d.line,
				Kind:     types.Definition,
			})
		}
	}

	if spec.refQ != "" {
		defined := make(map[string]bool, len(symbols))
		for _, s := range symbols {
			defined[s.Name] = true
		}
		for _, r := range runQuery(spec.refQ, spec.lang, root, content) {
			if defined[r.name] {
				continue
			}
			symbols = append(symbols, types.SymbolRef{
				Name:     r.name,
				FilePath: relPath,
				Line:     r.line,
				Kind:     types.Reference,
			})
		}
	}

	return symbols, nil
}

// queryResult holds a captured symbol name and its location.
type queryResult struct {
	name string
	line int
}

// runQuery executes a tree-sitter query and returns captured names with
// locations, deduplicated by name and line.
func runQuery(pattern string, lang *sitter.Language, root *sitter.Node, content []byte) []queryResult {
	q, err := sitter.NewQuery([]byte(pattern), lang)
	if err != nil {
		return nil
	}

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	seen := make(map[string]bool)
	var results []queryResult

	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			name := c.Node.Content(content)
			line := int(c.Node.StartPoint().Row) + 1
			key := fmt.Sprintf("%s:%d", name, line)
			if name == "" || seen[key] {
				continue
			}
			seen[key] = true
			results = append(results, queryResult{name: name, line: line})
		}
	}

	return results
}
