// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package codemap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avasek/tailor/pkg/types"
)

func TestExtract_GoDefinitions(t *testing.T) {
	dir := setupTestRepo(t, map[string]string{
		"pkg/math/math.go": `package math

type Calculator struct{}

func (c *Calculator) Add(a, b int) int { return a + b }

func Multiply(a, b int) int { return a * b }
`,
		"pkg/util/format.go": `package util

func FormatNumber(n int) string { return "" }
`,
	})

	symbols, stats := extractAll(t, dir)
	assert.Equal(t, 2, stats.Processed)

	defs := filterByKind(symbols, types.Definition)
	defNames := symbolNames(defs)

	assert.Contains(t, defNames, "Calculator")
	assert.Contains(t, defNames, "Add")
	assert.Contains(t, defNames, "Multiply")
	assert.Contains(t, defNames, "FormatNumber")
	assert.GreaterOrEqual(t, len(defs), 4)
}

func TestExtract_PythonDefinitions(t *testing.T) {
	dir := setupTestRepo(t, map[string]string{
		"app.py": `
class Calculator:
    def add(self, a, b):
        return a + b

def multiply(a, b):
    return a * b
`,
	})

	symbols, stats := extractAll(t, dir)
	assert.Equal(t, 1, stats.Processed)

	defNames := symbolNames(filterByKind(symbols, types.Definition))
	assert.Contains(t, defNames, "Calculator")
	assert.Contains(t, defNames, "add")
	assert.Contains(t, defNames, "multiply")
}

func TestExtract_ReferencesPointAcrossFiles(t *testing.T) {
	dir := setupTestRepo(t, map[string]string{
		"math.go": `package main

func Subtract(a, b int) int { return a - b }
`,
		"main.go": `package main

func main() {
	Subtract(3, 1)
}
`,
	})

	symbols, _ := extractAll(t, dir)

	var found bool
	for _, s := range symbols {
		if s.Name == "Subtract" && s.Kind == types.Reference && s.FilePath == "main.go" {
			found = true
		}
	}
	assert.True(t, found, "expected a Subtract reference in main.go")
}

func TestExtract_CacheSkipsUnchangedFiles(t *testing.T) {
	dir := setupTestRepo(t, map[string]string{
		"main.go": `package main

func Hello() string { return "hello" }
`,
	})

	ext := NewExtractor()
	files, err := collectFiles(dir, Filter{})
	require.NoError(t, err)

	// First extraction parses the file.
	_, stats1, err := ext.Extract(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 1, stats1.Parses)
	assert.Equal(t, 0, stats1.CacheHits)

	// Second extraction without changes hits the cache.
	_, stats2, err := ext.Extract(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 0, stats2.Parses)
	assert.Equal(t, 1, stats2.CacheHits)
}

func TestExtract_CacheInvalidatedOnChange(t *testing.T) {
	dir := setupTestRepo(t, map[string]string{
		"main.go": `package main

func Hello() string { return "hello" }
`,
	})

	ext := NewExtractor()
	files, err := collectFiles(dir, Filter{})
	require.NoError(t, err)
	_, _, err = ext.Extract(context.Background(), files)
	require.NoError(t, err)

	// Rewrite the file; the fresh mod time invalidates the cache entry.
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "main.go"),
		[]byte("package main\n\nfunc Goodbye() string { return \"bye\" }\n"),
		0o644,
	))

	files, err = collectFiles(dir, Filter{})
	require.NoError(t, err)
	symbols, stats, err := ext.Extract(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Parses, "modified file should be re-parsed")
	assert.Contains(t, symbolNames(symbols), "Goodbye")
}

func TestExtract_ContextCancellation(t *testing.T) {
	dir := setupTestRepo(t, map[string]string{
		"main.go": `package main

func Hello() {}
`,
	})

	files, err := collectFiles(dir, Filter{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = NewExtractor().Extract(ctx, files)
	assert.Error(t, err)
}

// --- Test helpers ---

func setupTestRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeFileAt(t, dir, name, content)
	}
	return dir
}

func extractAll(t *testing.T, dir string) ([]types.SymbolRef, Stats) {
	t.Helper()
	files, err := collectFiles(dir, Filter{})
	require.NoError(t, err)
	symbols, stats, err := NewExtractor().Extract(context.Background(), files)
	require.NoError(t, err)
	return symbols, stats
}

func filterByKind(symbols []types.SymbolRef, kind types.RefKind) []types.SymbolRef {
	var result []types.SymbolRef
	for _, s := range symbols {
		if s.Kind == kind {
			result = append(result, s)
		}
	}
	return result
}

func symbolNames(symbols []types.SymbolRef) []string {
	var names []string
	for _, s := range symbols {
		names = append(names, s.Name)
	}
	return names
}
