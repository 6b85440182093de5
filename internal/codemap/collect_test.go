// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package codemap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFilter_RejectsBadPattern(t *testing.T) {
	_, err := NewFilter([]string{"src/[/*.go"}, nil)
	assert.Error(t, err)

	_, err = NewFilter(nil, []string{"**/*.go"})
	assert.NoError(t, err)
}

func TestFilter_Admit(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		path    string
		want    bool
	}{
		{"empty filter admits all", nil, nil, "pkg/a.go", true},
		{"include match", []string{"pkg/**/*.go"}, nil, "pkg/sub/a.go", true},
		{"include miss", []string{"pkg/**/*.go"}, nil, "cmd/main.go", false},
		{"exclude match", nil, []string{"**/*_test.go"}, "pkg/a_test.go", false},
		{"exclude wins over include", []string{"**/*.go"}, []string{"gen/**"}, "gen/a.go", false},
		{"exclude misses", nil, []string{"gen/**"}, "pkg/a.go", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFilter(tt.include, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Admit(tt.path))
		})
	}
}

func TestCollectFiles_SupportedOnly(t *testing.T) {
	dir := setupTestRepo(t, map[string]string{
		"main.go":  "package main\n",
		"app.py":   "x = 1\n",
		"logo.png": "binary data",
		"notes.md": "# notes\n",
	})

	files, err := collectFiles(dir, Filter{})
	require.NoError(t, err)

	rels := collectedPaths(files)
	assert.ElementsMatch(t, []string{"main.go", "app.py"}, rels)
}

func TestCollectFiles_SkipsHiddenAndVendor(t *testing.T) {
	dir := setupTestRepo(t, map[string]string{
		"main.go":              "package main\n",
		".git/internal.go":     "package internal\n",
		"vendor/dep/dep.go":    "package dep\n",
		"node_modules/x/x.js":  "var x = 1\n",
		".hidden/secret.go":    "package secret\n",
	})

	files, err := collectFiles(dir, Filter{})
	require.NoError(t, err)

	rels := collectedPaths(files)
	assert.Equal(t, []string{"main.go"}, rels)
}

func TestCollectFiles_AppliesFilter(t *testing.T) {
	dir := setupTestRepo(t, map[string]string{
		"pkg/a.go":      "package pkg\n",
		"pkg/a_test.go": "package pkg\n",
		"cmd/main.go":   "package main\n",
	})

	filter, err := NewFilter(nil, []string{"**/*_test.go", "cmd/**"})
	require.NoError(t, err)

	files, err := collectFiles(dir, filter)
	require.NoError(t, err)

	rels := collectedPaths(files)
	assert.Equal(t, []string{"pkg/a.go"}, rels)
}

func TestCollectFiles_RelPathsUseSlashes(t *testing.T) {
	dir := setupTestRepo(t, map[string]string{
		"pkg/sub/a.go": "package sub\n",
	})

	files, err := collectFiles(dir, Filter{})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "pkg/sub/a.go", files[0].relPath)
	assert.Equal(t, filepath.Join(dir, "pkg", "sub", "a.go"), files[0].absPath)
	assert.False(t, files[0].modTime.IsZero())
}

func collectedPaths(files []sourceFile) []string {
	var rels []string
	for _, f := range files {
		rels = append(rels, f.relPath)
	}
	return rels
}

func writeFileAt(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
