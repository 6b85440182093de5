// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package codemap

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter restricts the scanned file set with doublestar glob patterns
// matched against slash-separated workdir-relative paths. Exclude wins
// over include; an empty include list admits everything.
type Filter struct {
	Include []string
	Exclude []string
}

// NewFilter validates the patterns up front so a malformed glob fails the
// run instead of silently matching nothing.
func NewFilter(include, exclude []string) (Filter, error) {
	for _, pat := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(pat) {
			return Filter{}, fmt.Errorf("invalid glob pattern %q", pat)
		}
	}
	return Filter{Include: include, Exclude: exclude}, nil
}

// Admit reports whether a workdir-relative path passes the filter.
func (f Filter) Admit(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pat := range f.Exclude {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pat := range f.Include {
		if ok, _ := doublestar.Match(pat, relPath); ok {
			return true
		}
	}
	return false
}

// sourceFile is one candidate file for extraction.
type sourceFile struct {
	absPath string
	relPath string
	modTime time.Time
	spec    *langSpec
}

// collectFiles walks the working tree and returns the supported files
// that pass the filter. Hidden directories, vendor, and node_modules are
// never descended into.
func collectFiles(workDir string, filter Filter) ([]sourceFile, error) {
	var files []sourceFile

	err := filepath.WalkDir(workDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries.
		}
		if d.IsDir() {
			name := d.Name()
			if path != workDir && (strings.HasPrefix(name, ".") || name == "vendor" || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}

		spec, ok := supportedLangs[filepath.Ext(path)]
		if !ok {
			return nil
		}

		relPath, err := filepath.Rel(workDir, path)
		if err != nil {
			return nil
		}
		if !filter.Admit(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		files = append(files, sourceFile{
			absPath: path,
			relPath: filepath.ToSlash(relPath),
			modTime: info.ModTime(),
			spec:    spec,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
