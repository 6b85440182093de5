// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package apply

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrOutsideRoot rejects paths that lexically escape the working tree.
var ErrOutsideRoot = errors.New("path escapes the working tree")

// FS is the file surface the application engine mutates. Paths are
// workdir-relative. ReadFile must report missing files with an error
// matching fs.ErrNotExist, which also makes every FS usable as the
// parser's second-pass file reader.
type FS interface {
	ReadFile(path string) (string, error)
	WriteFile(path, content string) error
	CreateFile(path, content string) error
	DeleteFile(path string) error
	RenameFile(oldPath, newPath string) error
	Exists(path string) bool
}

// DirFS mutates a directory tree rooted at a working directory. All writes
// are atomic: content lands in a temp file in the target directory which is
// then renamed over the destination, so an interrupted process never leaves
// a half-written file.
type DirFS struct {
	root string
}

// NewDirFS roots an FS at dir, which must exist.
func NewDirFS(dir string) (*DirFS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving workdir %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workdir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workdir %s is not a directory", dir)
	}
	return &DirFS{root: abs}, nil
}

// Root returns the absolute working tree root.
func (d *DirFS) Root() string {
	return d.root
}

func (d *DirFS) resolve(path string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(cleaned) || !filepath.IsLocal(cleaned) {
		return "", fmt.Errorf("%s: %w", path, ErrOutsideRoot)
	}
	return filepath.Join(d.root, cleaned), nil
}

func (d *DirFS) ReadFile(path string) (string, error) {
	full, err := d.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func (d *DirFS) WriteFile(path, content string) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}
	if err := atomicWrite(full, []byte(content)); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func (d *DirFS) CreateFile(path, content string) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(full); err == nil {
		return fmt.Errorf("creating %s: %w", path, fs.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := atomicWrite(full, []byte(content)); err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	return nil
}

func (d *DirFS) DeleteFile(path string) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("deleting %s: %w", path, err)
	}
	return nil
}

func (d *DirFS) RenameFile(oldPath, newPath string) error {
	oldFull, err := d.resolve(oldPath)
	if err != nil {
		return err
	}
	newFull, err := d.resolve(newPath)
	if err != nil {
		return err
	}
	// os.Rename would silently clobber an existing target.
	if _, err := os.Stat(newFull); err == nil {
		return fmt.Errorf("renaming %s to %s: %w", oldPath, newPath, fs.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(newFull), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", newPath, err)
	}
	if err := os.Rename(oldFull, newFull); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", oldPath, newPath, err)
	}
	return nil
}

func (d *DirFS) Exists(path string) bool {
	full, err := d.resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// atomicWrite writes data to a temp file in the same directory, then
// renames it over the target path, preserving the target's permissions if
// it already exists.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)

	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	f, err := os.CreateTemp(dir, ".tailor-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
