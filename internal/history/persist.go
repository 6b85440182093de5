// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package history

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const stateVersion = 1

// persistedState is the JSON checkpoint of a stack. Hash verification at
// restore time already guards against stale snapshots, so reloading a
// checkpoint from an earlier invocation is no different from undoing
// within one.
type persistedState struct {
	Version int      `json:"version"`
	Undo    []*Entry `json:"undo"`
	Redo    []*Entry `json:"redo"`
}

// StatePath returns the checkpoint file for a working directory, keyed by
// a digest of its absolute path so unrelated trees never share history.
func StatePath(dataDir, workDir string) string {
	abs, err := filepath.Abs(workDir)
	if err != nil {
		abs = workDir
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(dataDir, "history", hex.EncodeToString(sum[:8])+".json")
}

// Save checkpoints the stack to path, creating parent directories as
// needed. The write goes through a temp file so a crash never leaves a
// half-written checkpoint.
func (s *Stack) Save(path string) error {
	state := persistedState{
		Version: stateVersion,
		Undo:    s.undo,
		Redo:    s.redo,
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding history state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing state file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// Load replaces the stack's entries with the checkpoint at path. A
// missing file leaves the stack empty and is not an error; a corrupt or
// incompatible checkpoint is, so the caller can warn before starting
// fresh.
func (s *Stack) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading history state: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decoding history state: %w", err)
	}
	if state.Version != stateVersion {
		return fmt.Errorf("history state version %d, want %d", state.Version, stateVersion)
	}

	s.undo = state.Undo
	s.redo = state.Redo
	return nil
}
