// Copyright (c) 2026 Adam Vasek. All rights reserved.
// SPDX-License-Identifier: MIT

package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestL_BeforeInit(t *testing.T) {
	// Must not panic and must accept writes.
	L().Debug("ignored")
	S().Debugw("ignored")
}

func TestInit_WritesLogFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(true, dir))
	defer Close()

	L().Info("hello from test")
	require.NoError(t, L().Sync())

	data, err := os.ReadFile(filepath.Join(dir, "tailor.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "logger initialized")
	assert.Contains(t, string(data), "hello from test")
}

func TestLogPath_Precedence(t *testing.T) {
	t.Setenv("TAILOR_LOG_FILE", "/tmp/explicit.log")
	t.Setenv("TAILOR_CONFIG_HOME", "/tmp/confhome")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	// Explicit dir wins over everything.
	path, err := logPath("/tmp/dir")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/dir", "tailor.log"), path)

	// Then the explicit file.
	path, err = logPath("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/explicit.log", path)

	// Then the config home.
	t.Setenv("TAILOR_LOG_FILE", "")
	path, err = logPath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/confhome", "tailor.log"), path)

	// Then XDG.
	t.Setenv("TAILOR_CONFIG_HOME", "")
	path, err = logPath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "tailor", "tailor.log"), path)
}
