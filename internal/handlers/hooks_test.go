//go:build unix

package handlers

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantix-kvm/guest-agent/internal/protocol"
)

func writeScript(t *testing.T, dir, name, body string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body+"\n"), mode))
}

func TestRunScriptsSortedOrder(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "order.txt")

	// Deliberately created out of lexical order.
	writeScript(t, dir, "20-second", "echo second >> "+out, 0o755)
	writeScript(t, dir, "10-first", "echo first >> "+out, 0o755)

	require.NoError(t, runScripts(dir, 5*time.Second))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestRunScriptsSkipsNonExecutable(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.txt")

	writeScript(t, dir, "10-run", "echo ran >> "+out, 0o755)
	writeScript(t, dir, "20-skip", "echo skipped >> "+out, 0o644)

	require.NoError(t, runScripts(dir, 5*time.Second))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "ran\n", string(data))
}

func TestRunScriptsAggregatesFailures(t *testing.T) {
	dir := t.TempDir()

	writeScript(t, dir, "10-fail", "exit 1", 0o755)
	writeScript(t, dir, "20-fail", "exit 2", 0o755)

	err := runScripts(dir, 5*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "10-fail")
	assert.Contains(t, err.Error(), "20-fail", "all scripts run even after an earlier failure")
}

func TestRunScriptsEmptyAndMissingDirs(t *testing.T) {
	assert.NoError(t, runScripts("", time.Second))
	assert.NoError(t, runScripts(t.TempDir(), time.Second))
	assert.NoError(t, runScripts("/nonexistent/hook/dir", time.Second))
}

func TestRunScriptsTimeout(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "10-hang", "sleep 30", 0o755)

	start := time.Now()
	err := runScripts(dir, 500*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestQuiesceFailsOnPreFreezeHookError(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "10-fail", "exit 1", 0o755)

	cfg := quiesceTestConfig()
	cfg.PreFreezeScriptDir = dir
	h := newQuiesceHandler(cfg)

	resp := h.HandleQuiesce(context.Background(), quiesceMsg(&protocol.Quiesce{})).(*protocol.QuiesceResponse)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "pre-freeze hook failed")

	// Nothing was frozen and no record persists: a clean quiesce works.
	cfg.PreFreezeScriptDir = ""
	ok := h.HandleQuiesce(context.Background(), quiesceMsg(&protocol.Quiesce{})).(*protocol.QuiesceResponse)
	assert.True(t, ok.Success)
	h.HandleThaw(context.Background(), quiesceMsg(&protocol.Thaw{Token: ok.Token}))
}

func TestQuiesceHookFailureTolerated(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "10-fail", "exit 1", 0o755)

	cfg := quiesceTestConfig()
	cfg.PreFreezeScriptDir = dir
	cfg.Security.QuiesceFailOnHookError = false
	h := newQuiesceHandler(cfg)

	resp := h.HandleQuiesce(context.Background(), quiesceMsg(&protocol.Quiesce{})).(*protocol.QuiesceResponse)
	assert.True(t, resp.Success, "hook failures are logged but tolerated when configured")
	h.HandleThaw(context.Background(), quiesceMsg(&protocol.Thaw{Token: resp.Token}))
}
