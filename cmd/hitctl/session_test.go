package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/georgfedermann/hit2assext/pkg/adapters/file"
	"github.com/georgfedermann/hit2assext/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup writes a config selecting a file sink and seeds it with snapshots.
func setup(t *testing.T, snaps ...*domain.Snapshot) string {
	t.Helper()
	dir := t.TempDir()
	snapDir := filepath.Join(dir, "snapshots")

	store := file.New(snapDir)
	for _, s := range snaps {
		require.NoError(t, store.Save(context.Background(), s))
	}

	cfgPath := filepath.Join(dir, "hitctl.toml")
	cfg := "[sink]\nbackend = \"file\"\ndir = \"" + filepath.ToSlash(snapDir) + "\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", ""))
	err := cmd.Execute()
	return out.String(), err
}

func snapshot(id string) *domain.Snapshot {
	return &domain.Snapshot{
		ID:        id,
		CreatedAt: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC),
		Sequence:  3,
		Lists:     map[string][]any{"rows": {"a"}},
		Scalars:   map[string]any{"title": "t"},
	}
}

func TestSessionLs(t *testing.T) {
	cfg := setup(t, snapshot("b"), snapshot("a"))

	out, err := run(t, "session", "ls", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Archived Sessions:")
	assert.Contains(t, out, "- a created 2026-10-15T09:00:00Z")
	assert.Less(t, bytes.Index([]byte(out), []byte("- a ")), bytes.Index([]byte(out), []byte("- b ")))
}

func TestSessionLs_Empty(t *testing.T) {
	cfg := setup(t)

	out, err := run(t, "session", "ls", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "No archived sessions found.")
}

func TestSessionInspect_JSONWhenNotTerminal(t *testing.T) {
	cfg := setup(t, snapshot("a"))

	out, err := run(t, "session", "inspect", "a", "--config", cfg)
	require.NoError(t, err)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, "a", snap.ID)
	assert.Equal(t, 3, snap.Sequence)
}

func TestSessionInspect_Missing(t *testing.T) {
	cfg := setup(t)

	_, err := run(t, "session", "inspect", "nope", "--config", cfg)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionRm(t *testing.T) {
	cfg := setup(t, snapshot("a"), snapshot("b"))

	out, err := run(t, "session", "rm", "a", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed session 'a'")

	out, err = run(t, "session", "ls", "--config", cfg)
	require.NoError(t, err)
	assert.NotContains(t, out, "- a ")
	assert.Contains(t, out, "- b ")
}

func TestSession_NoSinkConfigured(t *testing.T) {
	_, err := run(t, "session", "ls")
	assert.ErrorContains(t, err, "no snapshot sink configured")
}

func TestSession_MemorySinkRejected(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "hitctl.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("sink:\n  backend: memory\n"), 0o644))

	for _, args := range [][]string{
		{"session", "ls"},
		{"session", "inspect", "a"},
		{"session", "rm", "a"},
	} {
		_, err := run(t, append(args, "--config", cfgPath)...)
		assert.ErrorContains(t, err, "memory sink cannot be inspected", args)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "hitctl version ")
}

func TestLogLevelFlagIsValidated(t *testing.T) {
	cfg := setup(t)
	_, err := run(t, "session", "ls", "--config", cfg, "--log-level", "loud")
	assert.Error(t, err)
}
