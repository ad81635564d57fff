package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRequiresRepoAndTarget(t *testing.T) {
	code := run([]string{"--config", ""})
	assert.Equal(t, exitError, code)
}

func TestRunSucceedsInDryModeWithSourceFile(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "target.py")
	require.NoError(t, os.WriteFile(sourcePath, []byte("def f():\n    return 1\n"), 0644))

	configPath := filepath.Join(dir, "quest.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("llm:\n  dry: true\nmax_iterations: 1\n"), 0644))

	code := run([]string{
		"--config", configPath,
		"--repo", "acme/repo",
		"--version", "v1",
		"--target", "acme/repo/target.py",
		"--source-file", sourcePath,
		"--runs-dir", filepath.Join(dir, "runs"),
	})
	assert.Equal(t, exitSuccess, code)
}

func TestRunFailsOnUnreadableSourceFile(t *testing.T) {
	dir := t.TempDir()
	code := run([]string{
		"--repo", "acme/repo",
		"--target", "x.py",
		"--source-file", filepath.Join(dir, "does-not-exist.py"),
	})
	assert.Equal(t, exitError, code)
}
