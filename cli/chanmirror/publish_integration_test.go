//go:build integration

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePublishConfig(t *testing.T, dir, extra string) string {
	t.Helper()
	content := `settings:
  log_level: error
` + extra
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// stageFile creates a file a `cp` publisher can copy into the mirror root,
// proving the root arrives as the command's final argument.
func stageFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "published.marker")
	require.NoError(t, os.WriteFile(path, []byte("ok"), 0o644))
	return path
}

func TestPublish_RunsPublishersAgainstRoot(t *testing.T) {
	tempDir := t.TempDir()
	root := filepath.Join(tempDir, "mirror")
	require.NoError(t, os.MkdirAll(root, 0o755))

	staged := stageFile(t, tempDir)
	cfgPath := writePublishConfig(t, tempDir, fmt.Sprintf(`publishers:
- name: check-root
  command: test
  args: ["-d"]
- name: stage
  command: cp
  args: [%q]
`, staged))

	require.NoError(t, runCLI(t, "--config", cfgPath, "publish", root))
	assert.FileExists(t, filepath.Join(root, "published.marker"))
}

func TestPublish_StopsAtFirstFailure(t *testing.T) {
	tempDir := t.TempDir()
	root := filepath.Join(tempDir, "mirror")
	require.NoError(t, os.MkdirAll(root, 0o755))

	staged := stageFile(t, tempDir)
	cfgPath := writePublishConfig(t, tempDir, fmt.Sprintf(`publishers:
- name: broken
  command: "false"
- name: stage
  command: cp
  args: [%q]
`, staged))

	require.Error(t, runCLI(t, "--config", cfgPath, "publish", root))
	_, err := os.Stat(filepath.Join(root, "published.marker"))
	assert.True(t, os.IsNotExist(err), "later publishers must not run after a failure")
}

func TestPublish_FailingPreHookBlocksPublishers(t *testing.T) {
	tempDir := t.TempDir()
	root := filepath.Join(tempDir, "mirror")
	require.NoError(t, os.MkdirAll(root, 0o755))

	hookPath := filepath.Join(tempDir, "pre.tengo")
	require.NoError(t, os.WriteFile(hookPath, []byte(`err := "mirror not ready"`), 0o644))

	staged := stageFile(t, tempDir)
	cfgPath := writePublishConfig(t, tempDir, fmt.Sprintf(`publishers:
- name: stage
  command: cp
  args: [%q]
hooks:
  pre_publish: %s
`, staged, hookPath))

	err := runCLI(t, "--config", cfgPath, "publish", root)
	require.Error(t, err)
	require.Contains(t, err.Error(), "mirror not ready")
	_, statErr := os.Stat(filepath.Join(root, "published.marker"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestPublish_MissingRootFails(t *testing.T) {
	tempDir := t.TempDir()
	cfgPath := writePublishConfig(t, tempDir, `publishers:
- name: check-root
  command: test
  args: ["-d"]
`)

	require.Error(t, runCLI(t, "--config", cfgPath, "publish", filepath.Join(tempDir, "nope")))
}
