//go:build integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean_RemovesTempFiles(t *testing.T) {
	tempDir := t.TempDir()
	packages := []fakePackage{
		{subdir: "linux-64", filename: "numpy-1.26.4-py312h8753938_0.conda", body: []byte("numpy artifact")},
	}
	srv := startChannelServer(t, packages)
	lockPath := writeLockFile(t, tempDir, srv.URL, packages)
	cfgPath := writeTempConfig(t, tempDir)
	root := filepath.Join(tempDir, "mirror")

	require.NoError(t, runCLI(t, "--config", cfgPath, "mirror", lockPath, root))

	// Simulate an interrupted download.
	orphan := filepath.Join(root, "linux-64", "dl-123456.tmp")
	require.NoError(t, os.WriteFile(orphan, []byte("partial"), 0o644))

	require.NoError(t, runCLI(t, "--config", cfgPath, "clean", root))

	_, err := os.Stat(orphan)
	assert.True(t, os.IsNotExist(err))
	requireMirrored(t, root, packages)
}

func TestClean_PruneRemovesUnreferencedArtifacts(t *testing.T) {
	tempDir := t.TempDir()
	packages := []fakePackage{
		{subdir: "linux-64", filename: "numpy-1.26.4-py312h8753938_0.conda", body: []byte("numpy artifact")},
	}
	srv := startChannelServer(t, packages)
	lockPath := writeLockFile(t, tempDir, srv.URL, packages)
	cfgPath := writeTempConfig(t, tempDir)
	root := filepath.Join(tempDir, "mirror")

	require.NoError(t, runCLI(t, "--config", cfgPath, "mirror", lockPath, root))

	// A stale artifact from an older lock file, plus indexer metadata.
	stale := filepath.Join(root, "linux-64", "oldpkg-0.1.0-h0_0.conda")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))
	repodata := filepath.Join(root, "linux-64", "repodata.json")
	require.NoError(t, os.WriteFile(repodata, []byte("{}"), 0o644))

	require.NoError(t, runCLI(t, "--config", cfgPath, "clean", "--prune", lockPath, root))

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	assert.FileExists(t, repodata, "indexer metadata must survive pruning")
	requireMirrored(t, root, packages)
}
