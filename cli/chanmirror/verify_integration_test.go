//go:build integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerify_ValidMirrorPasses(t *testing.T) {
	tempDir := t.TempDir()
	packages := []fakePackage{
		{subdir: "linux-64", filename: "numpy-1.26.4-py312h8753938_0.conda", body: []byte("numpy artifact")},
		{subdir: "noarch", filename: "tzdata-2024a-h0c530f3_0.conda", body: []byte("tzdata artifact")},
	}
	srv := startChannelServer(t, packages)
	lockPath := writeLockFile(t, tempDir, srv.URL, packages)
	cfgPath := writeTempConfig(t, tempDir)
	root := filepath.Join(tempDir, "mirror")

	require.NoError(t, runCLI(t, "--config", cfgPath, "mirror", lockPath, root))
	require.NoError(t, runCLI(t, "--config", cfgPath, "verify", lockPath, root))
}

func TestVerify_ReportsCorruptAndMissing(t *testing.T) {
	tempDir := t.TempDir()
	packages := []fakePackage{
		{subdir: "linux-64", filename: "numpy-1.26.4-py312h8753938_0.conda", body: []byte("numpy artifact")},
		{subdir: "noarch", filename: "tzdata-2024a-h0c530f3_0.conda", body: []byte("tzdata artifact")},
	}
	srv := startChannelServer(t, packages)
	lockPath := writeLockFile(t, tempDir, srv.URL, packages)
	cfgPath := writeTempConfig(t, tempDir)
	root := filepath.Join(tempDir, "mirror")

	require.NoError(t, runCLI(t, "--config", cfgPath, "mirror", lockPath, root))

	// Corrupt one artifact, delete the other.
	corrupted := filepath.Join(root, "linux-64", packages[0].filename)
	require.NoError(t, os.WriteFile(corrupted, []byte("tampered"), 0o644))
	require.NoError(t, os.Remove(filepath.Join(root, "noarch", packages[1].filename)))

	err := runCLI(t, "--config", cfgPath, "verify", lockPath, root)
	require.Error(t, err)
	require.Contains(t, err.Error(), "1 corrupt and 1 missing")
}

func TestVerify_NeverDownloads(t *testing.T) {
	tempDir := t.TempDir()
	packages := []fakePackage{
		{subdir: "linux-64", filename: "numpy-1.26.4-py312h8753938_0.conda", body: []byte("numpy artifact")},
	}
	srv := startChannelServer(t, packages)
	lockPath := writeLockFile(t, tempDir, srv.URL, packages)
	cfgPath := writeTempConfig(t, tempDir)
	root := filepath.Join(tempDir, "mirror")
	require.NoError(t, os.MkdirAll(root, 0o755))

	require.Error(t, runCLI(t, "--config", cfgPath, "verify", lockPath, root))
	_, err := os.Stat(filepath.Join(root, "linux-64", packages[0].filename))
	require.True(t, os.IsNotExist(err))
}
