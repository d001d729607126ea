//go:build integration

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMirror_DownloadsChannel(t *testing.T) {
	tempDir := t.TempDir()
	packages := []fakePackage{
		{subdir: "linux-64", filename: "numpy-1.26.4-py312h8753938_0.conda", body: []byte("numpy artifact")},
		{subdir: "linux-64", filename: "pandas-2.2.0-py312h1d6e08b_0.conda", body: []byte("pandas artifact")},
		{subdir: "noarch", filename: "tzdata-2024a-h0c530f3_0.conda", body: []byte("tzdata artifact")},
	}
	srv := startChannelServer(t, packages)
	lockPath := writeLockFile(t, tempDir, srv.URL, packages)
	cfgPath := writeTempConfig(t, tempDir)
	root := filepath.Join(tempDir, "mirror")

	require.NoError(t, runCLI(t, "--config", cfgPath, "mirror", lockPath, root))
	requireMirrored(t, root, packages)
}

func TestMirror_SecondRunIsIdempotent(t *testing.T) {
	tempDir := t.TempDir()
	packages := []fakePackage{
		{subdir: "linux-64", filename: "numpy-1.26.4-py312h8753938_0.conda", body: []byte("numpy artifact")},
	}
	srv := startChannelServer(t, packages)
	lockPath := writeLockFile(t, tempDir, srv.URL, packages)
	cfgPath := writeTempConfig(t, tempDir)
	root := filepath.Join(tempDir, "mirror")

	require.NoError(t, runCLI(t, "--config", cfgPath, "mirror", lockPath, root))
	first, err := os.Stat(filepath.Join(root, packages[0].subdir, packages[0].filename))
	require.NoError(t, err)

	require.NoError(t, runCLI(t, "--config", cfgPath, "mirror", lockPath, root))
	second, err := os.Stat(filepath.Join(root, packages[0].subdir, packages[0].filename))
	require.NoError(t, err)
	assert.Equal(t, first.ModTime(), second.ModTime(), "valid artifact must not be rewritten")
}

func TestMirror_FailsWhenArtifactUnavailable(t *testing.T) {
	tempDir := t.TempDir()
	served := fakePackage{subdir: "linux-64", filename: "numpy-1.26.4-py312h8753938_0.conda", body: []byte("numpy artifact")}
	missing := fakePackage{subdir: "linux-64", filename: "gone-1.0.0-h0_0.conda", body: []byte("never served")}
	srv := startChannelServer(t, []fakePackage{served})
	lockPath := writeLockFile(t, tempDir, srv.URL, []fakePackage{served, missing})
	cfgPath := writeTempConfig(t, tempDir)
	root := filepath.Join(tempDir, "mirror")

	err := runCLI(t, "--config", cfgPath, "mirror", lockPath, root)
	require.Error(t, err)

	// The reachable artifact still lands.
	requireMirrored(t, root, []fakePackage{served})
	_, statErr := os.Stat(filepath.Join(root, missing.subdir, missing.filename))
	assert.True(t, os.IsNotExist(statErr))
}

func TestMirror_PlatformFilter(t *testing.T) {
	tempDir := t.TempDir()
	packages := []fakePackage{
		{subdir: "linux-64", filename: "numpy-1.26.4-py312h8753938_0.conda", body: []byte("numpy artifact")},
		{subdir: "osx-arm64", filename: "numpy-1.26.4-py312h_0.conda", body: []byte("mac numpy artifact")},
	}
	srv := startChannelServer(t, packages)
	lockPath := writeLockFile(t, tempDir, srv.URL, packages)
	cfgPath := writeTempConfig(t, tempDir)
	root := filepath.Join(tempDir, "mirror")

	require.NoError(t, runCLI(t, "--config", cfgPath, "mirror", "--platform", "linux-64", lockPath, root))
	requireMirrored(t, root, packages[:1])
	_, err := os.Stat(filepath.Join(root, "osx-arm64"))
	assert.True(t, os.IsNotExist(err))
}
