package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMove(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(t *testing.T, dir string) (src, dst string)
		expectError bool
	}{
		{
			name: "move file within directory",
			setup: func(t *testing.T, dir string) (string, string) {
				t.Helper()
				src := filepath.Join(dir, "src.bin")
				require.NoError(t, os.WriteFile(src, []byte("payload"), FileModeDefault))
				return src, filepath.Join(dir, "dst.bin")
			},
		},
		{
			name: "move file into missing subdirectory",
			setup: func(t *testing.T, dir string) (string, string) {
				t.Helper()
				src := filepath.Join(dir, "src.bin")
				require.NoError(t, os.WriteFile(src, []byte("payload"), FileModeDefault))
				return src, filepath.Join(dir, "linux-64", "dst.bin")
			},
		},
		{
			name: "missing source",
			setup: func(t *testing.T, dir string) (string, string) {
				return filepath.Join(dir, "does-not-exist"), filepath.Join(dir, "dst.bin")
			},
			expectError: true,
		},
		{
			name: "empty paths",
			setup: func(*testing.T, string) (string, string) {
				return "", ""
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src, dst := tt.setup(t, dir)

			err := Move(src, dst)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			content, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, "payload", string(content))

			_, err = os.Stat(src)
			assert.True(t, os.IsNotExist(err), "source must be gone after move")
		})
	}
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(src, []byte("contents"), FileModeDefault))

	require.NoError(t, Copy(src, dst))

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "contents", string(content))

	// Source stays in place on copy.
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestEnsureFileDir(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "noarch", "pkg.conda")

	require.NoError(t, EnsureFileDir(target))

	info, err := os.Stat(filepath.Join(dir, "noarch"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
