//go:build integration

package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakePackage is one artifact the test channel serves.
type fakePackage struct {
	subdir   string
	filename string
	body     []byte
}

func (p fakePackage) sha256() string {
	sum := sha256.Sum256(p.body)
	return hex.EncodeToString(sum[:])
}

// startChannelServer serves the given packages under /<subdir>/<filename>.
func startChannelServer(t *testing.T, packages []fakePackage) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for _, p := range packages {
		body := p.body
		mux.HandleFunc("/"+p.subdir+"/"+p.filename, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write(body)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// writeLockFile renders a minimal pixi.lock pinning the given packages
// against baseURL and writes it under dir.
func writeLockFile(t *testing.T, dir, baseURL string, packages []fakePackage) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("version: 6\npackages:\n")
	for _, p := range packages {
		fmt.Fprintf(&b, "- conda: %s/%s/%s\n", baseURL, p.subdir, p.filename)
		fmt.Fprintf(&b, "  sha256: %s\n", p.sha256())
		fmt.Fprintf(&b, "  size: %d\n", len(p.body))
	}
	path := filepath.Join(dir, "pixi.lock")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

// writeTempConfig writes a config with fast retries so failure tests stay quick.
func writeTempConfig(t *testing.T, dir string) string {
	t.Helper()
	content := `settings:
  http_timeout: 5s
  max_concurrent_downloads: 2
  retries: 1
  retry_backoff: 1ms
  log_level: error
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--no-progress"}, args...))
	return cmd.ExecuteContext(context.Background())
}

func requireMirrored(t *testing.T, root string, packages []fakePackage) {
	t.Helper()
	for _, p := range packages {
		data, err := os.ReadFile(filepath.Join(root, p.subdir, p.filename))
		require.NoError(t, err)
		require.Equal(t, p.body, data)
	}
}
