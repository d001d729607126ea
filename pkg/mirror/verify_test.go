package mirror

import (
	"archive/zip"
	"bytes"
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glorpus-work/chanmirror/pkg/channel"
	"github.com/glorpus-work/chanmirror/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placedRecord(t *testing.T, root, subdir, filename string, content []byte) *model.PackageRecord {
	t.Helper()
	u, err := url.Parse("https://conda.anaconda.org/test-channel/" + subdir + "/" + filename)
	require.NoError(t, err)

	path := filepath.Join(root, subdir, filename)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))

	return &model.PackageRecord{
		Subdir:   subdir,
		Filename: filename,
		URL:      u,
		SHA256:   sha256Hex(content),
	}
}

func TestVerifyOnly_Classifications(t *testing.T) {
	root := t.TempDir()

	valid := placedRecord(t, root, "linux-64", "good-1.0-h0.conda", []byte("good bytes"))

	corrupt := placedRecord(t, root, "linux-64", "bad-1.0-h0.conda", []byte("actual bytes"))
	corrupt.SHA256 = sha256Hex([]byte("expected different bytes"))

	u, err := url.Parse("https://conda.anaconda.org/test-channel/noarch/absent-1.0-h0.conda")
	require.NoError(t, err)
	missing := &model.PackageRecord{
		Subdir: "noarch", Filename: "absent-1.0-h0.conda", URL: u,
		SHA256: sha256Hex([]byte("whatever")),
	}

	layout, err := channel.BuildLayout([]*model.PackageRecord{valid, corrupt, missing})
	require.NoError(t, err)

	c := New(root, NewHTTPFetcher(time.Second, "test"), Options{Concurrency: 2}, Hooks{})
	manifest, err := c.VerifyOnly(context.Background(), layout, VerifyOptions{})
	require.NoError(t, err)

	byID := make(map[string]model.MirrorStatus)
	for _, res := range manifest.Results {
		byID[res.Record.ID()] = res.Status
	}
	assert.Equal(t, model.StatusSkipped, byID["linux-64/good-1.0-h0.conda"])
	assert.Equal(t, model.StatusCorrupt, byID["linux-64/bad-1.0-h0.conda"])
	assert.Equal(t, model.StatusMissing, byID["noarch/absent-1.0-h0.conda"])
}

func zipArtifact(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("info/index.json")
	require.NoError(t, err)
	_, err = f.Write([]byte(`{"name": "pkg"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestVerifyOnly_Deep(t *testing.T) {
	root := t.TempDir()

	readable := placedRecord(t, root, "linux-64", "pkg-1.0-h0.conda", zipArtifact(t))
	garbage := placedRecord(t, root, "linux-64", "junk-1.0-h0.conda", []byte("not an archive at all"))

	layout, err := channel.BuildLayout([]*model.PackageRecord{readable, garbage})
	require.NoError(t, err)

	c := New(root, NewHTTPFetcher(time.Second, "test"), Options{Concurrency: 2}, Hooks{})
	manifest, err := c.VerifyOnly(context.Background(), layout, VerifyOptions{Deep: true})
	require.NoError(t, err)

	byID := make(map[string]model.MirrorStatus)
	for _, res := range manifest.Results {
		byID[res.Record.ID()] = res.Status
	}
	assert.Equal(t, model.StatusSkipped, byID["linux-64/pkg-1.0-h0.conda"])
	assert.Equal(t, model.StatusCorrupt, byID["linux-64/junk-1.0-h0.conda"],
		"hash-valid but unreadable artifacts must be flagged by deep verification")
}
