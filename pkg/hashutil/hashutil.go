// Package hashutil computes and checks content digests of mirror artifacts.
// All hashing is streamed so memory stays bounded regardless of artifact size.
package hashutil

import (
	"crypto/md5" //nolint:gosec // md5 is a secondary digest carried by lock files, not a security boundary
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/glorpus-work/chanmirror/pkg/errors"
)

// SHA256File returns the lowercase hex SHA-256 digest of the file at path.
func SHA256File(path string) (string, error) {
	return hashFile(path, sha256.New())
}

// MD5File returns the lowercase hex MD5 digest of the file at path.
func MD5File(path string) (string, error) {
	return hashFile(path, md5.New()) //nolint:gosec
}

func hashFile(path string, h hash.Hash) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open for checksum")
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrap(err, "hashing")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify stream-hashes the file at path and compares it with the expected
// SHA-256 digest. It reports match or mismatch and never remediates; deciding
// between re-download and abort is the caller's job.
func Verify(path, wantSHA256 string) (bool, error) {
	got, err := SHA256File(path)
	if err != nil {
		return false, err
	}
	return got == NormalizeHex(wantSHA256), nil
}

// NormalizeHex lowercases and trims a hex digest for comparison.
func NormalizeHex(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
