// Package lockfile reads pixi.lock files and turns their conda package
// entries into PackageRecords. The lock schema is owned by the upstream
// package manager; this parser reads it tolerantly and never writes it.
package lockfile

import (
	"io"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/glorpus-work/chanmirror/internal/logger"
	"github.com/glorpus-work/chanmirror/pkg/errors"
	"github.com/glorpus-work/chanmirror/pkg/model"
	"gopkg.in/yaml.v3"
)

// SupportedVersion is the pixi.lock format version this parser is written
// against. Other versions are read anyway; the structure has been stable
// enough that a warning is more useful than a refusal.
const SupportedVersion = 6

var supportedExtensions = []string{".conda", ".tar.bz2"}

// Lockfile is the parsed, normalized view of a lock file.
type Lockfile struct {
	Version int
	Records []*model.PackageRecord

	platforms map[string]struct{}
}

// Platforms returns the sorted set of platform subdirectories referenced by
// the lock file's records.
func (l *Lockfile) Platforms() []string {
	out := make([]string, 0, len(l.platforms))
	for p := range l.platforms {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// yaml wire structs. Unknown fields are ignored for forward compatibility.
type lockDocument struct {
	Version      int                        `yaml:"version"`
	Environments map[string]lockEnvironment `yaml:"environments"`
	Packages     []lockPackage              `yaml:"packages"`
}

type lockEnvironment struct {
	Packages map[string][]lockEnvPackage `yaml:"packages"`
}

type lockEnvPackage struct {
	Conda string `yaml:"conda"`
	Pypi  string `yaml:"pypi"`
}

type lockPackage struct {
	Conda  string `yaml:"conda"`
	Pypi   string `yaml:"pypi"`
	SHA256 string `yaml:"sha256"`
	MD5    string `yaml:"md5"`
	Size   int64  `yaml:"size"`
}

// Parse reads and parses the lock file at path.
func Parse(path string) (*Lockfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrLockParse, "open %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()
	return ParseReader(f, path)
}

// ParseReader parses lock file content from r. The name is used in error
// messages only.
func ParseReader(r io.Reader, name string) (*Lockfile, error) {
	var doc lockDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrapf(errors.ErrLockParse, "%s: %v", name, err)
	}

	if doc.Version != SupportedVersion {
		logger.Warnf("lock file %s has version %d, this tool targets version %d; proceeding anyway",
			name, doc.Version, SupportedVersion)
	}

	lock := &Lockfile{Version: doc.Version, platforms: make(map[string]struct{})}

	seen := make(map[string]string) // URL -> sha256, for de-duplication
	for i, pkg := range doc.Packages {
		if pkg.Conda == "" {
			// pypi and other ecosystems are not channel artifacts.
			continue
		}
		if prev, ok := seen[pkg.Conda]; ok {
			if prev != strings.ToLower(strings.TrimSpace(pkg.SHA256)) {
				return nil, errors.Wrapf(errors.ErrLockParse,
					"%s: package %d: URL %s listed twice with differing sha256", name, i, pkg.Conda)
			}
			continue
		}

		rec, err := buildRecord(pkg)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: package %d (%s)", name, i, pkg.Conda)
		}
		seen[pkg.Conda] = rec.SHA256
		lock.Records = append(lock.Records, rec)
		lock.platforms[rec.Subdir] = struct{}{}
	}

	if len(lock.Records) == 0 {
		if n := countEnvironmentCondaRefs(doc); n > 0 {
			return nil, errors.Wrapf(errors.ErrLockParse,
				"%s: environments reference %d conda packages but the top-level package list carries no digests", name, n)
		}
	}

	return lock, nil
}

func buildRecord(pkg lockPackage) (*model.PackageRecord, error) {
	u, err := url.Parse(pkg.Conda)
	if err != nil {
		return nil, errors.Wrap(errors.ErrMalformedURL, pkg.Conda)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Wrapf(errors.ErrMalformedURL, "unsupported scheme %q", u.Scheme)
	}

	filename := path.Base(u.Path)
	if filename == "" || filename == "." || filename == "/" {
		return nil, errors.ErrMissingFilename
	}

	subdir := platformSubdir(u.Path)
	if subdir == "" {
		return nil, errors.ErrMissingSubdir
	}

	sha := strings.ToLower(strings.TrimSpace(pkg.SHA256))
	if sha == "" {
		return nil, errors.ErrMissingHash
	}
	if len(sha) != 64 || !isHex(sha) {
		return nil, errors.Wrapf(errors.ErrLockParse, "sha256 %q is not a 64-character hex digest", pkg.SHA256)
	}

	rec := &model.PackageRecord{
		Subdir:   subdir,
		Filename: filename,
		URL:      u,
		SHA256:   sha,
		MD5:      strings.ToLower(strings.TrimSpace(pkg.MD5)),
		Size:     pkg.Size,
	}
	rec.Name, rec.Version, rec.Build = splitFilename(filename)
	return rec, nil
}

// platformSubdir extracts the platform partition from a conda package URL
// path. The subdir is the second-to-last component, e.g.
// /conda-forge/linux-64/numpy-1.26.4-py312_0.conda -> linux-64.
func platformSubdir(urlPath string) string {
	parts := make([]string, 0, 4)
	for _, p := range strings.Split(urlPath, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

// splitFilename parses a conda artifact filename into name, version and build
// string. The convention is <name>-<version>-<build><ext>, where name itself
// may contain hyphens.
func splitFilename(filename string) (name, version, build string) {
	stem := filename
	for _, ext := range supportedExtensions {
		if strings.HasSuffix(stem, ext) {
			stem = strings.TrimSuffix(stem, ext)
			break
		}
	}
	parts := strings.Split(stem, "-")
	if len(parts) < 3 {
		return stem, "", ""
	}
	build = parts[len(parts)-1]
	version = parts[len(parts)-2]
	name = strings.Join(parts[:len(parts)-2], "-")
	return name, version, build
}

func countEnvironmentCondaRefs(doc lockDocument) int {
	n := 0
	for _, env := range doc.Environments {
		for _, pkgs := range env.Packages {
			for _, p := range pkgs {
				if p.Conda != "" {
					n++
				}
			}
		}
	}
	return n
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
