// Package model provides the data structures shared between the lock parser,
// the channel layout mapper and the mirror engine.
package model

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/hashicorp/go-version"
)

// PackageRecord is one fully resolved entry from a lock file. It is immutable
// once parsed; within a single mirror it is uniquely identified by
// (Subdir, Filename).
type PackageRecord struct {
	Name     string
	Version  string
	Build    string
	Subdir   string   // platform subdirectory, e.g. "linux-64" or "noarch"
	Filename string   // artifact filename, e.g. "numpy-1.26.4-py312h...conda"
	URL      *url.URL // source location
	SHA256   string   // required content hash, lowercase hex
	MD5      string   // optional secondary digest from the lock file
	Size     int64    // optional expected size in bytes
}

// ID returns a stable identifier for the record, used in events and reports.
func (r *PackageRecord) ID() string {
	return r.Subdir + "/" + r.Filename
}

// ChannelPath returns the record's relative location in the channel layout.
func (r *PackageRecord) ChannelPath() ChannelPath {
	return ChannelPath{Subdir: r.Subdir, Filename: r.Filename}
}

// ParseVersion returns the record's version parsed for ordering, or nil when
// the version string does not parse (conda allows version epochs and other
// forms go-version rejects).
func (r *PackageRecord) ParseVersion() *version.Version {
	v, err := version.NewVersion(r.Version)
	if err != nil {
		return nil
	}
	return v
}

// SortRecords orders records by name, then version (falling back to a string
// comparison when a version does not parse), then build string.
func SortRecords(records []*PackageRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		av, bv := a.ParseVersion(), b.ParseVersion()
		if av != nil && bv != nil && !av.Equal(bv) {
			return av.LessThan(bv)
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		return a.Build < b.Build
	})
}

// ChannelPath is the deterministic relative filesystem location of a record
// within a channel mirror: <subdir>/<filename>.
type ChannelPath struct {
	Subdir   string
	Filename string
}

// String returns the path in slash form, independent of the host OS.
func (p ChannelPath) String() string {
	return path.Join(p.Subdir, p.Filename)
}

// Valid reports whether both components are present and free of traversal.
func (p ChannelPath) Valid() bool {
	if p.Subdir == "" || p.Filename == "" {
		return false
	}
	for _, part := range []string{p.Subdir, p.Filename} {
		if part == "." || part == ".." || strings.ContainsAny(part, "/\\") {
			return false
		}
	}
	return true
}
