// Package channel maps package records onto the on-disk channel layout
// (<root>/<subdir>/<filename>) and owns the housekeeping around it: collision
// detection before any download, sweeping orphaned temp files, and pruning
// artifacts a lock file no longer references.
package channel

import (
	"fmt"

	"github.com/glorpus-work/chanmirror/pkg/errors"
	"github.com/glorpus-work/chanmirror/pkg/model"
)

// Layout is the planned mapping of one run: every record bound to its channel
// path, with duplicate-path conflicts already ruled out. Build it once before
// fetching anything.
type Layout struct {
	records []*model.PackageRecord
	byPath  map[string]*model.PackageRecord
}

// BuildLayout computes the channel path of every record and checks the
// collision invariant: two records may share a path only when they carry the
// same expected hash. A collision with differing hashes returns
// ErrPathCollision naming both entries; proceeding would risk serving the
// wrong artifact. Records that are exact duplicates collapse into one planned
// entry, preserving first-seen order.
func BuildLayout(records []*model.PackageRecord) (*Layout, error) {
	l := &Layout{byPath: make(map[string]*model.PackageRecord, len(records))}
	for _, rec := range records {
		p := rec.ChannelPath()
		if !p.Valid() {
			return nil, errors.Wrapf(errors.ErrInvalidPath, "record %s maps to unusable path %q", rec.URL, p.String())
		}
		key := p.String()
		if prev, ok := l.byPath[key]; ok {
			if prev.SHA256 != rec.SHA256 {
				return nil, errors.Wrapf(errors.ErrPathCollision,
					"%s is claimed by %s (sha256 %s) and %s (sha256 %s)",
					key, prev.URL, prev.SHA256, rec.URL, rec.SHA256)
			}
			continue
		}
		l.byPath[key] = rec
		l.records = append(l.records, rec)
	}
	return l, nil
}

// Records returns the planned records in first-seen order.
func (l *Layout) Records() []*model.PackageRecord {
	return l.records
}

// Len returns the number of planned entries.
func (l *Layout) Len() int {
	return len(l.records)
}

// Lookup returns the record planned for the given channel path.
func (l *Layout) Lookup(p model.ChannelPath) (*model.PackageRecord, bool) {
	rec, ok := l.byPath[p.String()]
	return rec, ok
}

// Contains reports whether a relative path (slash form) belongs to the layout.
func (l *Layout) Contains(relPath string) bool {
	_, ok := l.byPath[relPath]
	return ok
}

// Subdirs returns the set of platform subdirectories the layout touches.
func (l *Layout) Subdirs() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range l.records {
		if _, ok := seen[rec.Subdir]; ok {
			continue
		}
		seen[rec.Subdir] = struct{}{}
		out = append(out, rec.Subdir)
	}
	return out
}

// Filter returns a new layout containing only records whose subdir is in the
// given set. An empty set keeps everything.
func (l *Layout) Filter(subdirs []string) *Layout {
	if len(subdirs) == 0 {
		return l
	}
	want := make(map[string]struct{}, len(subdirs))
	for _, s := range subdirs {
		want[s] = struct{}{}
	}
	filtered := &Layout{byPath: make(map[string]*model.PackageRecord)}
	for _, rec := range l.records {
		if _, ok := want[rec.Subdir]; !ok {
			continue
		}
		filtered.byPath[rec.ChannelPath().String()] = rec
		filtered.records = append(filtered.records, rec)
	}
	return filtered
}

// String summarizes the layout for log output.
func (l *Layout) String() string {
	return fmt.Sprintf("%d artifacts across %d platforms", len(l.records), len(l.Subdirs()))
}
