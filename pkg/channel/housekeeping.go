package channel

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/chanmirror/internal/logger"
	"github.com/glorpus-work/chanmirror/pkg/errors"
)

// TempPattern is the naming scheme for in-flight download files. Temp files
// live beside their final path but outside the final-path namespace, so an
// interrupted run can never leave one where a consumer would pick it up.
const TempPattern = "dl-*.tmp"

const tempPrefix = "dl-"
const tempSuffix = ".tmp"

// indexFiles created by the external channel indexer. Housekeeping must never
// remove them.
var indexFiles = map[string]struct{}{
	"repodata.json":               {},
	"repodata.json.bz2":           {},
	"repodata.json.zst":           {},
	"current_repodata.json":       {},
	"repodata_from_packages.json": {},
	"index.html":                  {},
	"channeldata.json":            {},
}

func isTempFile(name string) bool {
	return strings.HasPrefix(name, tempPrefix) && strings.HasSuffix(name, tempSuffix)
}

func isIndexFile(name string) bool {
	_, ok := indexFiles[name]
	return ok
}

// SweepTemp removes orphaned temp files left under root by interrupted runs
// and returns how many were removed. A missing root is not an error.
func SweepTemp(root string) (int, error) {
	removed := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() || !isTempFile(d.Name()) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return errors.Wrapf(err, "removing orphaned temp file %s", path)
		}
		logger.Debug("removed orphaned temp file", logger.Fields{"path": path})
		removed++
		return nil
	})
	if err != nil {
		return removed, err
	}
	return removed, nil
}

// Prune removes artifact files under the layout's platform subdirectories
// that the layout does not reference, and returns the removed relative paths.
// Files outside those subdirectories and index metadata written by the
// external indexer are left alone.
func Prune(root string, layout *Layout) ([]string, error) {
	var removed []string
	for _, subdir := range layout.Subdirs() {
		dir := filepath.Join(root, subdir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, errors.Wrapf(err, "reading %s", dir)
		}
		for _, entry := range entries {
			if entry.IsDir() || isIndexFile(entry.Name()) {
				continue
			}
			rel := subdir + "/" + entry.Name()
			if layout.Contains(rel) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				return removed, errors.Wrapf(err, "pruning %s", rel)
			}
			logger.Info("pruned unreferenced artifact", logger.Fields{"path": rel})
			removed = append(removed, rel)
		}
	}
	return removed, nil
}

// AbsPath resolves a channel path against the mirror root.
func AbsPath(root, subdir, filename string) string {
	return filepath.Join(root, subdir, filename)
}
