package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glorpus-work/chanmirror/internal/logger"
	"github.com/glorpus-work/chanmirror/pkg/channel"
	"github.com/glorpus-work/chanmirror/pkg/config"
	"github.com/glorpus-work/chanmirror/pkg/lockfile"
)

// These variables will be set by the main package.
var (
	ConfigPath *string
	Verbose    *bool
	NoProgress *bool
)

// loadConfig loads the configuration from the --config flag or the default
// location and initializes the logger from it.
func loadConfig() (*config.Config, error) {
	path := ""
	if ConfigPath != nil {
		path = *ConfigPath
	}
	if path == "" {
		defaultPath, err := config.DefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
		path = defaultPath
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Settings.LogLevel
	if Verbose != nil && *Verbose {
		level = "debug"
	}
	logger.InitLogger(level)

	return cfg, nil
}

// loadPlan parses the lock file and builds the channel layout, optionally
// filtered to the given platform subdirs.
func loadPlan(lockPath string, platforms []string) (*channel.Layout, error) {
	lock, err := lockfile.Parse(lockPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("parsed lock file", logger.Fields{
		"records":   len(lock.Records),
		"platforms": len(lock.Platforms()),
	})

	layout, err := channel.BuildLayout(lock.Records)
	if err != nil {
		return nil, err
	}

	if len(platforms) > 0 {
		known := make(map[string]struct{})
		for _, p := range lock.Platforms() {
			known[p] = struct{}{}
		}
		for _, p := range platforms {
			if _, ok := known[p]; !ok {
				logger.Warnf("platform %q does not appear in the lock file", p)
			}
		}
		layout = layout.Filter(platforms)
	}
	return layout, nil
}

// resolveRoot turns the mirror root argument into an absolute path.
func resolveRoot(arg string) (string, error) {
	root, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("failed to resolve mirror root %q: %w", arg, err)
	}
	if st, err := os.Stat(root); err == nil && !st.IsDir() {
		return "", fmt.Errorf("mirror root %q exists but is not a directory", root)
	}
	return root, nil
}

func progressEnabled() bool {
	if NoProgress != nil && *NoProgress {
		return false
	}
	if Verbose != nil && *Verbose {
		// Debug logging and a progress bar fight over the terminal.
		return false
	}
	return true
}
