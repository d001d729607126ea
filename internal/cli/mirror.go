package cli

import (
	"fmt"
	"os"

	"github.com/glorpus-work/chanmirror/internal/logger"
	"github.com/glorpus-work/chanmirror/pkg/errors"
	"github.com/glorpus-work/chanmirror/pkg/mirror"
	"github.com/spf13/cobra"
)

// NewMirrorCmd creates the mirror command.
func NewMirrorCmd() *cobra.Command {
	var (
		concurrency int
		retries     int
		force       bool
		platforms   []string
	)

	cmd := &cobra.Command{
		Use:   "mirror LOCKFILE DIR",
		Short: "Download all conda packages from a lock file into a channel mirror",
		Long: `Parse a pixi lock file and download every conda package it pins into
DIR, laid out as a conda channel (one directory per platform subdir).
Artifacts already present with a matching SHA256 digest are skipped, so
re-running against the same directory only fetches what is missing.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMirror(cmd, args[0], args[1], concurrency, retries, force, platforms)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Number of parallel downloads (0=config)")
	cmd.Flags().IntVar(&retries, "retries", -1, "Retries per artifact after the first attempt (-1=config)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-download artifacts even if they already verify")
	cmd.Flags().StringSliceVar(&platforms, "platform", nil, "Restrict to these platform subdirs (repeatable)")

	return cmd
}

func runMirror(cmd *cobra.Command, lockPath, dir string, concurrency, retries int, force bool, platforms []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	layout, err := loadPlan(lockPath, platforms)
	if err != nil {
		return err
	}
	if layout.Len() == 0 {
		logger.Warn("lock file pins no conda packages for the selected platforms", logger.Fields{"lockfile": lockPath})
		return nil
	}

	root, err := resolveRoot(dir)
	if err != nil {
		return err
	}

	if concurrency <= 0 {
		concurrency = cfg.Settings.MaxConcurrent
	}
	if retries < 0 {
		retries = cfg.Settings.Retries
	}

	opts := mirror.Options{
		Concurrency: concurrency,
		Retries:     retries,
		Backoff:     cfg.Settings.Backoff,
		Force:       force,
	}

	registry, err := cfg.AuthRegistry()
	if err != nil {
		return err
	}
	fetcher := mirror.NewHTTPFetcher(cfg.Settings.HTTPTimeout, cfg.Settings.UserAgent).WithAuth(registry)
	coord := mirror.New(root, fetcher, opts, newRunHooks(layout.Len(), "mirroring"))

	logger.Info("mirroring channel", logger.Fields{
		"lockfile": lockPath,
		"root":     root,
		"records":  layout.Len(),
		"workers":  concurrency,
	})

	manifest, runErr := coord.Run(cmd.Context(), layout)
	if runErr != nil {
		return fmt.Errorf("mirror run aborted: %w", runErr)
	}

	report := mirror.Summarize(manifest)
	report.Render(os.Stdout)
	if !report.OK() {
		return errors.Wrapf(errors.ErrMirrorIncomplete, "%d of %d artifacts failed", report.Failed, report.Total)
	}
	return nil
}
