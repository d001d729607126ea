package cli

import (
	"os"

	"github.com/glorpus-work/chanmirror/internal/logger"
	"github.com/glorpus-work/chanmirror/pkg/errors"
	"github.com/glorpus-work/chanmirror/pkg/mirror"
	"github.com/glorpus-work/chanmirror/pkg/model"
	"github.com/spf13/cobra"
)

// NewVerifyCmd creates the verify command.
func NewVerifyCmd() *cobra.Command {
	var (
		deep      bool
		platforms []string
	)

	cmd := &cobra.Command{
		Use:   "verify LOCKFILE DIR",
		Short: "Check an existing mirror against the lock file without downloading",
		Long: `Re-hash every artifact the lock file pins and report which ones are
missing or corrupt in DIR. Nothing is downloaded or deleted. With --deep
each archive is additionally opened to confirm it is readable.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, args[0], args[1], deep, platforms)
		},
	}

	cmd.Flags().BoolVar(&deep, "deep", false, "Also open each archive and walk its contents")
	cmd.Flags().StringSliceVar(&platforms, "platform", nil, "Restrict to these platform subdirs (repeatable)")

	return cmd
}

func runVerify(cmd *cobra.Command, lockPath, dir string, deep bool, platforms []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	layout, err := loadPlan(lockPath, platforms)
	if err != nil {
		return err
	}

	root, err := resolveRoot(dir)
	if err != nil {
		return err
	}

	opts := mirror.Options{Concurrency: cfg.Settings.MaxConcurrent}
	fetcher := mirror.NewHTTPFetcher(cfg.Settings.HTTPTimeout, cfg.Settings.UserAgent)
	coord := mirror.New(root, fetcher, opts, newVerifyHooks(layout.Len()))

	manifest, runErr := coord.VerifyOnly(cmd.Context(), layout, mirror.VerifyOptions{Deep: deep})
	if runErr != nil {
		return runErr
	}

	valid := manifest.CountByStatus(model.StatusSkipped)
	corrupt := manifest.CountByStatus(model.StatusCorrupt)
	missing := manifest.CountByStatus(model.StatusMissing)

	report := mirror.Summarize(manifest)
	report.Render(os.Stdout)

	if corrupt > 0 || missing > 0 {
		return errors.Wrapf(errors.ErrMirrorIncomplete,
			"%d corrupt and %d missing of %d artifacts", corrupt, missing, layout.Len())
	}
	logger.Info("mirror verified", logger.Fields{"root": root, "artifacts": valid})
	return nil
}
