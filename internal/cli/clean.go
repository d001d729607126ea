package cli

import (
	"fmt"

	"github.com/glorpus-work/chanmirror/internal/logger"
	"github.com/glorpus-work/chanmirror/pkg/channel"
	"github.com/spf13/cobra"
)

// NewCleanCmd creates the clean command.
func NewCleanCmd() *cobra.Command {
	var pruneLock string

	cmd := &cobra.Command{
		Use:   "clean DIR",
		Short: "Remove leftover temp files from a mirror directory",
		Long: `Delete partial download files left behind by interrupted runs.
With --prune, also remove artifacts that the given lock file no longer
references. Indexer metadata like repodata.json is never touched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runClean(args[0], pruneLock)
		},
	}

	cmd.Flags().StringVar(&pruneLock, "prune", "", "Lock file whose packages define what to keep")

	return cmd
}

func runClean(dir, pruneLock string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	root, err := resolveRoot(dir)
	if err != nil {
		return err
	}

	swept, err := channel.SweepTemp(root)
	if err != nil {
		return fmt.Errorf("failed to sweep temp files: %w", err)
	}
	logger.Info("swept temp files", logger.Fields{"root": root, "removed": swept})

	if pruneLock == "" {
		return nil
	}

	layout, err := loadPlan(pruneLock, nil)
	if err != nil {
		return err
	}
	pruned, err := channel.Prune(root, layout)
	if err != nil {
		return fmt.Errorf("failed to prune mirror: %w", err)
	}
	for _, rel := range pruned {
		logger.Debug("pruned", logger.Fields{"path": rel})
	}
	logger.Info("pruned unreferenced artifacts", logger.Fields{"root": root, "removed": len(pruned)})
	return nil
}
