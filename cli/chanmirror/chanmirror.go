package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/glorpus-work/chanmirror/internal/cli"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	noProgress bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chanmirror",
		Short: "Mirror the conda packages of a pixi lock file into an offline channel",
		Long: `chanmirror turns a pixi.lock file into a local conda channel mirror:
- mirror: download every pinned conda package into a channel layout
- verify: re-check an existing mirror against the lock file
- publish: hand a finished mirror to external sync commands
- clean: remove leftover temp files and unreferenced artifacts`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")

	// Set up CLI pkg variables
	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.NoProgress = &noProgress

	// Add subcommands
	cmd.AddCommand(
		cli.NewMirrorCmd(),
		cli.NewVerifyCmd(),
		cli.NewPublishCmd(),
		cli.NewCleanCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
