package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/chanmirror/internal/logger"
	"github.com/glorpus-work/chanmirror/pkg/config"
	"github.com/glorpus-work/chanmirror/pkg/errors"
	"github.com/glorpus-work/chanmirror/pkg/hook"
	"github.com/glorpus-work/chanmirror/pkg/publish"
	"github.com/spf13/cobra"
)

// NewPublishCmd creates the publish command.
func NewPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish DIR",
		Short: "Hand a finished mirror to the configured publisher commands",
		Long: `Run each publisher command from the configuration against DIR, in
order, stopping at the first failure. Optional pre-publish and
post-publish hook scripts run around the publisher chain.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, args[0])
		},
	}
	return cmd
}

func runPublish(cmd *cobra.Command, dir string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root, err := resolveRoot(dir)
	if err != nil {
		return err
	}
	if st, err := os.Stat(root); err != nil || !st.IsDir() {
		return errors.Wrapf(errors.ErrArtifactMissing, "mirror root %s does not exist", root)
	}

	publishers := make([]publish.Publisher, 0, len(cfg.Publishers))
	for _, pc := range cfg.Publishers {
		publishers = append(publishers, publish.NewExecPublisher(pc.Name, pc.Command, pc.Args...))
	}
	if len(publishers) == 0 {
		logger.Warn("no publishers configured, nothing to do")
		return nil
	}

	executor, err := loadHooks(cfg)
	if err != nil {
		return err
	}
	hookCtx := hook.Context{Root: root, Total: countArtifacts(root)}

	if executor.HasScript(hook.PrePublish) {
		if err := executor.Execute(hook.PrePublish, hookCtx); err != nil {
			return errors.Wrap(err, "pre-publish hook failed")
		}
	}

	if err := publish.All(cmd.Context(), publishers, root); err != nil {
		return err
	}

	if executor.HasScript(hook.PostPublish) {
		if err := executor.Execute(hook.PostPublish, hookCtx); err != nil {
			return errors.Wrap(err, "post-publish hook failed")
		}
	}

	logger.Info("mirror published", logger.Fields{"root": root, "publishers": len(publishers)})
	return nil
}

// countArtifacts reports how many conda packages sit under root, so hook
// scripts can sanity-check the mirror before it ships.
func countArtifacts(root string) int {
	count := 0
	_ = filepath.WalkDir(root, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil //nolint:nilerr
		}
		name := d.Name()
		if strings.HasSuffix(name, ".conda") || strings.HasSuffix(name, ".tar.bz2") {
			count++
		}
		return nil
	})
	return count
}

// loadHooks builds the hook executor from the configured script files.
// Relative script paths resolve against the config file's directory.
func loadHooks(cfg *config.Config) (*hook.Executor, error) {
	executor := hook.NewExecutor()
	for hookType, path := range map[hook.Type]string{
		hook.PrePublish:  cfg.Hooks.PrePublish,
		hook.PostPublish: cfg.Hooks.PostPublish,
	} {
		if path == "" {
			continue
		}
		if !filepath.IsAbs(path) && ConfigPath != nil && *ConfigPath != "" {
			path = filepath.Join(filepath.Dir(*ConfigPath), path)
		}
		if err := executor.AddScriptFile(hookType, path); err != nil {
			return nil, err
		}
	}
	return executor, nil
}
