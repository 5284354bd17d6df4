package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"jls/internal/config"
	"jls/internal/slogutil"
	"jls/internal/version"
)

var (
	rootFlag     string
	logLevelFlag string
	configFlag   string
	verboseFlag  int
	quietFlag    bool
)

var rootCmd = &cobra.Command{
	Use:   "jls",
	Short: "jls - Java language server",
	Long: `jls is a small Java language server. It keeps open documents parsed
incrementally, compiles stale sources with javac and reports the errors as
diagnostics, and indexes the project classpath for hover and go-to-definition.

Editors start it with 'jls serve'. The other commands run one step of the
same pipeline from the terminal.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("jls version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "Workspace root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: <root>/.jls/config.toml)")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Increase verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress log output")
}

// workspaceRoot returns the absolute --root, or the working directory.
func workspaceRoot() (string, error) {
	root := rootFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("root %s is not a directory", abs)
	}
	return abs, nil
}

// loadConfig loads and validates the workspace configuration. Warnings are
// reported through logger once it exists, so they are returned here.
func loadConfig(root string) (*config.LoadResult, error) {
	result, err := config.LoadConfigWithDetails(root, configFlag)
	if err != nil {
		return nil, err
	}
	if err := result.Config.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// commandLogger builds the stderr logger of one-shot commands. --log-level
// wins over -v/-q.
func commandLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level := slogutil.LevelFromVerbosity(verboseFlag, quietFlag)
	if logLevelFlag != "" {
		level = slogutil.LevelFromString(logLevelFlag)
	}
	return slog.New(slogutil.NewHandler(w, level, slogutil.Format(cfg.Logging.Format)))
}

func reportLoad(logger *slog.Logger, result *config.LoadResult) {
	if result.ConfigPath != "" {
		logger.Debug("Loaded config", "path", result.ConfigPath)
	}
	for _, o := range result.EnvOverrides {
		logger.Debug("Config override from environment", "env", o.EnvVar, "key", o.Key)
	}
	for _, w := range result.Warnings {
		logger.Warn("Config warning", "warning", w)
	}
}
