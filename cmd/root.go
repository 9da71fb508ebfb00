// Package cmd provides CLI commands.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/linanwx/notebot/config"
	"github.com/linanwx/notebot/logger"
	"github.com/linanwx/notebot/provider"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	configDirOverride string
	logLevelOverride  string
)

// rootCmd is the root command.
var rootCmd = &cobra.Command{
	Use:           "notebot",
	Short:         "notebot - a note-taking agent with human-in-the-loop tools",
	Long:          buildRootLong(),
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func buildRootLong() string {
	var sb strings.Builder
	sb.WriteString("notebot runs a tool-using agent that takes notes, creates todos and\n")
	sb.WriteString("asks you before acting when it is unsure. Conversations are checkpointed\n")
	sb.WriteString("so a paused thread can be resumed later.\n\n")
	sb.WriteString("Supported providers:\n")

	for _, name := range provider.SupportedProviders() {
		models := provider.SupportedModelsForProvider(name)
		if len(models) > 0 {
			sb.WriteString(fmt.Sprintf("  - %s (%s)\n", name, strings.Join(models, ", ")))
		} else {
			sb.WriteString(fmt.Sprintf("  - %s\n", name))
		}
	}

	sb.WriteString("\nGet started with: notebot init")
	return sb.String()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configDirOverride, "config-dir", "", "Config directory (default ~/.notebot)")
	rootCmd.PersistentFlags().StringVar(&logLevelOverride, "log-level", "", "Override log level for this run (debug, info, warn, error)")
	rootCmd.PersistentPreRunE = initRuntime
}

// initRuntime applies the config dir override and sets up the logger.
func initRuntime(_ *cobra.Command, _ []string) error {
	if configDirOverride != "" {
		config.SetConfigDir(configDirOverride)
	}

	level := strings.ToLower(strings.TrimSpace(logLevelOverride))
	switch level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %q (use debug, info, warn, error)", logLevelOverride)
	}

	cfg, err := config.Load()
	if err != nil {
		cfg = config.DefaultConfig()
	}
	if level != "" {
		cfg.Logging.Level = level
	}

	configDir, _ := config.ConfigDir()
	logCfg := logger.Config{
		Enabled: cfg.Logging.IsEnabled(),
		Level:   cfg.Logging.Level,
		Stdout:  cfg.Logging.Stdout,
		File:    cfg.Logging.File,
		NoColor: cfg.Logging.NoColor,
	}
	if err := logger.Init(logCfg, configDir); err != nil {
		return fmt.Errorf("logger init error: %w", err)
	}
	return nil
}
