package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/linanwx/notebot/config"
	"github.com/linanwx/notebot/internal/health"
	"github.com/linanwx/notebot/tools"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and runtime health",
	RunE:  runStatus,
}

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the snapshot as JSON")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	reg, store, err := buildToolRegistry(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	snap := health.Collect(health.Options{Agent: &health.AgentInfo{
		Provider:   cfg.GetProvider(),
		Model:      cfg.GetModelType(),
		Checkpoint: cfg.Checkpoint.Driver,
		Tools:      append(reg.Names(), tools.AskHumanName),
	}})

	out := cmd.OutOrStdout()
	if statusJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	_, err = fmt.Fprint(out, health.FormatText(snap))
	return err
}
