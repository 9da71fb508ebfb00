package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/linanwx/notebot/config"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the agent can call",
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	reg, store, err := buildToolRegistry(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, def := range reg.Defs() {
		fmt.Fprintf(tw, "%s\t%s\n", def.Function.Name, def.Function.Description)
	}
	return tw.Flush()
}
