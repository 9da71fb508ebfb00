package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/linanwx/notebot/checkpoint"
	"github.com/linanwx/notebot/config"
	"github.com/linanwx/notebot/tools"
	"github.com/spf13/cobra"
)

var threadCmd = &cobra.Command{
	Use:   "thread",
	Short: "Inspect or delete checkpointed threads",
}

var threadShowCmd = &cobra.Command{
	Use:   "show <thread-id>",
	Short: "Print a thread's history and pending question",
	Args:  cobra.ExactArgs(1),
	RunE:  runThreadShow,
}

var threadDeleteCmd = &cobra.Command{
	Use:   "delete <thread-id>",
	Short: "Delete a thread's checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  runThreadDelete,
}

func init() {
	threadCmd.AddCommand(threadShowCmd, threadDeleteCmd)
	rootCmd.AddCommand(threadCmd)
}

func openCheckpointStore(cmd *cobra.Command) (checkpoint.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	store, err := checkpoint.Open(cmd.Context(), cfg.Checkpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	return store, nil
}

func runThreadShow(cmd *cobra.Command, args []string) error {
	store, err := openCheckpointStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Load(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, checkpoint.ErrNotFound) {
			return fmt.Errorf("thread %s not found", args[0])
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "thread:  %s\n", rec.ThreadID)
	fmt.Fprintf(out, "updated: %s\n", rec.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	if rec.PendingNode != checkpoint.PendingNone {
		fmt.Fprintf(out, "pending: %s\n", rec.PendingNode)
	}
	if call, ok := rec.PendingCall(); ok {
		fmt.Fprintf(out, "question: %s\n", tools.AskHumanQuestion(call.Function.Arguments))
	}
	fmt.Fprintln(out)

	for _, m := range rec.Messages {
		switch {
		case len(m.ToolCalls) > 0:
			names := make([]string, 0, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				names = append(names, tc.Function.Name)
			}
			fmt.Fprintf(out, "[%s] %s -> %s\n", m.Role, strings.TrimSpace(m.Content), strings.Join(names, ", "))
		case m.Role == "tool":
			fmt.Fprintf(out, "[tool:%s] %s\n", m.Name, m.Content)
		default:
			fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Content)
		}
	}
	return nil
}

func runThreadDelete(cmd *cobra.Command, args []string) error {
	store, err := openCheckpointStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	ok, err := store.Exists(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("thread %s not found", args[0])
	}
	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Deleted thread", args[0])
	return nil
}
