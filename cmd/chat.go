package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/linanwx/notebot/channel"
	"github.com/linanwx/notebot/config"
	"github.com/linanwx/notebot/logger"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the agent in the terminal",
	Long: `Start an interactive session. Each line is one turn.

When the agent asks a question, the next line is the answer; type /cancel
to decline. /new starts a new thread, /thread prints the current one, and
exit quits.

Examples:
  notebot chat
  notebot chat --thread 3f1c...   # continue a thread
  notebot chat --ephemeral        # keep checkpoints in memory`,
	RunE: runChat,
}

var (
	chatThreadID  string
	chatUserID    string
	chatEphemeral bool
)

func init() {
	chatCmd.Flags().StringVar(&chatThreadID, "thread", "", "Continue an existing thread")
	chatCmd.Flags().StringVar(&chatUserID, "user", "", "User name shown to the model (default $USER)")
	chatCmd.Flags().BoolVar(&chatEphemeral, "ephemeral", false, "Keep checkpoints in memory for this session")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildAgentRuntime(ctx, cfg, runtimeOptions{ephemeral: chatEphemeral})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("error closing stores", "err", err)
		}
	}()

	cli := channel.NewCLIChannel(rt.engine, channel.CLIConfig{
		ThreadID: chatThreadID,
		UserID:   chatUserID,
		In:       cmd.InOrStdin(),
		Out:      cmd.OutOrStdout(),
	})
	if err := cli.Start(ctx); err != nil {
		return err
	}

	select {
	case <-cli.Finished():
	case <-ctx.Done():
		fmt.Fprintln(cmd.OutOrStdout())
	}
	// Stop waits for the reader, which blocks on stdin after a signal.
	if ctx.Err() == nil {
		_ = cli.Stop()
	}

	if id := cli.ThreadID(); id != "" {
		fmt.Fprintln(cmd.OutOrStdout(), "thread:", id)
	}
	return nil
}
