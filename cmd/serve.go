package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/linanwx/notebot/channel"
	"github.com/linanwx/notebot/config"
	"github.com/linanwx/notebot/logger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the agent over HTTP with server-sent events",
	Long: `Start notebot as a long-running HTTP service.

Endpoints:
  POST   /agent/chat           run a turn; the reply streams as SSE frames
  GET    /agent/threads/{id}   show a thread's history and pending question
  DELETE /agent/threads/{id}   delete a thread
  GET    /agent/tools          list the tools the agent can call
  GET    /healthz              liveness

Examples:
  notebot serve
  notebot serve --addr 0.0.0.0:9587`,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides channels.web.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if addr := strings.TrimSpace(serveAddr); addr != "" {
		cfg.Channels.Web.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildAgentRuntime(ctx, cfg, runtimeOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("error closing stores", "err", err)
		}
	}()

	chManager := channel.NewManager()
	chManager.Register(channel.NewWebChannel(cfg, rt.engine))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return chManager.StartAll(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		return chManager.StopAll()
	})

	logger.Info("notebot is running. Press Ctrl+C to stop.")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("notebot service stopped")
	return nil
}
