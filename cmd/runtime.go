package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/linanwx/notebot/agent"
	"github.com/linanwx/notebot/checkpoint"
	"github.com/linanwx/notebot/config"
	"github.com/linanwx/notebot/graph"
	"github.com/linanwx/notebot/internal/runtimecfg"
	"github.com/linanwx/notebot/logger"
	"github.com/linanwx/notebot/notes"
	"github.com/linanwx/notebot/provider"
	"github.com/linanwx/notebot/tools"
)

// agentRuntime holds everything a channel needs to drive the engine.
type agentRuntime struct {
	engine      *graph.Engine
	checkpoints checkpoint.Store
	notes       notes.Store
}

// Close releases the stores.
func (r *agentRuntime) Close() error {
	return errors.Join(r.checkpoints.Close(), r.notes.Close())
}

type runtimeOptions struct {
	// ephemeral keeps checkpoints in memory regardless of config.
	ephemeral bool
}

func buildToolRegistry(ctx context.Context, cfg *config.Config) (*tools.Registry, notes.Store, error) {
	store, err := notes.Open(ctx, cfg.Notes.Driver, config.ResolvePath(cfg.Notes.DSN), cfg.Notes.Categories)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open notes store: %w", err)
	}

	reg := tools.NewRegistry()
	client := &http.Client{Timeout: runtimecfg.ToolFetchHTTPTimeout}
	if err := reg.RegisterDefaultTools(store, client); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("failed to register tools: %w", err)
	}
	return reg, store, nil
}

func buildAgentRuntime(ctx context.Context, cfg *config.Config, opts runtimeOptions) (*agentRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	providerFactory, err := provider.NewFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider factory: %w", err)
	}
	defaultProvider, err := providerFactory.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to create default provider: %w", err)
	}

	prompt, err := agent.LoadPrompt(config.ResolvePath(cfg.Prompt.File))
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt: %w", err)
	}

	reg, noteStore, err := buildToolRegistry(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cpCfg := cfg.Checkpoint
	if opts.ephemeral {
		cpCfg = config.CheckpointConfig{Driver: "memory"}
	}
	cpStore, err := checkpoint.Open(ctx, cpCfg)
	if err != nil {
		noteStore.Close()
		return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	engine, err := graph.New(graph.Options{
		Provider:          defaultProvider,
		Tools:             reg,
		Store:             cpStore,
		Prompt:            prompt,
		MaxToolIterations: cfg.GetMaxToolIterations(),
	})
	if err != nil {
		cpStore.Close()
		noteStore.Close()
		return nil, err
	}

	logger.Info(
		"agent runtime ready",
		"provider", cfg.GetProvider(),
		"model", cfg.GetModelType(),
		"prompt", prompt.Name(),
		"checkpoint", cpCfg.Driver,
		"notes", cfg.Notes.Driver,
		"tools", len(engine.ToolNames()),
	)

	return &agentRuntime{engine: engine, checkpoints: cpStore, notes: noteStore}, nil
}
