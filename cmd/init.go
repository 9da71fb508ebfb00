package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linanwx/notebot/config"
	"github.com/linanwx/notebot/provider"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Non-interactive setup: generate config.yaml",
	Long: `Generate config.yaml without interactive prompts.
An existing config is never overwritten.

Examples:
  notebot init --provider deepseek --model deepseek-chat --api-key sk-xxx
  notebot init --provider ollama --model qwen3:8b --checkpoint sqlite`,
	RunE: runInit,
}

var (
	initProvider   string
	initModel      string
	initAPIKey     string
	initAPIBase    string
	initCheckpoint string
)

func init() {
	initCmd.Flags().StringVar(&initProvider, "provider", "", "LLM provider name (default from built-in defaults)")
	initCmd.Flags().StringVar(&initModel, "model", "", "Model type (defaults to provider's first supported model)")
	initCmd.Flags().StringVar(&initAPIKey, "api-key", "", "Provider API key")
	initCmd.Flags().StringVar(&initAPIBase, "api-base", "", "Custom provider base URL")
	initCmd.Flags().StringVar(&initCheckpoint, "checkpoint", "", "Checkpoint driver (memory, file, sqlite, postgres, mysql, redis)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	cfg := config.DefaultConfig()

	if p := strings.TrimSpace(initProvider); p != "" {
		cfg.Thread.Provider = p
		cfg.Thread.ModelType = ""
		if models := provider.SupportedModelsForProvider(p); len(models) > 0 {
			cfg.Thread.ModelType = models[0]
		}
	}
	if m := strings.TrimSpace(initModel); m != "" {
		cfg.Thread.ModelType = m
	}
	if err := provider.ValidateProviderModelType(cfg.Thread.Provider, cfg.Thread.ModelType); err != nil {
		return err
	}

	key := strings.TrimSpace(initAPIKey)
	base := strings.TrimSpace(initAPIBase)
	if key != "" || base != "" {
		if err := setProviderCredentials(&cfg.Providers, cfg.Thread.Provider, &config.ProviderConfig{APIKey: key, APIBase: base}); err != nil {
			return err
		}
	}
	if d := strings.TrimSpace(initCheckpoint); d != "" {
		// DSN is filled in for the new driver on load.
		cfg.Checkpoint = config.CheckpointConfig{Driver: d}
	}

	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintln(out, "Config already exists, skipping:", configPath)
		return nil
	}
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintln(out, "Config created:", configPath)
	fmt.Fprintln(out, "Run 'notebot chat' or 'notebot serve' to start.")
	return nil
}

func setProviderCredentials(p *config.ProvidersConfig, name string, pc *config.ProviderConfig) error {
	switch name {
	case "openai":
		p.OpenAI = pc
	case "anthropic":
		p.Anthropic = pc
	case "deepseek":
		p.DeepSeek = pc
	case "openrouter":
		p.OpenRouter = pc
	case "ollama":
		p.Ollama = pc
	default:
		return fmt.Errorf("unknown provider: %s", name)
	}
	return nil
}
