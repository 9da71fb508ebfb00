package config

import (
	"errors"
	"os"
	"strings"
)

// GetProvider returns the configured provider name.
func (c *Config) GetProvider() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Thread.Provider)
}

// GetModelType returns the configured model type.
func (c *Config) GetModelType() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Thread.ModelType)
}

// GetModelName returns the effective model name (modelName or modelType).
func (c *Config) GetModelName() string {
	if c == nil {
		return ""
	}
	if v := strings.TrimSpace(c.Thread.ModelName); v != "" {
		return v
	}
	return c.GetModelType()
}

// GetMaxTokens returns the configured max tokens for provider requests.
func (c *Config) GetMaxTokens() int {
	if c == nil {
		return 0
	}
	return c.Thread.MaxTokens
}

// GetTemperature returns the configured sampling temperature.
func (c *Config) GetTemperature() float64 {
	if c == nil {
		return 0
	}
	return c.Thread.Temperature
}

// GetMaxToolIterations returns the agent step bound per run.
func (c *Config) GetMaxToolIterations() int {
	if c == nil {
		return 0
	}
	return c.Thread.MaxToolIterations
}

// GetAPIKey returns the API key for the configured provider. Ollama runs
// without a key.
func (c *Config) GetAPIKey() (string, error) {
	providerCfg, envKey, _, err := c.providerConfigEnv()
	if err != nil {
		return "", err
	}
	if envKey != "" {
		if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
			return v, nil
		}
	}
	if providerCfg != nil && strings.TrimSpace(providerCfg.APIKey) != "" {
		return providerCfg.APIKey, nil
	}
	if c.GetProvider() == "ollama" {
		return "", nil
	}
	return "", errors.New(c.GetProvider() + " API key not configured")
}

// GetAPIBase returns the API base URL for the configured provider (env overrides config).
func (c *Config) GetAPIBase() string {
	providerCfg, _, envBase, err := c.providerConfigEnv()
	if err != nil {
		return ""
	}
	if envBase != "" {
		if v := strings.TrimSpace(os.Getenv(envBase)); v != "" {
			return v
		}
	}
	if providerCfg != nil {
		return strings.TrimSpace(providerCfg.APIBase)
	}
	return ""
}

func (c *Config) providerConfigEnv() (*ProviderConfig, string, string, error) {
	switch c.GetProvider() {
	case "openai":
		return c.Providers.OpenAI, "OPENAI_API_KEY", "OPENAI_API_BASE", nil
	case "anthropic":
		return c.Providers.Anthropic, "ANTHROPIC_API_KEY", "ANTHROPIC_API_BASE", nil
	case "deepseek":
		return c.Providers.DeepSeek, "DEEPSEEK_API_KEY", "DEEPSEEK_API_BASE", nil
	case "openrouter":
		return c.Providers.OpenRouter, "OPENROUTER_API_KEY", "OPENROUTER_API_BASE", nil
	case "ollama":
		return c.Providers.Ollama, "OLLAMA_API_KEY", "OLLAMA_API_BASE", nil
	default:
		return nil, "", "", errors.New("unknown provider: " + c.GetProvider())
	}
}
