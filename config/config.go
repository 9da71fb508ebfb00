// Package config handles configuration loading and saving.
package config

const configFileName = "config.yaml"

var configDirOverride string

// SetConfigDir overrides the config directory used by ConfigDir. An empty
// value restores the default (~/.notebot).
func SetConfigDir(dir string) {
	configDirOverride = dir
}

// Config is the root configuration structure.
type Config struct {
	Thread     ThreadConfig     `yaml:"thread"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Channels   *ChannelsConfig  `yaml:"channels,omitempty"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Notes      NotesConfig      `yaml:"notes"`
	Prompt     PromptConfig     `yaml:"prompt,omitempty"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ThreadConfig contains the model settings every run uses.
type ThreadConfig struct {
	Provider          string  `yaml:"provider"`            // ollama, openai, deepseek, openrouter, anthropic
	ModelType         string  `yaml:"modelType"`           // qwen3:8b, gpt-4o-mini, claude-sonnet-4-20250514
	ModelName         string  `yaml:"modelName,omitempty"` // optional, defaults to modelType
	MaxTokens         int     `yaml:"maxTokens,omitempty"`
	Temperature       float64 `yaml:"temperature,omitempty"`
	MaxToolIterations int     `yaml:"maxToolIterations,omitempty"`
}

// ProvidersConfig contains provider API configurations.
type ProvidersConfig struct {
	OpenAI     *ProviderConfig `yaml:"openai,omitempty"`
	Anthropic  *ProviderConfig `yaml:"anthropic,omitempty"`
	DeepSeek   *ProviderConfig `yaml:"deepseek,omitempty"`
	OpenRouter *ProviderConfig `yaml:"openrouter,omitempty"`
	Ollama     *ProviderConfig `yaml:"ollama,omitempty"`
}

// ProviderConfig contains API credentials for a provider.
type ProviderConfig struct {
	APIKey  string `yaml:"apiKey"`
	APIBase string `yaml:"apiBase,omitempty"` // optional custom base URL
}

// ChannelsConfig contains transport configuration.
type ChannelsConfig struct {
	Web *WebChannelConfig `yaml:"web,omitempty"`
}

// WebChannelConfig configures the HTTP/SSE channel.
type WebChannelConfig struct {
	Addr           string   `yaml:"addr,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// CheckpointConfig selects and configures the checkpoint store.
type CheckpointConfig struct {
	Driver string `yaml:"driver,omitempty"` // memory, file, sqlite, postgres, mysql, redis
	DSN    string `yaml:"dsn,omitempty"`    // database DSN, redis URL, or directory for file
}

// NotesConfig configures the note/todo store used by tools.
type NotesConfig struct {
	Driver     string   `yaml:"driver,omitempty"` // memory, sqlite
	DSN        string   `yaml:"dsn,omitempty"`
	Categories []string `yaml:"categories,omitempty"`
}

// PromptConfig points at an optional system prompt template file.
type PromptConfig struct {
	File string `yaml:"file,omitempty"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Level   string `yaml:"level,omitempty"`
	Stdout  bool   `yaml:"stdout,omitempty"`
	File    string `yaml:"file,omitempty"`
	NoColor bool   `yaml:"noColor,omitempty"`
}

// IsEnabled reports whether logging is on. Unset means on.
func (l LoggingConfig) IsEnabled() bool {
	return l.Enabled == nil || *l.Enabled
}
