package config

import (
	"path/filepath"

	"github.com/linanwx/notebot/internal/runtimecfg"
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	cfg := &Config{
		Thread: ThreadConfig{
			Provider:          runtimecfg.ThreadDefaultProvider,
			ModelType:         runtimecfg.ThreadDefaultModelType,
			MaxTokens:         runtimecfg.ThreadDefaultMaxTokens,
			Temperature:       runtimecfg.ThreadDefaultTemperature,
			MaxToolIterations: runtimecfg.ThreadDefaultMaxToolIterations,
		},
		Providers: ProvidersConfig{
			Ollama: &ProviderConfig{},
		},
		Channels: &ChannelsConfig{
			Web: &WebChannelConfig{
				Addr:           runtimecfg.WebChannelDefaultAddr,
				AllowedOrigins: []string{"*"},
			},
		},
		Logging: defaultLoggingConfig(),
	}
	cfg.applyDefaults()
	return cfg
}

func defaultLoggingConfig() LoggingConfig {
	dir, err := ConfigDir()
	if err != nil {
		dir = ""
	}
	logFile := filepath.Join(dir, "logs", "notebot.log")
	enabled := true
	return LoggingConfig{
		Enabled: &enabled,
		Level:   "info",
		Stdout:  true,
		File:    logFile,
	}
}

func (c *Config) applyDefaults() {
	if c.Thread.Provider == "" {
		c.Thread.Provider = runtimecfg.ThreadDefaultProvider
	}
	if c.Thread.ModelType == "" {
		c.Thread.ModelType = runtimecfg.ThreadDefaultModelType
	}
	if c.Thread.MaxTokens <= 0 {
		c.Thread.MaxTokens = runtimecfg.ThreadDefaultMaxTokens
	}
	if c.Thread.Temperature == 0 {
		c.Thread.Temperature = runtimecfg.ThreadDefaultTemperature
	}
	if c.Thread.MaxToolIterations <= 0 {
		c.Thread.MaxToolIterations = runtimecfg.ThreadDefaultMaxToolIterations
	}

	if c.Channels == nil {
		c.Channels = &ChannelsConfig{}
	}
	if c.Channels.Web == nil {
		c.Channels.Web = &WebChannelConfig{}
	}
	if c.Channels.Web.Addr == "" {
		c.Channels.Web.Addr = runtimecfg.WebChannelDefaultAddr
	}
	if len(c.Channels.Web.AllowedOrigins) == 0 {
		c.Channels.Web.AllowedOrigins = []string{"*"}
	}

	dir, _ := ConfigDir()
	if c.Checkpoint.Driver == "" {
		c.Checkpoint.Driver = runtimecfg.CheckpointDefaultDriver
	}
	if c.Checkpoint.DSN == "" {
		switch c.Checkpoint.Driver {
		case "sqlite":
			c.Checkpoint.DSN = filepath.Join(dir, runtimecfg.CheckpointDefaultFileName)
		case "file":
			c.Checkpoint.DSN = filepath.Join(dir, runtimecfg.CheckpointDirName)
		}
	}
	if c.Notes.Driver == "" {
		c.Notes.Driver = "sqlite"
	}
	if c.Notes.DSN == "" && c.Notes.Driver == "sqlite" {
		c.Notes.DSN = filepath.Join(dir, runtimecfg.CheckpointDefaultFileName)
	}
	if len(c.Notes.Categories) == 0 {
		c.Notes.Categories = []string{
			runtimecfg.NotesCategoryReminders,
			runtimecfg.NotesCategoryDaily,
		}
	}

	def := defaultLoggingConfig()
	if c.Logging == (LoggingConfig{}) {
		c.Logging = def
		return
	}

	hasAny := c.Logging.Level != "" || c.Logging.File != "" || c.Logging.Stdout
	if c.Logging.Enabled == nil && hasAny {
		enabled := true
		c.Logging.Enabled = &enabled
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Level
	}
	if !c.Logging.Stdout && c.Logging.File == "" {
		c.Logging.Stdout = def.Stdout
	}
	if c.Logging.Enabled == nil {
		c.Logging.Enabled = def.Enabled
	}
}
