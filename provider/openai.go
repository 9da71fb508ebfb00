package provider

import "strings"

const (
	openAIAPIBase = "https://api.openai.com/v1"
	ollamaAPIBase = "http://127.0.0.1:11434/v1"
)

func init() {
	RegisterProvider("openai", ProviderRegistration{
		EnvKey:  "OPENAI_API_KEY",
		EnvBase: "OPENAI_API_BASE",
		Constructor: func(apiKey, apiBase, modelType, modelName string, maxTokens int, temperature float64) Provider {
			return newCompatProvider(compatProfile{name: "openai", defaultBase: openAIAPIBase}, apiKey, apiBase, modelType, modelName, maxTokens, temperature)
		},
	})
	RegisterProvider("ollama", ProviderRegistration{
		EnvKey:      "OLLAMA_API_KEY",
		EnvBase:     "OLLAMA_API_BASE",
		KeyOptional: true,
		Constructor: func(apiKey, apiBase, modelType, modelName string, maxTokens int, temperature float64) Provider {
			return newCompatProvider(compatProfile{name: "ollama", defaultBase: ollamaAPIBase}, apiKey, ollamaBase(apiBase), modelType, modelName, maxTokens, temperature)
		},
	})
}

// ollamaBase accepts the bare server address OLLAMA_API_BASE usually holds
// and points it at the OpenAI-compatible /v1 surface.
func ollamaBase(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	if base == "" || strings.HasSuffix(base, "/v1") || strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/v1"
}
