package provider

import (
	"strings"

	oaioption "github.com/openai/openai-go/v3/option"
)

const (
	deepSeekAPIBase = "https://api.deepseek.com"
)

func init() {
	RegisterProvider("deepseek", ProviderRegistration{
		Models:  []string{"deepseek-chat", "deepseek-reasoner"},
		EnvKey:  "DEEPSEEK_API_KEY",
		EnvBase: "DEEPSEEK_API_BASE",
		Constructor: func(apiKey, apiBase, modelType, modelName string, maxTokens int, temperature float64) Provider {
			return newCompatProvider(deepSeekProfile, apiKey, apiBase, modelType, modelName, maxTokens, temperature)
		},
	})
}

var deepSeekProfile = compatProfile{
	name:        "deepseek",
	defaultBase: deepSeekAPIBase,
	requestOptions: func(modelType string) ([]oaioption.RequestOption, bool) {
		if strings.TrimSpace(modelType) != "deepseek-reasoner" {
			return nil, false
		}
		// DeepSeek takes the thinking switch via extra_body and rejects temperature.
		return []oaioption.RequestOption{oaioption.WithJSONSet("extra_body.thinking.type", "enabled")}, true
	},
}
