package provider

import (
	"strings"

	oaioption "github.com/openai/openai-go/v3/option"
)

const (
	openRouterAPIBase = "https://openrouter.ai/api/v1"
)

func init() {
	RegisterProvider("openrouter", ProviderRegistration{
		EnvKey:  "OPENROUTER_API_KEY",
		EnvBase: "OPENROUTER_API_BASE",
		Constructor: func(apiKey, apiBase, modelType, modelName string, maxTokens int, temperature float64) Provider {
			return newCompatProvider(openRouterProfile, apiKey, apiBase, modelType, modelName, maxTokens, temperature)
		},
	})
}

var openRouterProfile = compatProfile{
	name:        "openrouter",
	defaultBase: openRouterAPIBase,
	headers: map[string]string{
		"HTTP-Referer": "https://github.com/linanwx/notebot",
		"X-Title":      "notebot",
	},
	requestOptions: func(modelType string) ([]oaioption.RequestOption, bool) {
		if !strings.Contains(modelType, "kimi") {
			return nil, false
		}
		return []oaioption.RequestOption{oaioption.WithJSONSet("extra_body.chat_template_kwargs.thinking", true)}, false
	},
}
