package provider

import (
	"encoding/json"
	"strings"

	"github.com/linanwx/notebot/internal/runtimecfg"
)

const sdkMaxRetries = runtimecfg.ProviderSDKMaxRetries

func normalizeSDKBaseURL(raw, defaultBase string, endpointSuffixes ...string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return defaultBase
	}

	base = strings.TrimRight(base, "/")
	for _, suffix := range endpointSuffixes {
		s := strings.TrimRight(strings.TrimSpace(suffix), "/")
		if s == "" {
			continue
		}
		if strings.HasSuffix(base, s) {
			base = strings.TrimSuffix(base, s)
			base = strings.TrimRight(base, "/")
			break
		}
	}

	if base == "" {
		return defaultBase
	}
	return base
}

func inputChars(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Role)
		total += len(m.Content)
	}
	return total
}

// extractReasoningText pulls reasoning text out of a raw assistant message.
// DeepSeek uses reasoning_content, OpenRouter and Ollama use reasoning.
func extractReasoningText(rawMessage string) string {
	if strings.TrimSpace(rawMessage) == "" {
		return ""
	}
	var payload struct {
		ReasoningContent string `json:"reasoning_content"`
		Reasoning        string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(rawMessage), &payload); err != nil {
		return ""
	}
	if payload.ReasoningContent != "" {
		return payload.ReasoningContent
	}
	return payload.Reasoning
}
