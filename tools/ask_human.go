package tools

import (
	"encoding/json"
	"strings"

	"github.com/linanwx/notebot/provider"
)

// AskHumanName is the reserved tool name that suspends a run.
const AskHumanName = "askHuman"

// AskHumanDef is the definition the model sees for the reserved tool.
func AskHumanDef() provider.ToolDef {
	return provider.ToolDef{
		Type: "function",
		Function: provider.FunctionDef{
			Name:        AskHumanName,
			Description: "Ask the user a question and wait for the answer. Use it when information is missing or an action needs confirmation.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"input": map[string]any{
						"type":        "string",
						"description": "The question to show the user.",
					},
				},
				"required": []string{"input"},
			},
		},
	}
}

// AskHumanQuestion extracts the question from askHuman arguments. It accepts
// "input" or "question" and falls back to the raw argument text.
func AskHumanQuestion(arguments string) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err == nil {
		for _, key := range []string{"input", "question"} {
			if v, ok := args[key].(string); ok {
				return v
			}
		}
	}
	return strings.TrimSpace(arguments)
}
