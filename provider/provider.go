// Package provider defines the LLM provider interface and common types.
package provider

import (
	"context"
	"errors"
	"sort"
	"strings"
)

// Provider is the interface for LLM providers.
type Provider interface {
	// Chat sends a chat completion request and returns the response.
	Chat(ctx context.Context, req *Request) (*Response, error)
}

// StreamingProvider is implemented by providers that can deliver text
// incrementally. onDelta is called for every content fragment, in order,
// before ChatStream returns the aggregated response.
type StreamingProvider interface {
	Provider
	ChatStream(ctx context.Context, req *Request, onDelta func(string)) (*Response, error)
}

// Request represents a chat completion request.
type Request struct {
	Messages []Message
	Tools    []ToolDef
}

// Message represents a chat message in OpenAI format (internal canonical format).
type Message struct {
	Role             string     `json:"role"`                        // system, user, assistant, tool
	Content          string     `json:"content,omitempty"`           // text content
	ReasoningContent string     `json:"reasoning_content,omitempty"` // reasoning text for providers that require it
	ToolCalls        []ToolCall `json:"tool_calls,omitempty"`        // for assistant messages
	ToolCallID       string     `json:"tool_call_id,omitempty"`      // for tool result messages
	Name             string     `json:"name,omitempty"`              // tool name for tool results
}

// ToolCall represents a tool invocation by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // "function"
	Function FunctionCall `json:"function"`
}

// FunctionCall represents a function call within a tool call.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

// Response represents a chat completion response.
type Response struct {
	Content          string     // final text response
	ReasoningContent string     // reasoning text (provider-specific)
	ToolCalls        []ToolCall // tool calls (if any)
	Usage            Usage      // token usage
}

// HasToolCalls returns true if the response contains tool calls.
func (r *Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToolDef defines a tool for the LLM (OpenAI function calling format).
type ToolDef struct {
	Type     string      `json:"type"` // "function"
	Function FunctionDef `json:"function"`
}

// FunctionDef defines a function that the model can call.
type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Constructor builds a provider for a resolved endpoint and model.
type Constructor func(apiKey, apiBase, modelType, modelName string, maxTokens int, temperature float64) Provider

// ProviderRegistration describes a provider backend.
type ProviderRegistration struct {
	Models      []string // suggested model types; empty means any
	EnvKey      string
	EnvBase     string
	KeyOptional bool // local backends such as ollama
	Constructor Constructor
}

var providerRegistry = map[string]ProviderRegistration{}

// RegisterProvider adds a provider backend. Called from init functions.
func RegisterProvider(name string, reg ProviderRegistration) {
	providerRegistry[name] = reg
}

// SupportedProviders returns all supported provider names in sorted order.
func SupportedProviders() []string {
	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SupportedModelsForProvider returns suggested model types for the given provider.
func SupportedModelsForProvider(providerName string) []string {
	reg, ok := providerRegistry[providerName]
	if !ok {
		return nil
	}
	out := make([]string, len(reg.Models))
	copy(out, reg.Models)
	return out
}

// ValidateProviderModelType checks that the provider exists and the model
// type is usable with it. Providers without a model list accept any model.
func ValidateProviderModelType(providerName, modelType string) error {
	reg, ok := providerRegistry[providerName]
	if !ok {
		return errors.New("unknown provider: " + providerName)
	}
	if strings.TrimSpace(modelType) == "" {
		return errors.New("model type is required for provider " + providerName)
	}
	if len(reg.Models) == 0 {
		return nil
	}
	for _, m := range reg.Models {
		if m == modelType {
			return nil
		}
	}
	return errors.New("model type " + modelType + " is not supported by provider " + providerName)
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// AssistantMessageWithTools creates an assistant message with tool calls.
func AssistantMessageWithTools(content, reasoningContent string, toolCalls []ToolCall) Message {
	return Message{Role: "assistant", Content: content, ReasoningContent: reasoningContent, ToolCalls: toolCalls}
}

// ToolResultMessage creates a tool result message.
func ToolResultMessage(toolCallID, name, content string) Message {
	return Message{Role: "tool", ToolCallID: toolCallID, Name: name, Content: content}
}

// FunctionToolCall creates a function tool call.
func FunctionToolCall(id, name, arguments string) ToolCall {
	return ToolCall{ID: id, Type: "function", Function: FunctionCall{Name: name, Arguments: arguments}}
}
