package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linanwx/notebot/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSDKBaseURL(t *testing.T) {
	cases := []struct {
		raw, want string
	}{
		{"", "https://default"},
		{"https://api.example.com/v1/", "https://api.example.com/v1"},
		{"https://api.example.com/v1/chat/completions", "https://api.example.com/v1"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, normalizeSDKBaseURL(tc.raw, "https://default", "/chat/completions"), tc.raw)
	}
}

func TestOllamaBase(t *testing.T) {
	assert.Equal(t, "", ollamaBase(""))
	assert.Equal(t, "http://host:11434/v1", ollamaBase("http://host:11434"))
	assert.Equal(t, "http://host:11434/v1", ollamaBase("http://host:11434/v1/"))
}

func TestExtractReasoningText(t *testing.T) {
	assert.Equal(t, "think", extractReasoningText(`{"reasoning_content":"think"}`))
	assert.Equal(t, "alt", extractReasoningText(`{"reasoning":"alt"}`))
	assert.Equal(t, "", extractReasoningText(`not json`))
}

func TestValidateProviderModelType(t *testing.T) {
	require.NoError(t, ValidateProviderModelType("ollama", "qwen3:8b"))
	require.NoError(t, ValidateProviderModelType("deepseek", "deepseek-chat"))
	require.Error(t, ValidateProviderModelType("deepseek", "gpt-4o"))
	require.Error(t, ValidateProviderModelType("nope", "x"))
	require.Error(t, ValidateProviderModelType("openai", ""))
}

func TestToOpenAIChatMessagesRejectsUnknownRole(t *testing.T) {
	_, err := toOpenAIChatMessages([]Message{{Role: "robot"}})
	require.Error(t, err)

	msgs, err := toOpenAIChatMessages([]Message{
		SystemMessage("sys"),
		UserMessage("hi"),
		AssistantMessageWithTools("", "", []ToolCall{FunctionToolCall("tc_1", "calculator", `{"expression":"1+1"}`)}),
		ToolResultMessage("tc_1", "calculator", "2"),
	})
	require.NoError(t, err)
	assert.Len(t, msgs, 4)
}

func TestToAnthropicMessagesGroupsToolResults(t *testing.T) {
	system, msgs, err := toAnthropicMessages([]Message{
		SystemMessage("sys"),
		UserMessage("hi"),
		AssistantMessageWithTools("", "", []ToolCall{
			FunctionToolCall("a", "calculator", `{}`),
			FunctionToolCall("b", "takeNote", `{}`),
		}),
		ToolResultMessage("a", "calculator", "1"),
		ToolResultMessage("b", "takeNote", "ok"),
		AssistantMessage("done"),
	})
	require.NoError(t, err)
	assert.Equal(t, "sys", system)
	// user, assistant, user(tool results), assistant
	assert.Len(t, msgs, 4)
}

func TestFactoryOllamaNeedsNoKey(t *testing.T) {
	t.Setenv("OLLAMA_API_KEY", "")
	t.Setenv("OLLAMA_API_BASE", "")
	cfg := &config.Config{Thread: config.ThreadConfig{Provider: "ollama", ModelType: "qwen3:8b"}}

	f, err := NewFactory(cfg)
	require.NoError(t, err)
	p, err := f.Default()
	require.NoError(t, err)
	_, ok := p.(StreamingProvider)
	assert.True(t, ok)
}

func TestFactoryRequiresKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	cfg := &config.Config{Thread: config.ThreadConfig{Provider: "anthropic", ModelType: "claude-sonnet-4-5"}}
	_, err := NewFactory(cfg)
	require.Error(t, err)

	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	f, err := NewFactory(cfg)
	require.NoError(t, err)
	p, err := f.Create("", "")
	require.NoError(t, err)
	_, ok := p.(*AnthropicProvider)
	assert.True(t, ok)
}

func TestCompatProviderChat(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id":"c1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"tool_calls","message":{
				"role":"assistant","content":"",
				"tool_calls":[{"id":"tc_1","type":"function","function":{"name":"calculator","arguments":"{\"expression\":\"2+3\"}"}}]
			}}],
			"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}
		}`)
	}))
	defer srv.Close()

	p := newCompatProvider(compatProfile{name: "openai", defaultBase: srv.URL}, "key", srv.URL, "m", "", 128, 0.5)
	resp, err := p.Chat(context.Background(), &Request{
		Messages: []Message{UserMessage("2+3?")},
		Tools:    []ToolDef{{Type: "function", Function: FunctionDef{Name: "calculator", Parameters: map[string]any{"type": "object"}}}},
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "tc_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "calculator", resp.ToolCalls[0].Function.Name)
	assert.JSONEq(t, `{"expression":"2+3"}`, resp.ToolCalls[0].Function.Arguments)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
	assert.Equal(t, "m", gotBody["model"])
}

func TestCompatProviderChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"role":"assistant","content":"Hel"},"finish_reason":null}]}`,
			`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"content":"lo"},"finish_reason":null}]}`,
			`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := newCompatProvider(compatProfile{name: "ollama", defaultBase: srv.URL}, "", srv.URL, "m", "", 0, 0)
	var deltas []string
	resp, err := p.ChatStream(context.Background(), &Request{Messages: []Message{UserMessage("hi")}}, func(s string) {
		deltas = append(deltas, s)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, deltas)
	assert.Equal(t, "Hello", resp.Content)
	assert.False(t, resp.HasToolCalls())
}

func serveChunks(t *testing.T, chunks ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			fmt.Fprintf(w, "data: %s\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompatProviderChatStreamToolCalls(t *testing.T) {
	cases := []struct {
		name   string
		chunks []string
	}{
		{
			name: "arguments split across chunks",
			chunks: []string{
				`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"role":"assistant","tool_calls":[{"index":0,"id":"call_abc","type":"function","function":{"name":"calculator","arguments":""}}]},"finish_reason":null}]}`,
				`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"expre"}}]},"finish_reason":null}]}`,
				`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"ssion\":\"6*7\"}"}}]},"finish_reason":null}]}`,
				`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`,
			},
		},
		{
			name: "whole call in one chunk",
			chunks: []string{
				`{"id":"c2","object":"chat.completion.chunk","created":1,"model":"m","choices":[{"index":0,"delta":{"role":"assistant","content":"","tool_calls":[{"index":0,"id":"call_abc","function":{"name":"calculator","arguments":"{\"expression\":\"6*7\"}"}}]},"finish_reason":"tool_calls"}]}`,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := serveChunks(t, tc.chunks...)
			p := newCompatProvider(compatProfile{name: "ollama", defaultBase: srv.URL}, "", srv.URL, "m", "", 0, 0)

			var deltas []string
			resp, err := p.ChatStream(context.Background(), &Request{Messages: []Message{UserMessage("6*7?")}}, func(s string) {
				deltas = append(deltas, s)
			})
			require.NoError(t, err)
			assert.Empty(t, deltas)
			assert.Empty(t, resp.Content)
			require.Len(t, resp.ToolCalls, 1)
			assert.Equal(t, "call_abc", resp.ToolCalls[0].ID)
			assert.Equal(t, "calculator", resp.ToolCalls[0].Function.Name)
			assert.JSONEq(t, `{"expression":"6*7"}`, resp.ToolCalls[0].Function.Arguments)
		})
	}
}

func TestCompatProviderPropagatesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := newCompatProvider(compatProfile{name: "openai", defaultBase: srv.URL}, "key", srv.URL, "m", "", 0, 0)
	_, err := p.Chat(context.Background(), &Request{Messages: []Message{UserMessage("hi")}})
	require.Error(t, err)
}
