package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/linanwx/notebot/logger"
	openai "github.com/openai/openai-go/v3"
	oaioption "github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// compatProfile captures the per-backend differences of OpenAI-compatible APIs.
type compatProfile struct {
	name        string
	defaultBase string
	headers     map[string]string
	// requestOptions returns extra request options for a model, and whether
	// the backend rejects a temperature for it.
	requestOptions func(modelType string) ([]oaioption.RequestOption, bool)
}

// CompatProvider implements Provider and StreamingProvider for any
// OpenAI-compatible chat completions endpoint.
type CompatProvider struct {
	profile     compatProfile
	apiBase     string
	modelName   string
	modelType   string
	maxTokens   int
	temperature float64
	client      openai.Client
}

func newCompatProvider(profile compatProfile, apiKey, apiBase, modelType, modelName string, maxTokens int, temperature float64) *CompatProvider {
	if modelName == "" {
		modelName = modelType
	}

	baseURL := normalizeSDKBaseURL(apiBase, profile.defaultBase, "/chat/completions")
	opts := []oaioption.RequestOption{
		oaioption.WithBaseURL(baseURL),
		oaioption.WithMaxRetries(sdkMaxRetries),
	}
	if apiKey != "" {
		opts = append(opts, oaioption.WithAPIKey(apiKey))
	} else {
		// the SDK insists on a key; local servers ignore it
		opts = append(opts, oaioption.WithAPIKey(profile.name))
	}
	for k, v := range profile.headers {
		opts = append(opts, oaioption.WithHeader(k, v))
	}

	return &CompatProvider{
		profile:     profile,
		apiBase:     baseURL,
		modelName:   modelName,
		modelType:   modelType,
		maxTokens:   maxTokens,
		temperature: temperature,
		client:      openai.NewClient(opts...),
	}
}

func (p *CompatProvider) buildRequest(req *Request) (openai.ChatCompletionNewParams, []oaioption.RequestOption, error) {
	messages, err := toOpenAIChatMessages(req.Messages)
	if err != nil {
		return openai.ChatCompletionNewParams{}, nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	chatReq := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.modelName),
		Messages: messages,
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = toOpenAIChatTools(req.Tools)
	}
	if p.maxTokens > 0 {
		chatReq.MaxTokens = openai.Int(int64(p.maxTokens))
	}

	var requestOpts []oaioption.RequestOption
	skipTemperature := false
	if p.profile.requestOptions != nil {
		requestOpts, skipTemperature = p.profile.requestOptions(p.modelType)
	}
	if p.temperature != 0 && !skipTemperature {
		chatReq.Temperature = openai.Float(p.temperature)
	}
	return chatReq, requestOpts, nil
}

// Chat sends a chat completion request.
func (p *CompatProvider) Chat(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	chatReq, requestOpts, err := p.buildRequest(req)
	if err != nil {
		return nil, err
	}
	p.logRequest(req, false)

	chatResp, err := p.client.Chat.Completions.New(ctx, chatReq, requestOpts...)
	if err != nil {
		logger.Error(p.profile.name+" request send error", "provider", p.profile.name, "err", err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		logger.Error(p.profile.name+" no choices", "provider", p.profile.name)
		return nil, fmt.Errorf("no choices in response")
	}

	return p.toResponse(chatResp, start), nil
}

// ChatStream sends a streaming chat completion request. Content fragments
// are passed to onDelta as they arrive.
func (p *CompatProvider) ChatStream(ctx context.Context, req *Request, onDelta func(string)) (*Response, error) {
	start := time.Now()
	chatReq, requestOpts, err := p.buildRequest(req)
	if err != nil {
		return nil, err
	}
	chatReq.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}
	p.logRequest(req, true)

	stream := p.client.Chat.Completions.NewStreaming(ctx, chatReq, requestOpts...)
	defer stream.Close()

	acc := openai.ChatCompletionAccumulator{}
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" && onDelta != nil {
			onDelta(delta)
		}
	}
	if err := stream.Err(); err != nil {
		logger.Error(p.profile.name+" stream error", "provider", p.profile.name, "err", err)
		return nil, fmt.Errorf("stream failed: %w", err)
	}
	if len(acc.Choices) == 0 {
		logger.Error(p.profile.name+" no choices", "provider", p.profile.name)
		return nil, fmt.Errorf("no choices in response")
	}

	return p.toResponse(&acc.ChatCompletion, start), nil
}

func (p *CompatProvider) logRequest(req *Request, streaming bool) {
	logger.Info(
		p.profile.name+" request",
		"provider", p.profile.name,
		"modelType", p.modelType,
		"modelName", p.modelName,
		"streaming", streaming,
		"toolCount", len(req.Tools),
		"inputChars", inputChars(req.Messages),
	)
}

func (p *CompatProvider) toResponse(chatResp *openai.ChatCompletion, start time.Time) *Response {
	choice := chatResp.Choices[0]
	toolCalls := fromOpenAIChatToolCalls(choice.Message.ToolCalls)
	reasoningText := extractReasoningText(choice.Message.RawJSON())
	finalContent := choice.Message.Content
	if strings.TrimSpace(finalContent) == "" && len(toolCalls) == 0 && strings.TrimSpace(reasoningText) != "" {
		logger.Warn(p.profile.name + " response content empty, using reasoning text fallback")
		finalContent = reasoningText
	}

	logger.Info(
		p.profile.name+" response",
		"provider", p.profile.name,
		"modelType", p.modelType,
		"modelName", p.modelName,
		"finishReason", choice.FinishReason,
		"hasToolCalls", len(toolCalls) > 0,
		"toolCallCount", len(toolCalls),
		"promptTokens", chatResp.Usage.PromptTokens,
		"completionTokens", chatResp.Usage.CompletionTokens,
		"totalTokens", chatResp.Usage.TotalTokens,
		"outputChars", len(finalContent),
		"latencyMs", time.Since(start).Milliseconds(),
	)

	return &Response{
		Content:          finalContent,
		ReasoningContent: reasoningText,
		ToolCalls:        toolCalls,
		Usage: Usage{
			PromptTokens:     int(chatResp.Usage.PromptTokens),
			CompletionTokens: int(chatResp.Usage.CompletionTokens),
			TotalTokens:      int(chatResp.Usage.TotalTokens),
		},
	}
}

func toOpenAIChatMessages(messages []Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case "system":
			result = append(result, openai.SystemMessage(m.Content))
		case "user":
			result = append(result, openai.UserMessage(m.Content))
		case "tool":
			result = append(result, openai.ToolMessage(m.Content, m.ToolCallID))
		case "assistant":
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}

			if len(m.ToolCalls) > 0 {
				assistant.ToolCalls = make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(m.ToolCalls))
				for _, tc := range m.ToolCalls {
					if tc.Type != "" && tc.Type != "function" {
						return nil, fmt.Errorf("unsupported assistant tool call type: %s", tc.Type)
					}
					assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
						OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
							ID: tc.ID,
							Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
								Name:      tc.Function.Name,
								Arguments: tc.Function.Arguments,
							},
						},
					})
				}
			}

			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		default:
			return nil, fmt.Errorf("unsupported message role: %s", m.Role)
		}
	}

	return result, nil
}

func toOpenAIChatTools(tools []ToolDef) []openai.ChatCompletionToolUnionParam {
	result := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		functionDef := shared.FunctionDefinitionParam{
			Name:       t.Function.Name,
			Parameters: shared.FunctionParameters(t.Function.Parameters),
		}
		if t.Function.Description != "" {
			functionDef.Description = openai.String(t.Function.Description)
		}

		result = append(result, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{Function: functionDef},
		})
	}
	return result
}

func fromOpenAIChatToolCalls(calls []openai.ChatCompletionMessageToolCallUnion) []ToolCall {
	result := make([]ToolCall, 0, len(calls))
	for _, call := range calls {
		// Some compatible servers omit the type on streamed calls.
		if (call.Type != "" && call.Type != "function") || call.Function.Name == "" {
			continue
		}
		result = append(result, FunctionToolCall(call.ID, call.Function.Name, call.Function.Arguments))
	}
	return result
}
