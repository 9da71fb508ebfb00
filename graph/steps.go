package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/linanwx/notebot/agent"
	"github.com/linanwx/notebot/logger"
	"github.com/linanwx/notebot/provider"
	"github.com/linanwx/notebot/tools"
)

// agentStep calls the model on the thread history and returns its message.
// Text is emitted as it arrives when the provider streams.
func (e *Engine) agentStep(ctx context.Context, r *run) (provider.Message, error) {
	system := e.prompt.Render(agent.Vars{
		Time:  e.now(),
		Tools: e.toolNames,
		User:  r.turn.UserID,
	})
	messages := make([]provider.Message, 0, len(r.rec.Messages)+1)
	messages = append(messages, provider.SystemMessage(system))
	messages = append(messages, r.rec.Messages...)
	req := &provider.Request{Messages: messages, Tools: e.toolDefs}

	var (
		resp *provider.Response
		err  error
	)
	if sp, ok := e.provider.(provider.StreamingProvider); ok {
		var emitErr error
		resp, err = sp.ChatStream(ctx, req, func(delta string) {
			if delta == "" || emitErr != nil {
				return
			}
			emitErr = r.emit(ctx, EventTextDelta{Text: delta})
		})
		if err == nil {
			err = emitErr
		}
	} else {
		resp, err = e.provider.Chat(ctx, req)
		if err == nil && resp != nil && resp.Content != "" {
			err = r.emit(ctx, EventTextDelta{Text: resp.Content})
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return provider.Message{}, ctxErr
	}
	if err != nil {
		return provider.Message{}, fmt.Errorf("%w: %w", ErrModelInvocation, err)
	}
	if resp == nil {
		return provider.Message{}, fmt.Errorf("%w: empty response", ErrModelInvocation)
	}

	calls := make([]provider.ToolCall, 0, len(resp.ToolCalls))
	for _, call := range resp.ToolCalls {
		if call.ID == "" {
			call.ID = "call_" + uuid.NewString()
		}
		if call.Type == "" {
			call.Type = "function"
		}
		calls = append(calls, call)
	}
	if len(calls) == 0 {
		calls = nil
	}
	return provider.AssistantMessageWithTools(resp.Content, resp.ReasoningContent, calls), nil
}

// actionStep runs every call once, in order. Tool failures become the text of
// the tool message; only cancellation stops the step.
func (e *Engine) actionStep(ctx context.Context, r *run, calls []provider.ToolCall) error {
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := call.Function.Name
		result, err := e.tools.Invoke(ctx, name, json.RawMessage(call.Function.Arguments))
		if err != nil {
			var te *tools.ToolError
			kind := ""
			if errors.As(err, &te) {
				kind = string(te.Kind)
			}
			logger.Error("tool error", "threadID", r.turn.ThreadID, "tool", name, "kind", kind, "err", err)
			result = tools.ResultText(err)
		}

		r.rec.Messages = append(r.rec.Messages, provider.ToolResultMessage(call.ID, name, result))
		if err := r.emit(ctx, EventToolInvoked{CallID: call.ID, Name: name, Result: result}); err != nil {
			return err
		}
	}
	return ctx.Err()
}
