// Package providertest provides deterministic providers for tests.
package providertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/linanwx/notebot/provider"
)

// Reply configures one model turn in a scripted sequence.
type Reply struct {
	Response provider.Response
	Deltas   []string // streamed fragments; defaults to the whole content
	Err      error
	// Block makes the call wait until the context is cancelled.
	Block bool
}

// Scripted is a deterministic provider that replays replies in order and
// records every request it receives.
type Scripted struct {
	mu       sync.Mutex
	index    int
	replies  []Reply
	requests []provider.Request
}

// NewScripted returns a provider replaying replies in order.
func NewScripted(replies ...Reply) *Scripted {
	cloned := make([]Reply, len(replies))
	copy(cloned, replies)
	return &Scripted{replies: cloned}
}

var (
	_ provider.Provider          = (*Scripted)(nil)
	_ provider.StreamingProvider = (*Streaming)(nil)
)

// Chat returns the next scripted reply.
func (s *Scripted) Chat(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	reply, err := s.next(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := reply.Response
	resp.ToolCalls = append([]provider.ToolCall(nil), reply.Response.ToolCalls...)
	return &resp, nil
}

// Requests returns copies of every request received so far.
func (s *Scripted) Requests() []provider.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provider.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// CallCount returns the number of requests received.
func (s *Scripted) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Scripted) next(ctx context.Context, req *provider.Request) (Reply, error) {
	s.mu.Lock()
	snapshot := provider.Request{
		Messages: append([]provider.Message(nil), req.Messages...),
		Tools:    append([]provider.ToolDef(nil), req.Tools...),
	}
	s.requests = append(s.requests, snapshot)
	if s.index >= len(s.replies) {
		s.mu.Unlock()
		return Reply{}, fmt.Errorf("script exhausted at step %d", s.index+1)
	}
	current := s.replies[s.index]
	s.index++
	s.mu.Unlock()

	if current.Block {
		<-ctx.Done()
		return Reply{}, ctx.Err()
	}
	if current.Err != nil {
		return Reply{}, current.Err
	}
	return current, nil
}

// Streaming wraps Scripted and delivers content through onDelta.
type Streaming struct {
	*Scripted
}

// NewStreaming returns a streaming provider replaying replies in order.
func NewStreaming(replies ...Reply) *Streaming {
	return &Streaming{Scripted: NewScripted(replies...)}
}

// ChatStream emits the scripted deltas and returns the scripted response.
func (s *Streaming) ChatStream(ctx context.Context, req *provider.Request, onDelta func(string)) (*provider.Response, error) {
	reply, err := s.next(ctx, req)
	if err != nil {
		return nil, err
	}
	deltas := reply.Deltas
	if len(deltas) == 0 && reply.Response.Content != "" {
		deltas = []string{reply.Response.Content}
	}
	for _, d := range deltas {
		if onDelta != nil {
			onDelta(d)
		}
	}
	resp := reply.Response
	resp.ToolCalls = append([]provider.ToolCall(nil), reply.Response.ToolCalls...)
	return &resp, nil
}

// Text returns a reply with plain content and no tool calls.
func Text(content string) Reply {
	return Reply{Response: provider.Response{Content: content}}
}

// Calls returns a reply that requests the given tool calls.
func Calls(content string, calls ...provider.ToolCall) Reply {
	return Reply{Response: provider.Response{Content: content, ToolCalls: calls}}
}

// Fail returns a reply that fails with err.
func Fail(err error) Reply {
	return Reply{Err: err}
}
