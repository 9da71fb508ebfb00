// Package checkpoint persists per-thread conversation state between runs.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linanwx/notebot/provider"
)

// Pending nodes a record can resume at.
const (
	PendingNone     = ""
	PendingAgent    = "agent"
	PendingAskHuman = "askHuman"
)

// askHumanTool is the tool call a suspended thread waits on.
const askHumanTool = "askHuman"

var (
	// ErrNotFound is returned by Load when no record exists for a thread.
	ErrNotFound = errors.New("checkpoint not found")
	// ErrConflict is returned by Save when the stored record changed since
	// the caller loaded it.
	ErrConflict = errors.New("checkpoint conflict")
	// ErrInvalidRecord is returned for records that break the suspension invariant.
	ErrInvalidRecord = errors.New("invalid checkpoint record")
)

// Record is the persisted state of one thread.
type Record struct {
	ThreadID    string             `json:"thread_id"`
	Messages    []provider.Message `json:"messages"`
	PendingNode string             `json:"pending_node,omitempty"`
	// UpdatedAt is strictly increasing per thread and is the compare-and-swap
	// token for Save. Zero means the thread has never been saved.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists records.
type Store interface {
	// Load returns the record for threadID or ErrNotFound.
	Load(ctx context.Context, threadID string) (*Record, error)
	// Save writes rec if the stored UpdatedAt still equals rec.UpdatedAt
	// (zero for a new thread). On success rec.UpdatedAt holds the new value.
	Save(ctx context.Context, rec *Record) error
	Exists(ctx context.Context, threadID string) (bool, error)
	Delete(ctx context.Context, threadID string) error
	Close() error
}

// Clone returns a deep enough copy for callers to mutate messages freely.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Messages = make([]provider.Message, len(r.Messages))
	for i, m := range r.Messages {
		m.ToolCalls = append([]provider.ToolCall(nil), m.ToolCalls...)
		out.Messages[i] = m
	}
	return &out
}

// Validate checks the pending node and the suspension invariant: a thread
// waiting on askHuman ends with an assistant message whose last tool call is
// askHuman.
func (r *Record) Validate() error {
	if r.ThreadID == "" {
		return fmt.Errorf("%w: empty thread id", ErrInvalidRecord)
	}
	switch r.PendingNode {
	case PendingNone, PendingAgent:
		return nil
	case PendingAskHuman:
	default:
		return fmt.Errorf("%w: unknown pending node %q", ErrInvalidRecord, r.PendingNode)
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("%w: suspended thread has no messages", ErrInvalidRecord)
	}
	last := r.Messages[len(r.Messages)-1]
	if last.Role != "assistant" || len(last.ToolCalls) == 0 {
		return fmt.Errorf("%w: suspended thread does not end with a tool call", ErrInvalidRecord)
	}
	if last.ToolCalls[len(last.ToolCalls)-1].Function.Name != askHumanTool {
		return fmt.Errorf("%w: suspended thread does not end with askHuman", ErrInvalidRecord)
	}
	return nil
}

// PendingCall returns the askHuman call a suspended record waits on.
func (r *Record) PendingCall() (provider.ToolCall, bool) {
	if r.PendingNode != PendingAskHuman || len(r.Messages) == 0 {
		return provider.ToolCall{}, false
	}
	last := r.Messages[len(r.Messages)-1]
	if len(last.ToolCalls) == 0 {
		return provider.ToolCall{}, false
	}
	return last.ToolCalls[len(last.ToolCalls)-1], true
}

func stamp(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromStamp(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

// nextStamp returns a timestamp strictly after base and no earlier than now.
func nextStamp(base int64) int64 {
	now := time.Now().UnixNano()
	if now <= base {
		return base + 1
	}
	return now
}
