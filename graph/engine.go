package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/linanwx/notebot/agent"
	"github.com/linanwx/notebot/checkpoint"
	"github.com/linanwx/notebot/internal/runtimecfg"
	"github.com/linanwx/notebot/logger"
	"github.com/linanwx/notebot/provider"
	"github.com/linanwx/notebot/tools"
)

// Options configures an Engine.
type Options struct {
	Provider provider.Provider
	Tools    *tools.Registry
	Store    checkpoint.Store
	// Prompt defaults to agent.DefaultPrompt.
	Prompt *agent.Prompt
	// MaxToolIterations bounds agent steps per run.
	MaxToolIterations int
	// EventBuffer is the capacity of the channel returned by Stream. Zero
	// uses the default; negative means unbuffered.
	EventBuffer int
	Now         func() time.Time
}

// Engine executes runs. It is safe for concurrent use across threads; a
// single thread has at most one active run per process.
type Engine struct {
	provider      provider.Provider
	tools         *tools.Registry
	toolDefs      []provider.ToolDef
	toolNames     []string
	store         checkpoint.Store
	prompt        *agent.Prompt
	maxIterations int
	eventBuffer   int
	now           func() time.Time

	mu     sync.Mutex
	active map[string]struct{}
}

// New creates an engine.
func New(opts Options) (*Engine, error) {
	if opts.Provider == nil {
		return nil, errors.New("graph: provider is required")
	}
	if opts.Store == nil {
		return nil, errors.New("graph: checkpoint store is required")
	}
	if opts.Tools == nil {
		opts.Tools = tools.NewRegistry()
	}
	if opts.Prompt == nil {
		opts.Prompt = agent.DefaultPrompt()
	}
	if opts.MaxToolIterations <= 0 {
		opts.MaxToolIterations = runtimecfg.ThreadDefaultMaxToolIterations
	}
	if opts.EventBuffer < 0 {
		opts.EventBuffer = 0
	} else if opts.EventBuffer == 0 {
		opts.EventBuffer = runtimecfg.GraphEventBufferSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	defs := opts.Tools.Defs()
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Function.Name)
	}

	return &Engine{
		provider:      opts.Provider,
		tools:         opts.Tools,
		toolDefs:      defs,
		toolNames:     names,
		store:         opts.Store,
		prompt:        opts.Prompt,
		maxIterations: opts.MaxToolIterations,
		eventBuffer:   opts.EventBuffer,
		now:           opts.Now,
		active:        make(map[string]struct{}),
	}, nil
}

// ToolNames returns the names the model is offered, askHuman included.
func (e *Engine) ToolNames() []string {
	return append([]string(nil), e.toolNames...)
}

// Tools returns the registry the engine runs tools from.
func (e *Engine) Tools() *tools.Registry {
	return e.tools
}

// run is the working state of one run.
type run struct {
	turn      Turn
	rec       *checkpoint.Record
	resumed   bool
	steps     int
	events    chan<- Event
	collected []Event
}

func (r *run) emit(ctx context.Context, ev Event) error {
	if r.events == nil {
		r.collected = append(r.collected, ev)
		return nil
	}
	select {
	case r.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stream validates the turn, loads the thread and starts the run in the
// background. Preflight failures are returned before any event is produced.
// Events arrive in order on the returned channel, which is closed when the
// run ends; a failed run ends with an EventError. The caller must drain the
// channel or cancel ctx.
func (e *Engine) Stream(ctx context.Context, turn Turn) (string, <-chan Event, error) {
	r, err := e.prepare(ctx, turn)
	if err != nil {
		return "", nil, err
	}

	events := make(chan Event, e.eventBuffer)
	r.events = events
	go func() {
		defer close(events)
		if _, err := e.execute(ctx, r); err != nil {
			select {
			case events <- EventError{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return r.turn.ThreadID, events, nil
}

// Run executes a turn synchronously and returns its result with the events
// it produced.
func (e *Engine) Run(ctx context.Context, turn Turn) (*Result, error) {
	r, err := e.prepare(ctx, turn)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, r)
}

// Busy reports whether threadID has an active run in this process.
func (e *Engine) Busy(threadID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.active[threadID]
	return ok
}

// ActiveRuns returns the number of threads with a run in flight.
func (e *Engine) ActiveRuns() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// Thread returns the checkpoint of a thread.
func (e *Engine) Thread(ctx context.Context, threadID string) (*checkpoint.Record, error) {
	rec, err := e.store.Load(ctx, threadID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownThread, threadID)
	}
	return rec, err
}

// DeleteThread drops a thread checkpoint. Threads with an active run are
// left alone.
func (e *Engine) DeleteThread(ctx context.Context, threadID string) error {
	if !e.acquire(threadID) {
		return fmt.Errorf("%w: %s", ErrThreadBusy, threadID)
	}
	defer e.release(threadID)

	ok, err := e.store.Exists(ctx, threadID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownThread, threadID)
	}
	if err := e.store.Delete(ctx, threadID); err != nil {
		return err
	}
	logger.Info("thread deleted", "threadID", threadID)
	return nil
}

func (e *Engine) acquire(threadID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.active[threadID]; ok {
		return false
	}
	e.active[threadID] = struct{}{}
	return true
}

func (e *Engine) release(threadID string) {
	e.mu.Lock()
	delete(e.active, threadID)
	e.mu.Unlock()
}

func (e *Engine) prepare(ctx context.Context, turn Turn) (*run, error) {
	turn.ThreadID = strings.TrimSpace(turn.ThreadID)
	turn.Action = strings.TrimSpace(turn.Action)
	turn.UserID = strings.TrimSpace(turn.UserID)

	switch turn.Action {
	case ActionNone, ActionResume:
		if strings.TrimSpace(turn.Input) == "" {
			return nil, fmt.Errorf("%w: input is required", ErrInvalidTurn)
		}
	case ActionCancel:
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidTurn, turn.Action)
	}

	if turn.ThreadID == "" {
		if turn.Action != ActionNone {
			return nil, fmt.Errorf("%w: %s requires a thread id", ErrUnknownThread, turn.Action)
		}
		turn.ThreadID = uuid.NewString()
	}

	if !e.acquire(turn.ThreadID) {
		return nil, fmt.Errorf("%w: %s", ErrThreadBusy, turn.ThreadID)
	}
	r, err := e.load(ctx, turn)
	if err != nil {
		e.release(turn.ThreadID)
		return nil, err
	}
	return r, nil
}

// load reads the thread and appends the turn's opening message: the user
// input for a new message, or the answer to the pending askHuman call.
func (e *Engine) load(ctx context.Context, turn Turn) (*run, error) {
	rec, err := e.store.Load(ctx, turn.ThreadID)
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
		if turn.Action != ActionNone {
			return nil, fmt.Errorf("%w: %s", ErrUnknownThread, turn.ThreadID)
		}
		rec = &checkpoint.Record{ThreadID: turn.ThreadID}
	case err != nil:
		return nil, fmt.Errorf("load checkpoint %s: %w", turn.ThreadID, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCheckpoint, err)
	}

	r := &run{turn: turn, rec: rec}
	if call, ok := rec.PendingCall(); ok {
		// A plain message on a suspended thread answers the question.
		content := turn.Input
		if turn.Action == ActionCancel {
			content = runtimecfg.GraphCancelNotice
		}
		rec.Messages = append(rec.Messages, provider.ToolResultMessage(call.ID, tools.AskHumanName, content))
		r.resumed = true
		return r, nil
	}
	if turn.Action != ActionNone {
		return nil, fmt.Errorf("%w: %s is not waiting for input", ErrUnknownThread, turn.ThreadID)
	}
	rec.Messages = append(rec.Messages, provider.UserMessage(turn.Input))
	return r, nil
}

func (e *Engine) execute(ctx context.Context, r *run) (*Result, error) {
	defer e.release(r.turn.ThreadID)

	start := time.Now()
	threadID := r.turn.ThreadID
	logger.Info(
		"run started",
		"threadID", threadID,
		"action", r.turn.Action,
		"resumed", r.resumed,
		"userID", r.turn.UserID,
		"historyMessages", len(r.rec.Messages),
	)

	ctx = tools.WithRuntime(ctx, tools.Runtime{UserID: r.turn.UserID, ThreadID: threadID})
	res, err := e.loop(ctx, r)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("run aborted", "threadID", threadID, "steps", r.steps, "err", err)
		} else {
			logger.Error("run failed", "threadID", threadID, "steps", r.steps, "err", err)
		}
		return nil, err
	}

	res.Events = r.collected
	logger.Info(
		"run finished",
		"threadID", threadID,
		"node", res.Node,
		"steps", res.Steps,
		"messages", len(r.rec.Messages),
		"latencyMs", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (e *Engine) loop(ctx context.Context, r *run) (*Result, error) {
	for {
		if r.steps >= e.maxIterations {
			return nil, fmt.Errorf("%w: %d agent steps", ErrMaxIterations, e.maxIterations)
		}
		msg, err := e.agentStep(ctx, r)
		if err != nil {
			return nil, err
		}
		r.steps++

		switch next := route(msg); next {
		case NodeEnd:
			r.rec.Messages = append(r.rec.Messages, msg)
			if err := e.save(ctx, r, NodeEnd); err != nil {
				return nil, err
			}
			return &Result{ThreadID: r.turn.ThreadID, Node: NodeEnd, Steps: r.steps}, nil

		case NodeAskHuman:
			// Later calls in the same message are dropped so the pending
			// askHuman call is the last one.
			if len(msg.ToolCalls) > 1 {
				logger.Warn("dropping tool calls after askHuman", "threadID", r.turn.ThreadID, "dropped", len(msg.ToolCalls)-1)
			}
			msg.ToolCalls = msg.ToolCalls[:1]
			r.rec.Messages = append(r.rec.Messages, msg)
			if err := e.save(ctx, r, NodeAskHuman); err != nil {
				return nil, err
			}
			call := msg.ToolCalls[0]
			question := tools.AskHumanQuestion(call.Function.Arguments)
			if err := r.emit(ctx, EventInterrupt{CallID: call.ID, Question: question}); err != nil {
				return nil, err
			}
			logger.Info("run suspended", "threadID", r.turn.ThreadID, "callID", call.ID)
			return &Result{ThreadID: r.turn.ThreadID, Node: NodeAskHuman, Steps: r.steps, Question: question}, nil

		default:
			r.rec.Messages = append(r.rec.Messages, msg)
			if err := e.actionStep(ctx, r, msg.ToolCalls); err != nil {
				return nil, err
			}
			if err := e.save(ctx, r, NodeAgent); err != nil {
				return nil, err
			}
		}
	}
}

// route is the transition function evaluated after every agent step.
func route(msg provider.Message) Node {
	if len(msg.ToolCalls) == 0 {
		return NodeEnd
	}
	if msg.ToolCalls[0].Function.Name == tools.AskHumanName {
		return NodeAskHuman
	}
	return NodeAction
}

func (e *Engine) save(ctx context.Context, r *run, next Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.rec.PendingNode = pendingFor(next)
	if err := e.store.Save(ctx, r.rec); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", r.turn.ThreadID, err)
	}
	logger.Debug(
		"checkpoint saved",
		"threadID", r.turn.ThreadID,
		"pendingNode", r.rec.PendingNode,
		"messages", len(r.rec.Messages),
		"updatedAt", r.rec.UpdatedAt,
	)
	return nil
}
