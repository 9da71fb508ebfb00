package graph

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linanwx/notebot/checkpoint"
	"github.com/linanwx/notebot/internal/runtimecfg"
	"github.com/linanwx/notebot/notes"
	"github.com/linanwx/notebot/provider"
	"github.com/linanwx/notebot/provider/providertest"
	"github.com/linanwx/notebot/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

func call(id, name, args string) provider.ToolCall {
	return provider.FunctionToolCall(id, name, args)
}

func testRegistry(t *testing.T, store notes.Store) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	calc, err := tools.NewCalculatorTool()
	require.NoError(t, err)
	require.NoError(t, reg.Register(calc))
	require.NoError(t, reg.Register(tools.NewCreateTodoTool(store)))
	require.NoError(t, reg.RegisterFunc("boom", "always fails", nil, func(ctx context.Context, args json.RawMessage) (string, error) {
		return "", errors.New("kaboom")
	}))
	require.NoError(t, reg.RegisterFunc("whoami", "reports the caller", nil, func(ctx context.Context, args json.RawMessage) (string, error) {
		rt := tools.RuntimeFrom(ctx)
		return rt.UserID + "@" + rt.ThreadID, nil
	}))
	return reg
}

func newEngine(t *testing.T, p provider.Provider, store checkpoint.Store) *Engine {
	t.Helper()
	e, err := New(Options{
		Provider: p,
		Tools:    testRegistry(t, notes.NewMemoryStore(runtimecfg.NotesCategoryReminders)),
		Store:    store,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return e
}

func textDeltas(events []Event) []string {
	var out []string
	for _, ev := range events {
		if d, ok := ev.(EventTextDelta); ok {
			out = append(out, d.Text)
		}
	}
	return out
}

func toolEvents(events []Event) []EventToolInvoked {
	var out []EventToolInvoked
	for _, ev := range events {
		if d, ok := ev.(EventToolInvoked); ok {
			out = append(out, d)
		}
	}
	return out
}

func TestPlainReplyEndsAfterOneStep(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := providertest.NewScripted(providertest.Text("Hello there"))
	e := newEngine(t, p, store)

	res, err := e.Run(context.Background(), Turn{ThreadID: "t1", Input: "hi"})
	require.NoError(t, err)
	assert.Equal(t, NodeEnd, res.Node)
	assert.Equal(t, 1, res.Steps)
	require.Len(t, res.Events, 1)
	assert.Equal(t, EventTextDelta{Text: "Hello there"}, res.Events[0])

	rec, err := store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, checkpoint.PendingNone, rec.PendingNode)
	require.Len(t, rec.Messages, 2)
	assert.Equal(t, "user", rec.Messages[0].Role)
	assert.Equal(t, "assistant", rec.Messages[1].Role)
	assert.Equal(t, "Hello there", rec.Messages[1].Content)
}

func TestGeneratesThreadID(t *testing.T) {
	e := newEngine(t, providertest.NewScripted(providertest.Text("ok")), checkpoint.NewMemoryStore())
	res, err := e.Run(context.Background(), Turn{Input: "hi"})
	require.NoError(t, err)
	assert.Len(t, res.ThreadID, 36)
}

func TestCalculatorThenReminder(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := providertest.NewScripted(
		providertest.Calls("", call("c1", "calculator", `{"expression":"2+2"}`)),
		providertest.Calls("", call("c2", "createTodo", `{"title":"Call Bob","desc":"call Bob","deadline":"tomorrow 09:00"}`)),
		providertest.Text("2+2 is 4 and the reminder is set."),
	)
	e := newEngine(t, p, store)

	res, err := e.Run(context.Background(), Turn{ThreadID: "t1", Input: "2+2 then remind me tomorrow at 9am to call Bob", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, NodeEnd, res.Node)
	assert.Equal(t, 3, res.Steps)

	invoked := toolEvents(res.Events)
	require.Len(t, invoked, 2)
	assert.Equal(t, "calculator", invoked[0].Name)
	assert.Equal(t, "4", invoked[0].Result)
	assert.Equal(t, "createTodo", invoked[1].Name)
	assert.True(t, strings.HasPrefix(invoked[1].Result, "Created reminder: "), invoked[1].Result)

	// the second model call already sees the calculator result
	reqs := p.Requests()
	require.Len(t, reqs, 3)
	last := reqs[1].Messages[len(reqs[1].Messages)-1]
	assert.Equal(t, "tool", last.Role)
	assert.Equal(t, "c1", last.ToolCallID)

	rec, err := store.Load(context.Background(), "t1")
	require.NoError(t, err)
	roles := make([]string, 0, len(rec.Messages))
	for _, m := range rec.Messages {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []string{"user", "assistant", "tool", "assistant", "tool", "assistant"}, roles)
	assert.Equal(t, checkpoint.PendingNone, rec.PendingNode)
}

func TestSystemPromptIsBuiltPerCallAndNotPersisted(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := providertest.NewScripted(providertest.Text("ok"))
	e := newEngine(t, p, store)

	_, err := e.Run(context.Background(), Turn{ThreadID: "t1", Input: "hi", UserID: "alice"})
	require.NoError(t, err)

	req := p.Requests()[0]
	require.NotEmpty(t, req.Messages)
	sys := req.Messages[0]
	assert.Equal(t, "system", sys.Role)
	assert.Contains(t, sys.Content, "User: alice")
	assert.Contains(t, sys.Content, "askHuman")
	assert.Contains(t, sys.Content, "2025-06-02 08:00")
	assert.Equal(t, "askHuman", req.Tools[len(req.Tools)-1].Function.Name)

	rec, err := store.Load(context.Background(), "t1")
	require.NoError(t, err)
	for _, m := range rec.Messages {
		assert.NotEqual(t, "system", m.Role)
	}
}

func TestToolsSeeCallerIdentity(t *testing.T) {
	p := providertest.NewScripted(
		providertest.Calls("", call("c1", "whoami", `{}`)),
		providertest.Text("done"),
	)
	e := newEngine(t, p, checkpoint.NewMemoryStore())

	res, err := e.Run(context.Background(), Turn{ThreadID: "t9", Input: "who am I", UserID: "bob"})
	require.NoError(t, err)
	invoked := toolEvents(res.Events)
	require.Len(t, invoked, 1)
	assert.Equal(t, "bob@t9", invoked[0].Result)
}

func TestSuspendAndResume(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := providertest.NewScripted(
		providertest.Calls("Let me check.", call("tc_1", "askHuman", `{"input":"Which category?"}`)),
		providertest.Text("Saved to Work."),
	)
	e := newEngine(t, p, store)
	ctx := context.Background()

	res, err := e.Run(ctx, Turn{ThreadID: "t1", Input: "save this article"})
	require.NoError(t, err)
	assert.Equal(t, NodeAskHuman, res.Node)
	assert.Equal(t, "Which category?", res.Question)
	require.Len(t, res.Events, 2)
	assert.Equal(t, EventTextDelta{Text: "Let me check."}, res.Events[0])
	assert.Equal(t, EventInterrupt{CallID: "tc_1", Question: "Which category?"}, res.Events[1])
	assert.Equal(t, 1, p.CallCount())

	rec, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, checkpoint.PendingAskHuman, rec.PendingNode)
	require.NoError(t, rec.Validate())

	res, err = e.Run(ctx, Turn{ThreadID: "t1", Input: "yes", Action: ActionResume})
	require.NoError(t, err)
	assert.Equal(t, NodeEnd, res.Node)

	reqs := p.Requests()
	require.Len(t, reqs, 2)
	injected := reqs[1].Messages[len(reqs[1].Messages)-1]
	assert.Equal(t, "tool", injected.Role)
	assert.Equal(t, "tc_1", injected.ToolCallID)
	// The answer is named after the call it answers.
	asked := reqs[1].Messages[len(reqs[1].Messages)-2].ToolCalls[0]
	assert.Equal(t, asked.Function.Name, injected.Name)
	assert.Equal(t, tools.AskHumanName, injected.Name)
	assert.Equal(t, "yes", injected.Content)
	assert.Empty(t, toolEvents(res.Events))

	rec, err = store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, checkpoint.PendingNone, rec.PendingNode)
	assert.Len(t, rec.Messages, 4)
}

func TestCancelInjectsNotice(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := providertest.NewScripted(
		providertest.Calls("", call("tc_1", "askHuman", `{"input":"Proceed?"}`)),
		providertest.Text("Cancelled. Nothing was changed."),
	)
	e := newEngine(t, p, store)
	ctx := context.Background()

	_, err := e.Run(ctx, Turn{ThreadID: "t1", Input: "delete everything"})
	require.NoError(t, err)

	res, err := e.Run(ctx, Turn{ThreadID: "t1", Input: "ignored", Action: ActionCancel})
	require.NoError(t, err)
	assert.Equal(t, NodeEnd, res.Node)

	reqs := p.Requests()
	injected := reqs[1].Messages[len(reqs[1].Messages)-1]
	assert.Equal(t, "tc_1", injected.ToolCallID)
	assert.Equal(t, runtimecfg.GraphCancelNotice, injected.Content)
}

func TestPlainMessageAnswersPendingQuestion(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := providertest.NewScripted(
		providertest.Calls("", call("tc_1", "askHuman", `{"input":"Which day?"}`)),
		providertest.Text("Monday it is."),
	)
	e := newEngine(t, p, store)
	ctx := context.Background()

	_, err := e.Run(ctx, Turn{ThreadID: "t1", Input: "book it"})
	require.NoError(t, err)
	_, err = e.Run(ctx, Turn{ThreadID: "t1", Input: "Monday"})
	require.NoError(t, err)

	injected := p.Requests()[1].Messages
	last := injected[len(injected)-1]
	assert.Equal(t, "tool", last.Role)
	assert.Equal(t, "tc_1", last.ToolCallID)
	assert.Equal(t, "Monday", last.Content)
}

func TestAskHumanTrimsLaterCalls(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := providertest.NewScripted(providertest.Calls("",
		call("tc_1", "askHuman", `{"input":"Sure?"}`),
		call("tc_2", "calculator", `{"expression":"1+1"}`),
	))
	e := newEngine(t, p, store)

	res, err := e.Run(context.Background(), Turn{ThreadID: "t1", Input: "go"})
	require.NoError(t, err)
	assert.Equal(t, NodeAskHuman, res.Node)
	assert.Empty(t, toolEvents(res.Events))

	rec, err := store.Load(context.Background(), "t1")
	require.NoError(t, err)
	last := rec.Messages[len(rec.Messages)-1]
	require.Len(t, last.ToolCalls, 1)
	assert.Equal(t, "tc_1", last.ToolCalls[0].ID)
}

func TestResumeRequiresSuspendedThread(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := providertest.NewScripted(providertest.Text("done"))
	e := newEngine(t, p, store)
	ctx := context.Background()

	_, err := e.Run(ctx, Turn{ThreadID: "missing", Input: "yes", Action: ActionResume})
	require.ErrorIs(t, err, ErrUnknownThread)

	_, err = e.Run(ctx, Turn{Input: "yes", Action: ActionCancel})
	require.ErrorIs(t, err, ErrUnknownThread)

	_, err = e.Run(ctx, Turn{ThreadID: "t1", Input: "hello"})
	require.NoError(t, err)
	_, err = e.Run(ctx, Turn{ThreadID: "t1", Input: "yes", Action: ActionResume})
	require.ErrorIs(t, err, ErrUnknownThread)

	assert.Equal(t, 1, p.CallCount())
	assert.False(t, e.Busy("t1"))
}

func TestInvalidTurns(t *testing.T) {
	p := providertest.NewScripted()
	e := newEngine(t, p, checkpoint.NewMemoryStore())

	_, err := e.Run(context.Background(), Turn{ThreadID: "t1", Input: "x", Action: "rewind"})
	require.ErrorIs(t, err, ErrInvalidTurn)
	_, err = e.Run(context.Background(), Turn{ThreadID: "t1", Input: "  "})
	require.ErrorIs(t, err, ErrInvalidTurn)
	_, err = e.Run(context.Background(), Turn{ThreadID: "t1", Action: ActionResume})
	require.ErrorIs(t, err, ErrInvalidTurn)
	assert.Equal(t, 0, p.CallCount())
}

func TestToolFailuresNeverAbortTheRun(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := providertest.NewScripted(
		providertest.Calls("",
			call("c1", "boom", `{}`),
			call("c2", "nosuchtool", `{}`),
			call("c3", "calculator", `{"expr":"1+1"}`),
		),
		providertest.Text("Some tools failed."),
	)
	e := newEngine(t, p, store)

	res, err := e.Run(context.Background(), Turn{ThreadID: "t1", Input: "try"})
	require.NoError(t, err)
	assert.Equal(t, NodeEnd, res.Node)

	invoked := toolEvents(res.Events)
	require.Len(t, invoked, 3)
	for _, ev := range invoked {
		assert.True(t, strings.HasPrefix(ev.Result, "Error: "), ev.Result)
	}
	assert.Contains(t, invoked[0].Result, "kaboom")
	assert.Contains(t, invoked[1].Result, "unknown tool")
	assert.Contains(t, invoked[2].Result, "invalid arguments")

	// the model was called again right after the failing tools
	reqs := p.Requests()
	require.Len(t, reqs, 2)
	msgs := reqs[1].Messages
	assert.Equal(t, "c3", msgs[len(msgs)-1].ToolCallID)
}

func TestModelFailureLeavesCheckpoint(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := providertest.NewScripted(
		providertest.Text("first"),
		providertest.Fail(errors.New("upstream 500")),
	)
	e := newEngine(t, p, store)
	ctx := context.Background()

	_, err := e.Run(ctx, Turn{ThreadID: "t1", Input: "one"})
	require.NoError(t, err)
	before, err := store.Load(ctx, "t1")
	require.NoError(t, err)

	_, err = e.Run(ctx, Turn{ThreadID: "t1", Input: "two"})
	require.ErrorIs(t, err, ErrModelInvocation)
	assert.Contains(t, err.Error(), "upstream 500")

	after, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.False(t, e.Busy("t1"))
}

func TestModelFailureAfterActionKeepsCompletedSteps(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := providertest.NewScripted(
		providertest.Calls("", call("c1", "calculator", `{"expression":"3*3"}`)),
		providertest.Fail(errors.New("timeout")),
	)
	e := newEngine(t, p, store)

	_, err := e.Run(context.Background(), Turn{ThreadID: "t1", Input: "3*3"})
	require.ErrorIs(t, err, ErrModelInvocation)

	rec, err := store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, checkpoint.PendingAgent, rec.PendingNode)
	require.Len(t, rec.Messages, 3)
	assert.Equal(t, "9", rec.Messages[2].Content)
}

func TestMaxIterations(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := providertest.NewScripted(
		providertest.Calls("", call("c1", "calculator", `{"expression":"1+1"}`)),
		providertest.Calls("", call("c2", "calculator", `{"expression":"2+2"}`)),
		providertest.Calls("", call("c3", "calculator", `{"expression":"3+3"}`)),
	)
	e, err := New(Options{
		Provider:          p,
		Tools:             testRegistry(t, notes.NewMemoryStore()),
		Store:             store,
		MaxToolIterations: 2,
	})
	require.NoError(t, err)

	_, err = e.Run(context.Background(), Turn{ThreadID: "t1", Input: "loop"})
	require.ErrorIs(t, err, ErrMaxIterations)
	assert.Equal(t, 2, p.CallCount())

	rec, err := store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, checkpoint.PendingAgent, rec.PendingNode)
	assert.Len(t, rec.Messages, 5)
}

func TestReplayIsDeterministic(t *testing.T) {
	script := func() *providertest.Scripted {
		return providertest.NewScripted(
			providertest.Calls("", call("c1", "calculator", `{"expression":"6*7"}`)),
			providertest.Calls("", call("tc_1", "askHuman", `{"input":"Save it?"}`)),
		)
	}

	var records []*checkpoint.Record
	for i := 0; i < 2; i++ {
		store := checkpoint.NewMemoryStore()
		e := newEngine(t, script(), store)
		res, err := e.Run(context.Background(), Turn{ThreadID: "t1", Input: "6*7"})
		require.NoError(t, err)
		assert.Equal(t, NodeAskHuman, res.Node)

		rec, err := store.Load(context.Background(), "t1")
		require.NoError(t, err)
		records = append(records, rec)
	}
	assert.Equal(t, records[0].PendingNode, records[1].PendingNode)
	assert.Equal(t, records[0].Messages, records[1].Messages)
}

func TestStreamingProviderEmitsEachDelta(t *testing.T) {
	p := providertest.NewStreaming(providertest.Reply{
		Response: provider.Response{Content: "Hello world"},
		Deltas:   []string{"Hel", "lo ", "world"},
	})
	e := newEngine(t, p, checkpoint.NewMemoryStore())

	threadID, events, err := e.Stream(context.Background(), Turn{ThreadID: "t1", Input: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "t1", threadID)

	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	assert.Equal(t, []string{"Hel", "lo ", "world"}, textDeltas(got))
	assert.False(t, e.Busy("t1"))
}

func TestStreamEndsWithErrorEvent(t *testing.T) {
	p := providertest.NewScripted(providertest.Fail(errors.New("bad gateway")))
	e := newEngine(t, p, checkpoint.NewMemoryStore())

	_, events, err := e.Stream(context.Background(), Turn{ThreadID: "t1", Input: "hi"})
	require.NoError(t, err)

	var last Event
	for ev := range events {
		last = ev
	}
	evErr, ok := last.(EventError)
	require.True(t, ok)
	assert.ErrorIs(t, evErr.Err, ErrModelInvocation)
}

func TestBusyThreadIsRejected(t *testing.T) {
	p := providertest.NewScripted(providertest.Reply{Block: true})
	e := newEngine(t, p, checkpoint.NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	_, events, err := e.Stream(ctx, Turn{ThreadID: "t1", Input: "slow"})
	require.NoError(t, err)
	assert.True(t, e.Busy("t1"))

	_, err = e.Run(context.Background(), Turn{ThreadID: "t1", Input: "again"})
	require.ErrorIs(t, err, ErrThreadBusy)
	require.ErrorIs(t, e.DeleteThread(context.Background(), "t1"), ErrThreadBusy)

	cancel()
	for range events {
	}
	assert.False(t, e.Busy("t1"))
}

func TestClientAbortLeavesCheckpoint(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := providertest.NewScripted(
		providertest.Text("first"),
		providertest.Reply{Block: true},
	)
	e := newEngine(t, p, store)

	_, err := e.Run(context.Background(), Turn{ThreadID: "t1", Input: "one"})
	require.NoError(t, err)
	before, err := store.Load(context.Background(), "t1")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	var runErr error
	go func() {
		defer wg.Done()
		_, runErr = e.Run(ctx, Turn{ThreadID: "t1", Input: "two"})
	}()
	require.Eventually(t, func() bool { return p.CallCount() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	wg.Wait()

	require.ErrorIs(t, runErr, context.Canceled)
	assert.NotErrorIs(t, runErr, ErrModelInvocation)
	after, err := store.Load(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStaleWriterConflicts(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	ctx := context.Background()
	p := providertest.NewScripted(providertest.Text("a"), providertest.Text("b"))
	e := newEngine(t, p, store)

	_, err := e.Run(ctx, Turn{ThreadID: "t1", Input: "one"})
	require.NoError(t, err)

	// another process loaded the same base before this run wrote
	stale, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	_, err = e.Run(ctx, Turn{ThreadID: "t1", Input: "two"})
	require.NoError(t, err)

	stale.Messages = append(stale.Messages, provider.UserMessage("late"))
	require.ErrorIs(t, store.Save(ctx, stale), checkpoint.ErrConflict)
}

type corruptStore struct {
	*checkpoint.MemoryStore
}

func (corruptStore) Load(context.Context, string) (*checkpoint.Record, error) {
	return &checkpoint.Record{
		ThreadID:    "t1",
		PendingNode: checkpoint.PendingAskHuman,
		Messages:    []provider.Message{provider.UserMessage("hi")},
	}, nil
}

func TestCorruptCheckpoint(t *testing.T) {
	p := providertest.NewScripted()
	e := newEngine(t, p, corruptStore{checkpoint.NewMemoryStore()})

	_, err := e.Run(context.Background(), Turn{ThreadID: "t1", Input: "yes", Action: ActionResume})
	require.ErrorIs(t, err, ErrInvalidCheckpoint)
	assert.ErrorIs(t, err, checkpoint.ErrInvalidRecord)
	assert.Equal(t, 0, p.CallCount())
}

func TestThreadAndDelete(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	e := newEngine(t, providertest.NewScripted(providertest.Text("ok")), store)
	ctx := context.Background()

	_, err := e.Thread(ctx, "t1")
	require.ErrorIs(t, err, ErrUnknownThread)
	require.ErrorIs(t, e.DeleteThread(ctx, "t1"), ErrUnknownThread)

	_, err = e.Run(ctx, Turn{ThreadID: "t1", Input: "hi"})
	require.NoError(t, err)
	rec, err := e.Thread(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, rec.Messages, 2)

	require.NoError(t, e.DeleteThread(ctx, "t1"))
	ok, err := store.Exists(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoute(t *testing.T) {
	assert.Equal(t, NodeEnd, route(provider.AssistantMessage("x")))
	assert.Equal(t, NodeAskHuman, route(provider.AssistantMessageWithTools("", "", []provider.ToolCall{call("a", "askHuman", "{}")})))
	assert.Equal(t, NodeAction, route(provider.AssistantMessageWithTools("", "", []provider.ToolCall{
		call("a", "calculator", "{}"),
		call("b", "askHuman", "{}"),
	})))
}

func TestMissingToolCallIDsAreFilled(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	p := providertest.NewScripted(
		providertest.Calls("", provider.ToolCall{Function: provider.FunctionCall{Name: "calculator", Arguments: `{"expression":"1+2"}`}}),
		providertest.Text("3"),
	)
	e := newEngine(t, p, store)

	_, err := e.Run(context.Background(), Turn{ThreadID: "t1", Input: "1+2"})
	require.NoError(t, err)
	rec, err := store.Load(context.Background(), "t1")
	require.NoError(t, err)
	id := rec.Messages[1].ToolCalls[0].ID
	assert.True(t, strings.HasPrefix(id, "call_"))
	assert.Equal(t, "function", rec.Messages[1].ToolCalls[0].Type)
	assert.Equal(t, id, rec.Messages[2].ToolCallID)
}
