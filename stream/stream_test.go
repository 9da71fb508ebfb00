package stream

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/linanwx/notebot/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	frames []Frame
	failAt int
}

func (r *recorder) WriteFrame(_ context.Context, f Frame) error {
	if r.failAt > 0 && len(r.frames)+1 == r.failAt {
		return errors.New("client gone")
	}
	r.frames = append(r.frames, f)
	return nil
}

func feed(events ...graph.Event) <-chan graph.Event {
	ch := make(chan graph.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func fixedMultiplexer() *Multiplexer {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return &Multiplexer{now: func() time.Time { return at }}
}

func TestPipeKeepsEventOrder(t *testing.T) {
	rec := &recorder{}
	err := fixedMultiplexer().Pipe(context.Background(), feed(
		graph.EventTextDelta{Text: "Working"},
		graph.EventToolInvoked{Name: "calculator", Result: "4"},
		graph.EventToolInvoked{Name: "createTodo", Result: "Created reminder"},
		graph.EventTextDelta{Text: "Done"},
	), rec)
	require.NoError(t, err)

	require.Len(t, rec.frames, 4)
	assert.Equal(t, Frame{Type: "text", Text: "Working", Timestamp: rec.frames[0].Timestamp}, rec.frames[0])
	assert.Equal(t, "tool_call", rec.frames[1].Type)
	assert.Equal(t, "<tool_call>calculator__TOOLCALL__4</tool_call>", rec.frames[1].Text)
	assert.Equal(t, "<tool_call>createTodo__TOOLCALL__Created reminder</tool_call>", rec.frames[2].Text)
	assert.Equal(t, "Done", rec.frames[3].Text)
}

func TestPipeInterruptFrame(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, fixedMultiplexer().Pipe(context.Background(), feed(
		graph.EventInterrupt{CallID: "tc_1", Question: "Which category?"},
	), rec))
	require.Len(t, rec.frames, 1)
	assert.Equal(t, "ask_human", rec.frames[0].Type)
	assert.Equal(t, "<ask_human_input>Which category?</ask_human_input>", rec.frames[0].Text)
}

func TestPipeErrorFrameEndsStream(t *testing.T) {
	rec := &recorder{}
	runErr := errors.New("model invocation failed: 502")
	err := fixedMultiplexer().Pipe(context.Background(), feed(
		graph.EventTextDelta{Text: "partial"},
		graph.EventError{Err: runErr},
	), rec)
	require.ErrorIs(t, err, runErr)
	require.Len(t, rec.frames, 2)
	assert.Equal(t, "error", rec.frames[1].Type)
	assert.Equal(t, runErr.Error(), rec.frames[1].Text)
}

func TestPipeStopsOnWriterError(t *testing.T) {
	rec := &recorder{failAt: 2}
	err := fixedMultiplexer().Pipe(context.Background(), feed(
		graph.EventTextDelta{Text: "a"},
		graph.EventTextDelta{Text: "b"},
		graph.EventTextDelta{Text: "c"},
	), rec)
	require.EqualError(t, err, "client gone")
	assert.Len(t, rec.frames, 1)
}

func TestPipeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	events := make(chan graph.Event)
	err := NewMultiplexer().Pipe(ctx, events, &recorder{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSSERoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewSSEWriter(&buf)
	at := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, w.WriteFrame(context.Background(), Frame{Type: "text", Text: "hi\nthere", Timestamp: at}))
	require.NoError(t, w.WriteFrame(context.Background(), Frame{Type: "tool_call", Text: ToolCallText("calc", "2"), Timestamp: at}))

	assert.True(t, strings.HasPrefix(buf.String(), `data: {"type":"text","text":"hi\nthere","timestamp":"2025-01-01T12:00:00Z"}`+"\n\n"))

	var got []Frame
	require.NoError(t, ReadSSE(&buf, func(f Frame) error {
		got = append(got, f)
		return nil
	}))
	require.Len(t, got, 2)
	assert.Equal(t, "hi\nthere", got[0].Text)
	assert.True(t, at.Equal(got[1].Timestamp))
}

func TestParseSegments(t *testing.T) {
	content := "<think>plan the steps</think>Sure. " +
		ToolCallText("calculator", "4") +
		"\n\n" +
		ToolCallText("createTodo", "Created reminder: {}") +
		"All set." +
		AskHumanText("Anything else?")

	segs := ParseSegments(content)
	require.Len(t, segs, 6)
	assert.Equal(t, Segment{Kind: SegmentThink, Text: "plan the steps"}, segs[0])
	assert.Equal(t, Segment{Kind: SegmentText, Text: "Sure. "}, segs[1])
	assert.Equal(t, SegmentToolCall, segs[2].Kind)
	assert.Equal(t, "calculator", segs[2].Tool)
	assert.Equal(t, "4", segs[2].Result)
	assert.Equal(t, "createTodo", segs[3].Tool)
	assert.Equal(t, Segment{Kind: SegmentText, Text: "All set."}, segs[4])
	assert.Equal(t, Segment{Kind: SegmentAskHuman, Text: "Anything else?"}, segs[5])
}

func TestParseSegmentsUnterminated(t *testing.T) {
	segs := ParseSegments("hello <think>still thinking")
	require.Len(t, segs, 1)
	assert.Equal(t, SegmentText, segs[0].Kind)
	assert.Equal(t, "hello <think>still thinking", segs[0].Text)
}

func TestSplitToolCall(t *testing.T) {
	name, result := SplitToolCall("fetchUrlContent__TOOLCALL__a__TOOLCALL__b")
	assert.Equal(t, "fetchUrlContent", name)
	assert.Equal(t, "a__TOOLCALL__b", result)

	name, result = SplitToolCall("no separator")
	assert.Equal(t, "", name)
	assert.Equal(t, "no separator", result)
}
