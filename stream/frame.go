// Package stream turns graph events into the ordered frames clients render.
package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/linanwx/notebot/graph"
	"github.com/linanwx/notebot/internal/runtimecfg"
)

// Frame is one client-visible chunk of a run.
type Frame struct {
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// FrameWriter receives frames in order.
type FrameWriter interface {
	WriteFrame(ctx context.Context, f Frame) error
}

// FrameWriterFunc adapts a function to FrameWriter.
type FrameWriterFunc func(ctx context.Context, f Frame) error

// WriteFrame calls fn.
func (fn FrameWriterFunc) WriteFrame(ctx context.Context, f Frame) error {
	return fn(ctx, f)
}

// ToolCallText wraps a tool name and result in the tool call markers.
func ToolCallText(name, result string) string {
	return runtimecfg.StreamToolCallOpen + name + runtimecfg.StreamToolCallSep + result + runtimecfg.StreamToolCallClose
}

// AskHumanText wraps a question in the human input markers.
func AskHumanText(question string) string {
	return runtimecfg.StreamAskHumanOpen + question + runtimecfg.StreamAskHumanClose
}

// FrameFor converts an event. Unknown events are reported as not ok.
func FrameFor(ev graph.Event, at time.Time) (Frame, bool) {
	switch e := ev.(type) {
	case graph.EventTextDelta:
		return Frame{Type: runtimecfg.StreamFrameTypeText, Text: e.Text, Timestamp: at}, true
	case graph.EventToolInvoked:
		return Frame{Type: runtimecfg.StreamFrameTypeTool, Text: ToolCallText(e.Name, e.Result), Timestamp: at}, true
	case graph.EventInterrupt:
		return Frame{Type: runtimecfg.StreamFrameTypeAsk, Text: AskHumanText(e.Question), Timestamp: at}, true
	case graph.EventError:
		msg := "unknown error"
		if e.Err != nil {
			msg = e.Err.Error()
		}
		return Frame{Type: runtimecfg.StreamFrameTypeError, Text: msg, Timestamp: at}, true
	default:
		return Frame{}, false
	}
}

// ErrorFrame builds the frame that ends a failed stream.
func ErrorFrame(err error, at time.Time) Frame {
	f, _ := FrameFor(graph.EventError{Err: err}, at)
	return f
}

func describe(ev graph.Event) string {
	return fmt.Sprintf("%T", ev)
}
