package stream

import (
	"regexp"
	"strings"

	"github.com/linanwx/notebot/internal/runtimecfg"
)

// SegmentKind classifies a piece of accumulated assistant text.
type SegmentKind string

const (
	SegmentText     SegmentKind = "text"
	SegmentThink    SegmentKind = "think"
	SegmentToolCall SegmentKind = "tool_call"
	SegmentAskHuman SegmentKind = "ask_human"
)

// Segment is a marked-up region of a transcript with its markers removed.
// Tool and Result are set for tool call segments.
type Segment struct {
	Kind   SegmentKind
	Text   string
	Tool   string
	Result string
}

var segmentPattern = regexp.MustCompile(
	`(?s)` + regexp.QuoteMeta(runtimecfg.StreamThinkOpen) + `(.*?)` + regexp.QuoteMeta(runtimecfg.StreamThinkClose) +
		`|` + regexp.QuoteMeta(runtimecfg.StreamToolCallOpen) + `(.*?)` + regexp.QuoteMeta(runtimecfg.StreamToolCallClose) +
		`|` + regexp.QuoteMeta(runtimecfg.StreamAskHumanOpen) + `(.*?)` + regexp.QuoteMeta(runtimecfg.StreamAskHumanClose),
)

// ParseSegments splits concatenated frame text into segments, in order.
// Whitespace-only text between markers is dropped. An unterminated marker is
// left as plain text.
func ParseSegments(content string) []Segment {
	var out []Segment
	appendText := func(s string) {
		if strings.TrimSpace(s) != "" {
			out = append(out, Segment{Kind: SegmentText, Text: s})
		}
	}

	last := 0
	for _, m := range segmentPattern.FindAllStringSubmatchIndex(content, -1) {
		appendText(content[last:m[0]])
		switch {
		case m[2] >= 0:
			out = append(out, Segment{Kind: SegmentThink, Text: content[m[2]:m[3]]})
		case m[4] >= 0:
			body := content[m[4]:m[5]]
			name, result := SplitToolCall(body)
			out = append(out, Segment{Kind: SegmentToolCall, Text: body, Tool: name, Result: result})
		case m[6] >= 0:
			out = append(out, Segment{Kind: SegmentAskHuman, Text: content[m[6]:m[7]]})
		}
		last = m[1]
	}
	appendText(content[last:])
	return out
}

// SplitToolCall splits a tool call body into tool name and result.
func SplitToolCall(body string) (name, result string) {
	name, result, ok := strings.Cut(body, runtimecfg.StreamToolCallSep)
	if !ok {
		return "", body
	}
	return name, result
}
