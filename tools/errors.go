package tools

import "fmt"

// ErrorKind classifies tool failures.
type ErrorKind string

const (
	KindUnknownTool      ErrorKind = "unknown_tool"
	KindInvalidArguments ErrorKind = "invalid_arguments"
	KindExecution        ErrorKind = "execution"
	KindReserved         ErrorKind = "reserved"
)

// ToolError is returned by Registry.Invoke. The graph turns it into the text
// of a tool message so the model can react to it.
type ToolError struct {
	Kind ErrorKind
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	if e.Err == nil {
		return string(e.Kind) + ": " + e.Tool
	}
	switch e.Kind {
	case KindInvalidArguments:
		return fmt.Sprintf("invalid arguments for %s: %v", e.Tool, e.Err)
	case KindExecution:
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *ToolError) Unwrap() error { return e.Err }

// ResultText renders a tool failure as tool message content.
func ResultText(err error) string {
	return "Error: " + err.Error()
}
