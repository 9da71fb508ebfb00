// Package tools provides the tool registry and the built-in tools.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"

	"github.com/linanwx/notebot/internal/runtimecfg"
	"github.com/linanwx/notebot/logger"
	"github.com/linanwx/notebot/provider"
)

// Tool is the interface for agent tools.
type Tool interface {
	// Def returns the tool definition for the LLM.
	Def() provider.ToolDef
	// Run executes the tool with validated arguments and returns the result text.
	Run(ctx context.Context, args json.RawMessage) (string, error)
}

// HandlerFunc is the handler shape accepted by RegisterFunc.
type HandlerFunc func(ctx context.Context, args json.RawMessage) (string, error)

type funcTool struct {
	def     provider.ToolDef
	handler HandlerFunc
}

func (t *funcTool) Def() provider.ToolDef { return t.def }

func (t *funcTool) Run(ctx context.Context, args json.RawMessage) (string, error) {
	return t.handler(ctx, args)
}

// Registry holds registered tools. It is built once at startup and only read
// afterwards.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Clone returns a shallow copy of the registry.
func (r *Registry) Clone() *Registry {
	cloned := NewRegistry()
	for name, tool := range r.tools {
		cloned.tools[name] = tool
	}
	return cloned
}

// Register adds a tool to the registry, replacing any tool of the same name.
func (r *Registry) Register(t Tool) error {
	name := strings.TrimSpace(t.Def().Function.Name)
	if name == "" {
		return errors.New("tool name is required")
	}
	if name == AskHumanName {
		return fmt.Errorf("tool name %q is reserved", name)
	}
	r.tools[name] = t
	return nil
}

// RegisterFunc registers a handler under name with a JSON schema for its arguments.
func (r *Registry) RegisterFunc(name, description string, schema map[string]any, handler HandlerFunc) error {
	if handler == nil {
		return fmt.Errorf("tool %q: handler is nil", name)
	}
	if schema == nil {
		schema = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return r.Register(&funcTool{
		def: provider.ToolDef{
			Type: "function",
			Function: provider.FunctionDef{
				Name:        name,
				Description: description,
				Parameters:  schema,
			},
		},
		handler: handler,
	})
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Defs returns all tool definitions sorted by name, followed by the reserved
// askHuman definition.
func (r *Registry) Defs() []provider.ToolDef {
	defs := make([]provider.ToolDef, 0, len(r.tools)+1)
	for _, name := range r.Names() {
		defs = append(defs, r.tools[name].Def())
	}
	return append(defs, AskHumanDef())
}

// Names returns the names of all registered tools.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke validates args against the tool schema and runs the tool. Failures
// come back as *ToolError.
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) (result string, err error) {
	if name == AskHumanName {
		return "", &ToolError{Kind: KindReserved, Tool: name, Err: errors.New("askHuman is handled by the graph, not the registry")}
	}
	t, ok := r.tools[name]
	if !ok {
		logger.Error("tool not found", "tool", name)
		return "", &ToolError{Kind: KindUnknownTool, Tool: name, Err: fmt.Errorf("unknown tool '%s'", name)}
	}

	if len(strings.TrimSpace(string(args))) == 0 {
		args = json.RawMessage("{}")
	}
	if err := ValidateArguments(t.Def().Function.Parameters, args); err != nil {
		return "", &ToolError{Kind: KindInvalidArguments, Tool: name, Err: err}
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("tool panic", "tool", name, "panic", rec, "stack", string(debug.Stack()))
			result = ""
			err = &ToolError{Kind: KindExecution, Tool: name, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	out, runErr := t.Run(ctx, args)
	if runErr != nil {
		var te *ToolError
		if errors.As(runErr, &te) {
			if te.Tool == "" {
				te.Tool = name
			}
			return "", te
		}
		return "", &ToolError{Kind: KindExecution, Tool: name, Err: runErr}
	}
	out, truncated := truncateWithNotice(out, runtimecfg.ToolResultMaxChars)
	if truncated {
		logger.Warn("tool result truncated", "tool", name, "maxChars", runtimecfg.ToolResultMaxChars)
	}
	return out, nil
}

// decodeArgs unmarshals validated arguments into dst.
func decodeArgs(args json.RawMessage, dst any) error {
	if err := json.Unmarshal(args, dst); err != nil {
		return &ToolError{Kind: KindInvalidArguments, Err: err}
	}
	return nil
}
