package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/linanwx/notebot/internal/runtimecfg"
	"github.com/linanwx/notebot/logger"
	"github.com/linanwx/notebot/tools"
)

// newMCPServer exposes the registry's tools to MCP clients over SSE. The
// stream is served on WebChannelMCPSSEPath and clients post to
// WebChannelMCPMessagePath. askHuman only exists inside a graph run and is
// not offered.
func newMCPServer(reg *tools.Registry, version string) *server.SSEServer {
	s := server.NewMCPServer(runtimecfg.MCPServerName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	for _, def := range reg.Defs() {
		name := def.Function.Name
		if name == tools.AskHumanName {
			continue
		}
		schema, err := json.Marshal(def.Function.Parameters)
		if err != nil {
			logger.Warn("mcp tool schema skipped", "tool", name, "err", err)
			continue
		}
		s.AddTool(mcp.NewToolWithRawSchema(name, def.Function.Description, schema), mcpToolHandler(reg, name))
	}

	return server.NewSSEServer(s,
		server.WithSSEEndpoint(runtimecfg.WebChannelMCPSSEPath),
		server.WithMessageEndpoint(runtimecfg.WebChannelMCPMessagePath),
		server.WithUseFullURLForMessageEndpoint(false),
		server.WithSSEContextFunc(mcpRuntimeContext),
	)
}

// mcpRuntimeContext carries the caller's user ID into tool runs so notes land
// with the right owner.
func mcpRuntimeContext(ctx context.Context, r *http.Request) context.Context {
	userID := strings.TrimSpace(r.Header.Get(runtimecfg.WebChannelUserIDHeader))
	return tools.WithRuntime(ctx, tools.Runtime{UserID: userID})
}

func mcpToolHandler(reg *tools.Registry, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		out, err := reg.Invoke(ctx, name, raw)
		if err != nil {
			logger.Warn("mcp tool call failed", "tool", name, "err", err)
			return mcp.NewToolResultError(tools.ResultText(err)), nil
		}
		logger.Info("mcp tool call", "tool", name, "resultLen", len(out))
		return mcp.NewToolResultText(out), nil
	}
}
