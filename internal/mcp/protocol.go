package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/HammerMeetNail/solutionbase/internal/models"
)

const serverName = "solutionbase"

// olderProtocolVersions are accepted in addition to the latest version
// known to mcp-go.
var olderProtocolVersions = map[string]bool{
	"2024-11-05": true,
	"2025-03-26": true,
}

func supportedProtocolVersion(v string) bool {
	return v == mcpgo.LATEST_PROTOCOL_VERSION || olderProtocolVersions[v]
}

type catalogueResult struct {
	Tools []CatalogueEntry `json:"tools"`
}

type toolCapability struct{}

type serverCapabilities struct {
	Tools toolCapability `json:"tools"`
}

type initializeResult struct {
	ProtocolVersion string               `json:"protocolVersion"`
	Capabilities    serverCapabilities   `json:"capabilities"`
	ServerInfo      mcpgo.Implementation `json:"serverInfo"`
}

// protocolMethods are resolved against s.registry at call time, so they can
// be registered in the same table they describe.
func (s *Server) protocolMethods() []Method {
	return []Method{
		{Name: "list_tools", Aliases: []string{"tools.list"}, Handler: s.listTools},
		{Name: "initialize", Handler: s.initialize},
		{Name: "tools/list", Handler: s.toolsList},
		{Name: "tools/call", Handler: s.toolsCall},
	}
}

func (s *Server) listTools(ctx context.Context, caller *models.User, req mcpgo.CallToolRequest) (any, error) {
	return catalogueResult{Tools: s.registry.Catalogue()}, nil
}

func (s *Server) initialize(ctx context.Context, caller *models.User, req mcpgo.CallToolRequest) (any, error) {
	version := mcpgo.LATEST_PROTOCOL_VERSION
	if requested, _ := req.GetArguments()["protocolVersion"].(string); supportedProtocolVersion(requested) {
		version = requested
	}
	return initializeResult{
		ProtocolVersion: version,
		ServerInfo:      mcpgo.Implementation{Name: serverName, Version: s.version},
	}, nil
}

func (s *Server) toolsList(ctx context.Context, caller *models.User, req mcpgo.CallToolRequest) (any, error) {
	return mcpgo.ListToolsResult{Tools: s.registry.Tools()}, nil
}

// toolsCall runs a tool and wraps its result as MCP text content. Argument
// and lookup failures become tool errors the assistant can read; internal
// failures stay JSON-RPC errors.
func (s *Server) toolsCall(ctx context.Context, caller *models.User, req mcpgo.CallToolRequest) (any, error) {
	name, ok := nonEmptyString(req, "name")
	if !ok {
		return nil, InvalidParams("tool name is required")
	}
	m, ok := s.registry.Tool(name)
	if !ok {
		return nil, InvalidParams("Unknown tool: %s", name)
	}

	args := map[string]any{}
	if present(req, "arguments") {
		obj, ok := req.GetArguments()["arguments"].(map[string]any)
		if !ok {
			return nil, InvalidParams("arguments must be an object")
		}
		args = obj
	}

	result, err := m.Handler(ctx, caller, newCallRequest(m.Name, args))
	if err != nil {
		var rpcErr *Error
		if errors.As(err, &rpcErr) && rpcErr.Code == CodeInvalidParams {
			return mcpgo.NewToolResultError(rpcErr.Message), nil
		}
		return nil, err
	}

	text, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding %s result: %w", m.Name, err)
	}
	return mcpgo.NewToolResultText(string(text)), nil
}
