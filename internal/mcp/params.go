package mcp

import (
	"math"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

func newCallRequest(name string, args map[string]any) mcpgo.CallToolRequest {
	var req mcpgo.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// present reports whether key was supplied with a non-null value.
func present(req mcpgo.CallToolRequest, key string) bool {
	v, ok := req.GetArguments()[key]
	return ok && v != nil
}

// nonEmptyString returns the trimmed string under key, or false when it is
// missing, not a string or blank.
func nonEmptyString(req mcpgo.CallToolRequest, key string) (string, bool) {
	s, err := req.RequireString(key)
	if err != nil || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func optionalString(req mcpgo.CallToolRequest, key string) (*string, *Error) {
	if !present(req, key) {
		return nil, nil
	}
	s, err := req.RequireString(key)
	if err != nil {
		return nil, InvalidParams("%s must be a string", key)
	}
	return &s, nil
}

func optionalBool(req mcpgo.CallToolRequest, key string) (*bool, *Error) {
	if !present(req, key) {
		return nil, nil
	}
	b, ok := req.GetArguments()[key].(bool)
	if !ok {
		return nil, InvalidParams("%s must be a boolean", key)
	}
	return &b, nil
}

// optionalTags returns nil when tags were not supplied.
func optionalTags(req mcpgo.CallToolRequest) ([]string, *Error) {
	if !present(req, "tags") {
		return nil, nil
	}
	tags, err := req.RequireStringSlice("tags")
	if err != nil {
		return nil, InvalidParams("tags must be an array of strings")
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

// optionalLimit returns 0 when limit was not supplied.
func optionalLimit(req mcpgo.CallToolRequest) (int, *Error) {
	if !present(req, "limit") {
		return 0, nil
	}
	f, ok := req.GetArguments()["limit"].(float64)
	if !ok || f != math.Trunc(f) || f < 1 {
		return 0, InvalidParams("limit must be a positive integer")
	}
	// Anything this large is capped by the store anyway.
	return int(min(f, math.MaxInt32)), nil
}
