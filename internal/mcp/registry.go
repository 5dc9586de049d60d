package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/HammerMeetNail/solutionbase/internal/models"
)

// HandlerFunc runs one method for an authenticated caller. Returning an
// *Error sends it as is; any other error is logged and reported as an
// internal error.
type HandlerFunc func(ctx context.Context, caller *models.User, req mcpgo.CallToolRequest) (any, error)

// Method is one registry entry. Tool methods carry the definition that is
// published in the catalogue; protocol methods (initialize, tools/list and
// the like) have none and are not callable through tools/call.
type Method struct {
	Name    string
	Aliases []string
	Tool    *mcpgo.Tool
	Handler HandlerFunc
}

// Registry maps method names and aliases to handlers.
type Registry struct {
	byName map[string]*Method
	tools  []*Method
}

// NewRegistry validates methods and builds the lookup table. It fails when a
// name or alias is used twice, when an entry has no handler, or when a tool
// definition names a different method than the entry it belongs to.
func NewRegistry(methods ...Method) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Method)}
	for i := range methods {
		m := &methods[i]
		if m.Name == "" {
			return nil, errors.New("method without a name")
		}
		if m.Handler == nil {
			return nil, fmt.Errorf("method %q has no handler", m.Name)
		}
		if m.Tool != nil && m.Tool.Name != m.Name {
			return nil, fmt.Errorf("method %q publishes tool %q", m.Name, m.Tool.Name)
		}
		for _, name := range append([]string{m.Name}, m.Aliases...) {
			if _, dup := r.byName[name]; dup {
				return nil, fmt.Errorf("method name %q registered twice", name)
			}
			r.byName[name] = m
		}
		if m.Tool != nil {
			r.tools = append(r.tools, m)
		}
	}
	sort.SliceStable(r.tools, func(i, j int) bool { return r.tools[i].Name < r.tools[j].Name })
	return r, nil
}

// Lookup resolves a method name or alias.
func (r *Registry) Lookup(name string) (*Method, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Tool resolves a tool by its canonical name or alias. Protocol methods are
// not tools.
func (r *Registry) Tool(name string) (*Method, bool) {
	m, ok := r.byName[name]
	if !ok || m.Tool == nil {
		return nil, false
	}
	return m, true
}

// Tools returns the published tool definitions sorted by name.
func (r *Registry) Tools() []mcpgo.Tool {
	tools := make([]mcpgo.Tool, 0, len(r.tools))
	for _, m := range r.tools {
		tools = append(tools, *m.Tool)
	}
	return tools
}

// CatalogueEntry is one tool as listed by list_tools.
type CatalogueEntry struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Parameters  mcpgo.ToolInputSchema `json:"parameters"`
}

// Catalogue lists the tools in the list_tools shape.
func (r *Registry) Catalogue() []CatalogueEntry {
	entries := make([]CatalogueEntry, 0, len(r.tools))
	for _, m := range r.tools {
		entries = append(entries, CatalogueEntry{
			Name:        m.Name,
			Description: m.Tool.Description,
			Parameters:  m.Tool.InputSchema,
		})
	}
	return entries
}
