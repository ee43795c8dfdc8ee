package mcpconn

import (
	"context"
	"fmt"
	"regexp"
	"sort"
)

// Caller is the part of a Handle a Toolset needs.
type Caller interface {
	Name() string
	ListTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (string, bool, error)
}

type route struct {
	caller Caller
	tool   string
}

// Toolset presents the tools of several sessions as one flat list. With more
// than one session, each tool name is prefixed with its session name.
type Toolset struct {
	tools  []Tool
	routes map[string]route
}

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// NewToolset lists the tools of every caller.
func NewToolset(ctx context.Context, callers ...Caller) (*Toolset, error) {
	ts := &Toolset{routes: make(map[string]route)}
	prefix := len(callers) > 1
	for _, c := range callers {
		tools, err := c.ListTools(ctx)
		if err != nil {
			return nil, err
		}
		for _, t := range tools {
			name := t.Name
			if prefix {
				name = c.Name() + "_" + t.Name
			}
			name = invalidNameChars.ReplaceAllString(name, "_")
			if _, dup := ts.routes[name]; dup {
				return nil, fmt.Errorf("duplicate tool name %q", name)
			}
			ts.routes[name] = route{caller: c, tool: t.Name}
			ts.tools = append(ts.tools, Tool{Name: name, Description: t.Description, InputSchema: t.InputSchema})
		}
	}
	sort.Slice(ts.tools, func(i, j int) bool { return ts.tools[i].Name < ts.tools[j].Name })
	return ts, nil
}

// Tools returns the flattened tool list sorted by name.
func (ts *Toolset) Tools() []Tool {
	return append([]Tool(nil), ts.tools...)
}

// CallTool routes a call to the session that owns the tool.
func (ts *Toolset) CallTool(ctx context.Context, name string, args map[string]any) (string, bool, error) {
	r, ok := ts.routes[name]
	if !ok {
		return "", false, fmt.Errorf("unknown tool %q", name)
	}
	return r.caller.CallTool(ctx, r.tool, args)
}
