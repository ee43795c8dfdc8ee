package mcpconn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	name  string
	tools []Tool
	calls []string
	err   error
}

func (f *fakeCaller) Name() string { return f.name }

func (f *fakeCaller) ListTools(context.Context) ([]Tool, error) {
	return f.tools, f.err
}

func (f *fakeCaller) CallTool(_ context.Context, name string, _ map[string]any) (string, bool, error) {
	f.calls = append(f.calls, name)
	return f.name + ":" + name, false, nil
}

func TestToolsetSingleCallerKeepsNames(t *testing.T) {
	pw := &fakeCaller{name: "playwright", tools: []Tool{{Name: "browser_navigate"}, {Name: "browser_click"}}}

	ts, err := NewToolset(context.Background(), pw)
	require.NoError(t, err)

	names := []string{}
	for _, tool := range ts.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{"browser_click", "browser_navigate"}, names)

	out, _, err := ts.CallTool(context.Background(), "browser_navigate", nil)
	require.NoError(t, err)
	assert.Equal(t, "playwright:browser_navigate", out)
}

func TestToolsetPrefixesWithSeveralCallers(t *testing.T) {
	pw := &fakeCaller{name: "playwright", tools: []Tool{{Name: "browser_navigate"}}}
	at := &fakeCaller{name: "airtable", tools: []Tool{{Name: "create_record"}}}

	ts, err := NewToolset(context.Background(), pw, at)
	require.NoError(t, err)
	require.Len(t, ts.Tools(), 2)

	_, _, err = ts.CallTool(context.Background(), "airtable_create_record", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"create_record"}, at.calls)
	assert.Empty(t, pw.calls)

	_, _, err = ts.CallTool(context.Background(), "create_record", nil)
	assert.ErrorContains(t, err, "unknown tool")
}

func TestToolsetSanitizesNames(t *testing.T) {
	c := &fakeCaller{name: "x", tools: []Tool{{Name: "list.records"}}}
	ts, err := NewToolset(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "list_records", ts.Tools()[0].Name)

	_, _, err = ts.CallTool(context.Background(), "list_records", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"list.records"}, c.calls)
}

func TestToolsetDuplicateNames(t *testing.T) {
	c := &fakeCaller{name: "x", tools: []Tool{{Name: "a.b"}, {Name: "a_b"}}}
	_, err := NewToolset(context.Background(), c)
	assert.ErrorContains(t, err, "duplicate tool name")
}

func TestToolsetListError(t *testing.T) {
	boom := errors.New("session closed")
	_, err := NewToolset(context.Background(), &fakeCaller{name: "x", err: boom})
	assert.ErrorIs(t, err, boom)
}
