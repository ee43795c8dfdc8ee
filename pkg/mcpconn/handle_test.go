package mcpconn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/jobscout/pkg/logging"
)

type echoInput struct {
	Text string `json:"text" jsonschema:"text to echo back"`
}

func newToolServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := mcp.NewServer(&mcp.Implementation{Name: "fake-playwright", Version: "1.0.0"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: "browser_echo", Description: "Echo text"},
		func(ctx context.Context, req *mcp.CallToolRequest, in echoInput) (*mcp.CallToolResult, any, error) {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "echo: " + in.Text}},
			}, nil, nil
		})
	mcp.AddTool(server, &mcp.Tool{Name: "browser_fail", Description: "Always fails"},
		func(ctx context.Context, req *mcp.CallToolRequest, in echoInput) (*mcp.CallToolResult, any, error) {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: "element not found"}},
			}, nil, nil
		})

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func openTestHandle(t *testing.T) *Handle {
	t.Helper()
	srv := newToolServer(t)
	h, err := Open(context.Background(), Spec{
		Name:      "playwright",
		Transport: TransportStreamableHTTP,
		Endpoint:  srv.URL,
	}, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close(context.Background()) })
	return h
}

func TestHandleListTools(t *testing.T) {
	h := openTestHandle(t)

	tools, err := h.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 2)

	byName := map[string]Tool{}
	for _, tool := range tools {
		byName[tool.Name] = tool
	}
	echo, ok := byName["browser_echo"]
	require.True(t, ok)
	assert.Equal(t, "Echo text", echo.Description)
	assert.Equal(t, "object", echo.InputSchema["type"])
	props, ok := echo.InputSchema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "text")
}

func TestHandleCallTool(t *testing.T) {
	h := openTestHandle(t)

	text, isError, err := h.CallTool(context.Background(), "browser_echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.False(t, isError)
	assert.Equal(t, "echo: hi", text)

	text, isError, err = h.CallTool(context.Background(), "browser_fail", map[string]any{"text": "x"})
	require.NoError(t, err)
	assert.True(t, isError)
	assert.Equal(t, "element not found", text)
}

func TestHandleCloseIsIdempotent(t *testing.T) {
	h := openTestHandle(t)
	assert.NoError(t, h.Close(context.Background()))
	assert.NoError(t, h.Close(context.Background()))
}

func TestOpenRequiresEndpoint(t *testing.T) {
	_, err := Open(context.Background(), Spec{Name: "x", Transport: TransportSSE}, nil)
	assert.ErrorContains(t, err, "endpoint is required")

	_, err = Open(context.Background(), Spec{Name: "x", Transport: TransportStdio}, nil)
	assert.ErrorContains(t, err, "command is required")
}

func TestParseTransport(t *testing.T) {
	tests := map[string]Transport{
		"":                TransportStreamableHTTP,
		"http":            TransportStreamableHTTP,
		"Streamable-HTTP": TransportStreamableHTTP,
		"sse":             TransportSSE,
		"stdio":           TransportStdio,
	}
	for in, want := range tests {
		got, err := ParseTransport(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseTransport("carrier-pigeon")
	assert.Error(t, err)

	assert.Equal(t, "/sse", TransportSSE.Path())
	assert.Equal(t, "/mcp", TransportStreamableHTTP.Path())
}

func TestContentText(t *testing.T) {
	res := &mcp.CallToolResult{Content: []mcp.Content{
		&mcp.TextContent{Text: "line one"},
		&mcp.ImageContent{MIMEType: "image/png", Data: []byte{1, 2, 3}},
		&mcp.TextContent{Text: "line two"},
	}}
	assert.Equal(t, "line one\n[image image/png, 3 bytes]\nline two", ContentText(res))
	assert.Equal(t, "", ContentText(nil))
}
