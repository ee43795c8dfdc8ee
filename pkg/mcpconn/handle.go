// Package mcpconn opens Model Context Protocol client sessions to tool
// servers and exposes their tools to the agent loop.
//
// A Handle wraps one go-sdk ClientSession. Handles are only opened against
// endpoints that already answered a readiness probe and are closed before the
// server behind them is stopped.
package mcpconn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/entrhq/jobscout/pkg/logging"
)

const (
	// DefaultCloseTimeout bounds Close before the session is abandoned.
	DefaultCloseTimeout = 5 * time.Second

	// DefaultToolTimeout bounds a single CallTool.
	DefaultToolTimeout = 120 * time.Second

	clientName    = "jobscout"
	clientVersion = "0.1.0"
)

// Transport selects how a Handle reaches its server.
type Transport int

const (
	TransportStreamableHTTP Transport = iota
	TransportSSE
	TransportStdio
)

func (t Transport) String() string {
	switch t {
	case TransportStreamableHTTP:
		return "streamable-http"
	case TransportSSE:
		return "sse"
	case TransportStdio:
		return "stdio"
	default:
		return fmt.Sprintf("transport(%d)", int(t))
	}
}

// Path returns the conventional endpoint path for network transports.
func (t Transport) Path() string {
	if t == TransportSSE {
		return "/sse"
	}
	return "/mcp"
}

// ParseTransport accepts "streamable-http" (or "http"), "sse" and "stdio".
func ParseTransport(s string) (Transport, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "http", "streamable-http", "streamable_http", "streamable":
		return TransportStreamableHTTP, nil
	case "sse":
		return TransportSSE, nil
	case "stdio":
		return TransportStdio, nil
	default:
		return 0, fmt.Errorf("unknown MCP transport %q", s)
	}
}

// Spec describes one session to open.
type Spec struct {
	Name      string
	Transport Transport

	// Endpoint is used by the network transports.
	Endpoint   string
	HTTPClient *http.Client

	// Command, Args and Env are used by TransportStdio; the SDK owns the process.
	Command string
	Args    []string
	Env     map[string]string

	CloseTimeout time.Duration
	ToolTimeout  time.Duration
}

// Tool is a tool advertised by a server.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Handle is an open session.
type Handle struct {
	spec    Spec
	log     *logging.Logger
	session *mcp.ClientSession

	closeOnce sync.Once
	closeErr  error
}

// Open connects to the server described by spec.
func Open(ctx context.Context, spec Spec, log *logging.Logger) (*Handle, error) {
	if log == nil {
		log = logging.Nop()
	}
	if spec.Name == "" {
		spec.Name = "mcp"
	}
	if spec.CloseTimeout <= 0 {
		spec.CloseTimeout = DefaultCloseTimeout
	}
	if spec.ToolTimeout <= 0 {
		spec.ToolTimeout = DefaultToolTimeout
	}

	transport, err := newTransport(spec)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", spec.Name, err)
	}
	return connect(ctx, spec, transport, log)
}

func connect(ctx context.Context, spec Spec, transport mcp.Transport, log *logging.Logger) (*Handle, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: clientName, Version: clientVersion}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s over %s: %w", spec.Name, spec.Transport, err)
	}
	h := &Handle{spec: spec, log: log.With(spec.Name), session: session}
	h.log.Infof("session open (%s %s)", spec.Transport, h.target())
	return h, nil
}

func newTransport(spec Spec) (mcp.Transport, error) {
	switch spec.Transport {
	case TransportStreamableHTTP:
		if spec.Endpoint == "" {
			return nil, errors.New("endpoint is required")
		}
		return &mcp.StreamableClientTransport{Endpoint: spec.Endpoint, HTTPClient: spec.HTTPClient}, nil
	case TransportSSE:
		if spec.Endpoint == "" {
			return nil, errors.New("endpoint is required")
		}
		return &mcp.SSEClientTransport{Endpoint: spec.Endpoint, HTTPClient: spec.HTTPClient}, nil
	case TransportStdio:
		if spec.Command == "" {
			return nil, errors.New("command is required")
		}
		cmd := exec.Command(spec.Command, spec.Args...)
		cmd.Env = os.Environ()
		for k, v := range spec.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		return &mcp.CommandTransport{Command: cmd}, nil
	default:
		return nil, fmt.Errorf("unsupported transport %s", spec.Transport)
	}
}

func (h *Handle) target() string {
	if h.spec.Transport == TransportStdio {
		return h.spec.Command
	}
	return h.spec.Endpoint
}

// Name returns the handle name.
func (h *Handle) Name() string { return h.spec.Name }

// ListTools returns every tool the server advertises, following pagination.
func (h *Handle) ListTools(ctx context.Context) ([]Tool, error) {
	var (
		tools  []Tool
		cursor string
	)
	for {
		res, err := h.session.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("%s: list tools: %w", h.spec.Name, err)
		}
		for _, t := range res.Tools {
			schema, err := schemaMap(t.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("%s: tool %s: %w", h.spec.Name, t.Name, err)
			}
			tools = append(tools, Tool{Name: t.Name, Description: t.Description, InputSchema: schema})
		}
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}
	h.log.Debugf("%d tools listed", len(tools))
	return tools, nil
}

// CallTool invokes a tool and flattens its content to text. isError reports a
// tool-level failure, which the agent sees as output rather than an error.
func (h *Handle) CallTool(ctx context.Context, name string, args map[string]any) (text string, isError bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, h.spec.ToolTimeout)
	defer cancel()

	if args == nil {
		args = map[string]any{}
	}
	res, err := h.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", false, fmt.Errorf("%s: call %s: %w", h.spec.Name, name, err)
	}
	return ContentText(res), res.IsError, nil
}

// Close closes the session. If the server does not acknowledge within the
// close timeout the session is abandoned and an error returned. Close is
// idempotent.
func (h *Handle) Close(ctx context.Context) error {
	h.closeOnce.Do(func() {
		done := make(chan error, 1)
		go func() { done <- h.session.Close() }()

		timer := time.NewTimer(h.spec.CloseTimeout)
		defer timer.Stop()
		select {
		case err := <-done:
			if err != nil {
				h.closeErr = fmt.Errorf("%s: close: %w", h.spec.Name, err)
			}
		case <-timer.C:
			h.closeErr = fmt.Errorf("%s: close timed out after %s, session abandoned", h.spec.Name, h.spec.CloseTimeout)
		case <-ctx.Done():
			h.closeErr = fmt.Errorf("%s: close abandoned: %w", h.spec.Name, ctx.Err())
		}
		if h.closeErr != nil {
			h.log.Warnf("%v", h.closeErr)
		} else {
			h.log.Infof("session closed")
		}
	})
	return h.closeErr
}

// ContentText joins the textual parts of a tool result.
func ContentText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}
	var parts []string
	for _, c := range res.Content {
		switch v := c.(type) {
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[image %s, %d bytes]", v.MIMEType, len(v.Data)))
		default:
			if b, err := json.Marshal(c); err == nil {
				parts = append(parts, string(b))
			}
		}
	}
	if len(parts) == 0 && res.StructuredContent != nil {
		if b, err := json.Marshal(res.StructuredContent); err == nil {
			parts = append(parts, string(b))
		}
	}
	return strings.Join(parts, "\n")
}

func schemaMap(schema any) (map[string]any, error) {
	if schema == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode input schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode input schema: %w", err)
	}
	if out == nil {
		out = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return out, nil
}
