package orchestrator

import (
	"context"
	"fmt"

	"github.com/entrhq/jobscout/pkg/logging"
	"github.com/entrhq/jobscout/pkg/mcpconn"
	"github.com/entrhq/jobscout/pkg/toolserver"
)

// ToolServer is where the browser tools come from. It is either an
// ExternalEndpoint or a ManagedProcess.
type ToolServer interface {
	toolServer()
	config() toolserver.ServerConfig
	managerOptions() []toolserver.Option
}

// ExternalEndpoint is a server someone else runs. It is never spawned or
// stopped.
type ExternalEndpoint struct {
	URL string
}

func (ExternalEndpoint) toolServer() {}

func (e ExternalEndpoint) config() toolserver.ServerConfig {
	return toolserver.ServerConfig{Name: "playwright", ExternalURL: e.URL}
}

func (ExternalEndpoint) managerOptions() []toolserver.Option { return nil }

// ManagedProcess is a server spawned for the duration of one run.
type ManagedProcess struct {
	Config  toolserver.ServerConfig
	Options []toolserver.Option
}

func (ManagedProcess) toolServer() {}

func (m ManagedProcess) config() toolserver.ServerConfig { return m.Config }

func (m ManagedProcess) managerOptions() []toolserver.Option { return m.Options }

// ServerFromConfig picks the variant for cfg.
func ServerFromConfig(cfg toolserver.ServerConfig) ToolServer {
	if cfg.IsExternal() {
		return ExternalEndpoint{URL: cfg.ExternalURL}
	}
	return ManagedProcess{Config: cfg}
}

// serverResource owns the tool server for one run.
type serverResource struct {
	mgr *toolserver.Manager
}

func newServerResource(ts ToolServer, log *logging.Logger) *serverResource {
	return &serverResource{mgr: toolserver.NewManager(ts.config(), log, ts.managerOptions()...)}
}

func (r *serverResource) Name() string { return "tool server " + r.mgr.Config().Name }

func (r *serverResource) Acquire(ctx context.Context) error {
	_, err := r.mgr.Start(ctx)
	return err
}

// Release stops the server. Shutdown problems are logged by the manager and
// never fail the release.
func (r *serverResource) Release(ctx context.Context) error {
	r.mgr.Stop(ctx)
	return nil
}

func (r *serverResource) endpoint() string { return r.mgr.Endpoint() }

// Conn is an open tool server session.
type Conn interface {
	mcpconn.Caller
	Close(ctx context.Context) error
}

// Connector opens a session for spec.
type Connector func(ctx context.Context, spec mcpconn.Spec, log *logging.Logger) (Conn, error)

// DefaultConnector opens an MCP client session.
func DefaultConnector(ctx context.Context, spec mcpconn.Spec, log *logging.Logger) (Conn, error) {
	h, err := mcpconn.Open(ctx, spec, log)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// connResource holds one session. The endpoint is resolved on Acquire so
// that a connection can follow the server it depends on.
type connResource struct {
	spec     mcpconn.Spec
	endpoint func() string
	connect  Connector
	log      *logging.Logger
	conn     Conn
}

func (r *connResource) Name() string { return "connection " + r.spec.Name }

func (r *connResource) Acquire(ctx context.Context) error {
	spec := r.spec
	if r.endpoint != nil {
		spec.Endpoint = r.endpoint()
	}
	conn, err := r.connect(ctx, spec, r.log)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", spec.Name, err)
	}
	r.conn = conn
	return nil
}

func (r *connResource) Release(ctx context.Context) error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close(ctx)
}
