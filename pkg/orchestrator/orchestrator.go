// Package orchestrator runs one scraping task end to end: it brings up the
// tool server and its connections, drives the agent, tears everything down
// in reverse order, then extracts and stores the records the agent returned.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/jobscout/pkg/agent"
	"github.com/entrhq/jobscout/pkg/airtable"
	"github.com/entrhq/jobscout/pkg/lifecycle"
	"github.com/entrhq/jobscout/pkg/logging"
	"github.com/entrhq/jobscout/pkg/mcpconn"
	"github.com/entrhq/jobscout/pkg/records"
	"github.com/entrhq/jobscout/pkg/types"
)

// DefaultReleaseTimeout bounds teardown of one run.
const DefaultReleaseTimeout = 60 * time.Second

// Agent runs a task against a set of tools.
type Agent interface {
	Run(ctx context.Context, tools agent.Tools, task string, events chan<- *types.AgentEvent) (*agent.Result, error)
}

// EventSink receives agent events for display.
type EventSink interface {
	Handle(ev *types.AgentEvent)
}

// Config describes what a run brings up and where results go.
type Config struct {
	Server    ToolServer
	Transport mcpconn.Transport

	// ToolTimeout bounds each call on the browser connection.
	ToolTimeout time.Duration

	// Extra are additional sessions, such as the Airtable MCP server over
	// stdio. They are opened after the browser connection.
	Extra []mcpconn.Spec

	// Store persists extracted records. Nil disables persistence.
	Store airtable.Store

	// StrictPersist turns store failures into run errors. Output that cannot
	// be parsed never fails a run.
	StrictPersist bool

	// Preflight runs before a managed server is spawned.
	Preflight func(ctx context.Context) error

	InterSourceDelay time.Duration
	ReleaseTimeout   time.Duration
}

// Result is the outcome of one run.
type Result struct {
	Source      string
	FinalOutput string
	Agent       *agent.Result
	Records     []records.Record
	Created     []records.Record

	// ParseErr is set when the final output held malformed JSON. PersistErr
	// is set when the store rejected the records.
	ParseErr   error
	PersistErr error
	// TeardownErr collects release failures. It never fails the run.
	TeardownErr error
}

// Orchestrator runs tasks.
type Orchestrator struct {
	cfg     Config
	agent   Agent
	log     *logging.Logger
	sink    EventSink
	connect Connector
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEventSink forwards agent events to sink.
func WithEventSink(sink EventSink) Option {
	return func(o *Orchestrator) { o.sink = sink }
}

// WithConnector replaces how tool server sessions are opened.
func WithConnector(c Connector) Option {
	return func(o *Orchestrator) { o.connect = c }
}

// New creates an Orchestrator.
func New(cfg Config, ag Agent, log *logging.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = logging.Nop()
	}
	if cfg.ReleaseTimeout <= 0 {
		cfg.ReleaseTimeout = DefaultReleaseTimeout
	}
	o := &Orchestrator{
		cfg:     cfg,
		agent:   ag,
		log:     log,
		connect: DefaultConnector,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes task once. Startup and agent errors are returned after
// teardown has finished.
func (o *Orchestrator) Run(ctx context.Context, task string) (*Result, error) {
	if o.cfg.Server == nil {
		return nil, errors.New("no tool server configured")
	}
	res := &Result{}

	if _, managed := o.cfg.Server.(ManagedProcess); managed && o.cfg.Preflight != nil {
		if err := o.cfg.Preflight(ctx); err != nil {
			return res, fmt.Errorf("preflight: %w", err)
		}
	}

	stack := lifecycle.NewStack(o.log.With("lifecycle"), o.cfg.ReleaseTimeout)
	conns, err := o.acquire(ctx, stack)
	if err == nil {
		err = o.drive(ctx, conns, task, res)
	}
	res.TeardownErr = stack.Release(ctx)
	if res.TeardownErr != nil {
		o.log.Warnf("teardown: %v", res.TeardownErr)
	}
	if err != nil {
		return res, err
	}

	return res, o.collect(ctx, res)
}

// acquire brings up the server and every connection, in order.
func (o *Orchestrator) acquire(ctx context.Context, stack *lifecycle.Stack) ([]mcpconn.Caller, error) {
	server := newServerResource(o.cfg.Server, o.log.With("toolserver"))
	if err := stack.Acquire(ctx, server); err != nil {
		return nil, err
	}

	browser := &connResource{
		spec: mcpconn.Spec{
			Name:        "playwright",
			Transport:   o.cfg.Transport,
			ToolTimeout: o.cfg.ToolTimeout,
		},
		endpoint: server.endpoint,
		connect:  o.connect,
		log:      o.log.With("mcp"),
	}
	resources := []*connResource{browser}
	for _, spec := range o.cfg.Extra {
		resources = append(resources, &connResource{spec: spec, connect: o.connect, log: o.log.With("mcp")})
	}

	callers := make([]mcpconn.Caller, 0, len(resources))
	for _, r := range resources {
		if err := stack.Acquire(ctx, r); err != nil {
			return nil, err
		}
		callers = append(callers, r.conn)
	}
	return callers, nil
}

// drive runs the agent with events forwarded to the sink.
func (o *Orchestrator) drive(ctx context.Context, conns []mcpconn.Caller, task string, res *Result) error {
	tools, err := mcpconn.NewToolset(ctx, conns...)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	o.log.Infof("agent has %d tools", len(tools.Tools()))

	var (
		events chan *types.AgentEvent
		wg     sync.WaitGroup
	)
	if o.sink != nil {
		events = make(chan *types.AgentEvent, 64)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range events {
				o.sink.Handle(ev)
			}
		}()
	}

	ares, err := o.agent.Run(ctx, tools, task, events)
	if events != nil {
		close(events)
		wg.Wait()
	}
	res.Agent = ares
	if ares != nil {
		res.FinalOutput = ares.FinalOutput
	}
	return err
}

// collect extracts records from the final output and stores them.
func (o *Orchestrator) collect(ctx context.Context, res *Result) error {
	recs, err := records.Extract(res.FinalOutput)
	if err != nil {
		res.ParseErr = err
		o.log.Warnf("no records in final output: %v", err)
		return nil
	}
	res.Records = recs
	o.log.Infof("extracted %d records", len(recs))

	if o.cfg.Store == nil || len(recs) == 0 {
		return nil
	}
	created, err := o.cfg.Store.CreateRecords(ctx, recs)
	res.Created = created
	if err != nil {
		res.PersistErr = err
		o.log.Errorf("store records: %v", err)
		if o.cfg.StrictPersist {
			return fmt.Errorf("store records: %w", err)
		}
		return nil
	}
	o.log.Infof("stored %d records", len(created))
	return nil
}
