package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/jobscout/pkg/agent"
	"github.com/entrhq/jobscout/pkg/logging"
	"github.com/entrhq/jobscout/pkg/mcpconn"
	"github.com/entrhq/jobscout/pkg/records"
	"github.com/entrhq/jobscout/pkg/types"
)

// journal records lifecycle steps across fakes.
type journal struct {
	mu    sync.Mutex
	steps []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	j.steps = append(j.steps, s)
	j.mu.Unlock()
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.steps...)
}

type fakeConn struct {
	name     string
	j        *journal
	closeErr error
}

func (c *fakeConn) Name() string { return c.name }

func (c *fakeConn) ListTools(context.Context) ([]mcpconn.Tool, error) {
	return []mcpconn.Tool{{Name: "navigate", InputSchema: map[string]any{"type": "object"}}}, nil
}

func (c *fakeConn) CallTool(context.Context, string, map[string]any) (string, bool, error) {
	return "ok", false, nil
}

func (c *fakeConn) Close(context.Context) error {
	c.j.add("close " + c.name)
	return c.closeErr
}

func fakeConnector(j *journal, specs *[]mcpconn.Spec) Connector {
	return func(_ context.Context, spec mcpconn.Spec, _ *logging.Logger) (Conn, error) {
		j.add("open " + spec.Name)
		if specs != nil {
			*specs = append(*specs, spec)
		}
		return &fakeConn{name: spec.Name, j: j}, nil
	}
}

type fakeAgent struct {
	j      *journal
	output string
	err    error
	tools  []string
}

func (a *fakeAgent) Run(ctx context.Context, tools agent.Tools, task string, events chan<- *types.AgentEvent) (*agent.Result, error) {
	a.j.add("agent " + task)
	for _, t := range tools.Tools() {
		a.tools = append(a.tools, t.Name)
	}
	if events != nil {
		events <- types.NewMessageEvent(1, "working")
	}
	if a.err != nil {
		return &agent.Result{Turns: 1}, &agent.AgentLoopError{Turn: 1, Err: a.err}
	}
	return &agent.Result{FinalOutput: a.output, Turns: 1}, nil
}

type fakeStore struct {
	created []records.Record
	err     error
}

func (s *fakeStore) CreateRecords(_ context.Context, recs []records.Record) ([]records.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, recs...)
	return recs, nil
}

func (s *fakeStore) ListRecords(context.Context, string) ([]records.Record, error) {
	return nil, nil
}

type sinkFunc func(*types.AgentEvent)

func (f sinkFunc) Handle(ev *types.AgentEvent) { f(ev) }

const external = "http://127.0.0.1:8931/mcp"

func TestRunExternalEndpoint(t *testing.T) {
	j := &journal{}
	var specs []mcpconn.Spec
	store := &fakeStore{}
	ag := &fakeAgent{j: j, output: `Done ✅ [{"Company":"Acme","Position":"Go dev"},{"fields":{"Company":"Beta"}}]`}

	var seen []types.AgentEventType
	o := New(Config{
		Server:    ExternalEndpoint{URL: external},
		Transport: mcpconn.TransportSSE,
		Store:     store,
	}, ag, nil,
		WithConnector(fakeConnector(j, &specs)),
		WithEventSink(sinkFunc(func(ev *types.AgentEvent) { seen = append(seen, ev.Type) })),
	)

	res, err := o.Run(context.Background(), "scrape")
	require.NoError(t, err)

	require.Len(t, specs, 1)
	assert.Equal(t, external, specs[0].Endpoint)
	assert.Equal(t, mcpconn.TransportSSE, specs[0].Transport)

	assert.Equal(t, []string{"open playwright", "agent scrape", "close playwright"}, j.all())
	assert.Equal(t, []string{"navigate"}, ag.tools)
	assert.Equal(t, []types.AgentEventType{types.EventTypeMessage}, seen)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "Beta", res.Records[1].Text("Company"))
	assert.Len(t, store.created, 2)
	assert.Len(t, res.Created, 2)
	assert.NoError(t, res.ParseErr)
	assert.NoError(t, res.TeardownErr)
}

func TestRunExtraConnectionsCloseInReverse(t *testing.T) {
	j := &journal{}
	ag := &fakeAgent{j: j, output: "[]"}
	o := New(Config{
		Server: ExternalEndpoint{URL: external},
		Extra:  []mcpconn.Spec{{Name: "airtable", Transport: mcpconn.TransportStdio, Command: "npx"}},
	}, ag, nil, WithConnector(fakeConnector(j, nil)))

	_, err := o.Run(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"open playwright", "open airtable", "agent t", "close airtable", "close playwright",
	}, j.all())
	assert.ElementsMatch(t, []string{"playwright_navigate", "airtable_navigate"}, ag.tools)
}

func TestRunAgentFailureStillTearsDown(t *testing.T) {
	j := &journal{}
	store := &fakeStore{}
	ag := &fakeAgent{j: j, err: agent.ErrMaxTurns}
	o := New(Config{Server: ExternalEndpoint{URL: external}, Store: store}, ag, nil, WithConnector(fakeConnector(j, nil)))

	res, err := o.Run(context.Background(), "t")
	require.Error(t, err)
	var loopErr *agent.AgentLoopError
	assert.ErrorAs(t, err, &loopErr)
	assert.ErrorIs(t, err, agent.ErrMaxTurns)

	assert.Equal(t, []string{"open playwright", "agent t", "close playwright"}, j.all())
	assert.Empty(t, store.created)
	assert.Empty(t, res.Records)
}

func TestRunConnectFailureReleasesServer(t *testing.T) {
	boom := errors.New("refused")
	ag := &fakeAgent{j: &journal{}}
	o := New(Config{Server: ExternalEndpoint{URL: external}}, ag, nil,
		WithConnector(func(context.Context, mcpconn.Spec, *logging.Logger) (Conn, error) { return nil, boom }))

	_, err := o.Run(context.Background(), "t")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, ag.j.all(), "agent never runs")
}

func TestRunTeardownErrorIsNotFatal(t *testing.T) {
	j := &journal{}
	ag := &fakeAgent{j: j, output: `[{"a":1}]`}
	o := New(Config{Server: ExternalEndpoint{URL: external}}, ag, nil,
		WithConnector(func(_ context.Context, spec mcpconn.Spec, _ *logging.Logger) (Conn, error) {
			return &fakeConn{name: spec.Name, j: j, closeErr: errors.New("close timed out")}, nil
		}))

	res, err := o.Run(context.Background(), "t")
	require.NoError(t, err)
	require.Error(t, res.TeardownErr)
	assert.Contains(t, res.TeardownErr.Error(), "close timed out")
	assert.Len(t, res.Records, 1)
}

func TestRunParseFailureIsNeverFatal(t *testing.T) {
	j := &journal{}
	store := &fakeStore{}
	ag := &fakeAgent{j: j, output: `Here you go: [{"Company": "Acme",}]`}
	cfg := Config{Server: ExternalEndpoint{URL: external}, Store: store}

	res, err := New(cfg, ag, nil, WithConnector(fakeConnector(j, nil))).Run(context.Background(), "t")
	require.NoError(t, err)
	assert.ErrorIs(t, res.ParseErr, records.ErrNoPayload)
	assert.Empty(t, store.created)

	cfg.StrictPersist = true
	res, err = New(cfg, ag, nil, WithConnector(fakeConnector(j, nil))).Run(context.Background(), "t")
	require.NoError(t, err)
	assert.ErrorIs(t, res.ParseErr, records.ErrNoPayload)
	assert.Empty(t, store.created)
}

func TestRunNoOffersFoundInStrictMode(t *testing.T) {
	j := &journal{}
	store := &fakeStore{}
	ag := &fakeAgent{j: j, output: "No offers found."}
	cfg := Config{Server: ExternalEndpoint{URL: external}, Store: store, StrictPersist: true}

	res, err := New(cfg, ag, nil, WithConnector(fakeConnector(j, nil))).Run(context.Background(), "t")
	require.NoError(t, err)
	assert.NoError(t, res.ParseErr)
	assert.Empty(t, res.Records)
	assert.Empty(t, store.created)
}

func TestRunPersistFailure(t *testing.T) {
	j := &journal{}
	store := &fakeStore{err: errors.New("422 invalid field")}
	ag := &fakeAgent{j: j, output: `[{"Company":"Acme"}]`}
	cfg := Config{Server: ExternalEndpoint{URL: external}, Store: store}

	res, err := New(cfg, ag, nil, WithConnector(fakeConnector(j, nil))).Run(context.Background(), "t")
	require.NoError(t, err)
	assert.Error(t, res.PersistErr)
	assert.Len(t, res.Records, 1)

	cfg.StrictPersist = true
	_, err = New(cfg, ag, nil, WithConnector(fakeConnector(j, nil))).Run(context.Background(), "t")
	assert.ErrorContains(t, err, "422 invalid field")
}

func TestRunPreflightOnlyForManagedServers(t *testing.T) {
	j := &journal{}
	called := false
	cfg := Config{
		Server:    ExternalEndpoint{URL: external},
		Preflight: func(context.Context) error { called = true; return errors.New("no browser") },
	}
	_, err := New(cfg, &fakeAgent{j: j, output: "[]"}, nil, WithConnector(fakeConnector(j, nil))).Run(context.Background(), "t")
	require.NoError(t, err)
	assert.False(t, called)
}

func TestRunWithoutServer(t *testing.T) {
	_, err := New(Config{}, &fakeAgent{j: &journal{}}, nil).Run(context.Background(), "t")
	assert.Error(t, err)
}

func TestRunSources(t *testing.T) {
	j := &journal{}
	ag := &fakeAgent{j: j, output: `[{"Company":"Acme"}]`}
	o := New(Config{Server: ExternalEndpoint{URL: external}, InterSourceDelay: 10 * time.Millisecond}, ag, nil,
		WithConnector(fakeConnector(j, nil)))

	summary, err := o.RunSources(context.Background(), []string{"https://a", "bad", "https://b"}, func(src string) (string, error) {
		if src == "bad" {
			return "", errors.New("not a url")
		}
		return "scrape " + src, nil
	})
	require.NoError(t, err)
	require.Len(t, summary.Sources, 3)
	assert.Equal(t, 2, summary.Succeeded())
	assert.Equal(t, 1, summary.Failed())
	assert.Equal(t, 2, summary.Records())
	assert.Equal(t, "https://b", summary.Sources[2].Result.Source)
	assert.ErrorContains(t, summary.Err(), "bad: build task: not a url")

	assert.Equal(t, []string{
		"open playwright", "agent scrape https://a", "close playwright",
		"open playwright", "agent scrape https://b", "close playwright",
	}, j.all())
}

func TestRunSourcesStopsOnCancel(t *testing.T) {
	j := &journal{}
	ag := &fakeAgent{j: j, output: "[]"}
	o := New(Config{Server: ExternalEndpoint{URL: external}, InterSourceDelay: time.Minute}, ag, nil,
		WithConnector(fakeConnector(j, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	summary, err := o.RunSources(ctx, []string{"https://a", "https://b"}, func(src string) (string, error) { return src, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, summary.Sources, 1)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestServerFromConfig(t *testing.T) {
	cfg := ManagedProcess{}.Config
	cfg.Command = "npx"
	_, managed := ServerFromConfig(cfg).(ManagedProcess)
	assert.True(t, managed)

	cfg.ExternalURL = external
	ext, ok := ServerFromConfig(cfg).(ExternalEndpoint)
	require.True(t, ok)
	assert.Equal(t, external, ext.URL)
}
