package main

import (
	"context"
	"strings"

	"github.com/entrhq/jobscout/pkg/agent"
	"github.com/entrhq/jobscout/pkg/airtable"
	"github.com/entrhq/jobscout/pkg/browser"
	"github.com/entrhq/jobscout/pkg/llm/openai"
	"github.com/entrhq/jobscout/pkg/llm/tokenizer"
	"github.com/entrhq/jobscout/pkg/mcpconn"
	"github.com/entrhq/jobscout/pkg/orchestrator"
	"github.com/entrhq/jobscout/pkg/prompts"
)

// newAgent builds the agent from the LLM settings.
func (a *app) newAgent() (*agent.Agent, error) {
	llm := a.cfg.LLM
	opts := []openai.ProviderOption{openai.WithModel(llm.Model)}
	if llm.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llm.BaseURL))
	}
	if llm.RequestTimeout > 0 {
		opts = append(opts, openai.WithTimeout(llm.RequestTimeout))
	}
	provider, err := openai.NewProvider(llm.APIKey, opts...)
	if err != nil {
		return nil, err
	}

	return agent.New(provider,
		agent.WithInstructions(prompts.Instructions),
		agent.WithMaxTurns(llm.MaxTurns),
		agent.WithToolTimeout(llm.ToolTimeout),
		agent.WithMaxToolOutputTokens(llm.MaxToolOutputTokens),
		agent.WithTokenizer(tokenizer.NewOrEstimate()),
		agent.WithLogger(a.log.With("agent")),
	), nil
}

// newStore returns the Airtable store, or nil with a warning listing what is
// missing.
func (a *app) newStore() airtable.Store {
	if missing := a.cfg.AirtableMissing(); len(missing) > 0 {
		a.reporter.Warn("Airtable persistence disabled, missing %s", strings.Join(missing, ", "))
		return nil
	}
	store, err := airtable.New(a.cfg.Store(), a.log.With("airtable"))
	if err != nil {
		a.reporter.Warn("Airtable persistence disabled: %v", err)
		return nil
	}
	return store
}

// extraServers returns the Airtable MCP server spec when it is enabled.
func (a *app) extraServers() []mcpconn.Spec {
	at := a.cfg.Airtable
	if !at.MCP {
		return nil
	}
	if at.APIKey == "" {
		a.reporter.Warn("Airtable MCP skipped, AIRTABLE_API_KEY is not set")
		return nil
	}
	return []mcpconn.Spec{{
		Name:      "airtable",
		Transport: mcpconn.TransportStdio,
		Command:   "npx",
		Args:      []string{"-y", at.MCPPackage},
		Env:       map[string]string{"AIRTABLE_API_KEY": at.APIKey},
	}}
}

// newOrchestrator wires the run pipeline.
func (a *app) newOrchestrator(ag orchestrator.Agent, store airtable.Store) *orchestrator.Orchestrator {
	cfg := orchestrator.Config{
		Server:           orchestrator.ServerFromConfig(a.cfg.ServerConfig()),
		Transport:        a.cfg.TransportKind(),
		ToolTimeout:      a.cfg.LLM.ToolTimeout,
		Extra:            a.extraServers(),
		Store:            store,
		StrictPersist:    a.cfg.Run.StrictPersist,
		InterSourceDelay: a.cfg.Run.InterSourceDelay,
	}
	if a.cfg.ToolServer.InstallBrowsers {
		opts := browser.Options{Browser: a.cfg.ToolServer.Browser, Output: a.log.Writer()}
		cfg.Preflight = func(ctx context.Context) error {
			return browser.Preflight(ctx, opts, a.log.With("browser"))
		}
	}
	return orchestrator.New(cfg, ag, a.log.With("orchestrator"), orchestrator.WithEventSink(a.reporter))
}

// taskFor renders the scrape task for one source.
func (a *app) taskFor(count int) orchestrator.TaskFunc {
	return func(source string) (string, error) {
		return prompts.Task(prompts.TaskData{
			SourceURL: source,
			Count:     count,
			BaseID:    a.cfg.Airtable.BaseID,
			TableID:   a.cfg.Airtable.TableID,
		})
	}
}

// report shows the outcome of one run.
func (a *app) report(res *orchestrator.Result) {
	if res == nil {
		return
	}
	if res.FinalOutput != "" {
		a.reporter.FinalOutput(res.FinalOutput)
	}
	if len(res.Records) > 0 {
		if err := a.reporter.Records(res.Records); err != nil {
			a.log.Warnf("render records: %v", err)
		}
	}
	switch {
	case res.ParseErr != nil:
		a.reporter.Warn("no records extracted: %v", res.ParseErr)
	case res.PersistErr != nil:
		a.reporter.Warn("records not stored: %v", res.PersistErr)
	case len(res.Created) > 0:
		a.reporter.Info("stored %d records in Airtable", len(res.Created))
	}
	if res.Agent != nil {
		u := res.Agent.Usage
		a.reporter.Info("%d turns, %d tool calls, %d tokens", res.Agent.Turns, res.Agent.ToolCalls, u.TotalTokens)
	}
}
