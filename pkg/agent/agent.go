// Package agent runs the function-calling loop that drives a browser through
// MCP tools until the model produces a final answer.
//
//	ag := agent.New(provider,
//	    agent.WithInstructions(prompts.Instructions()),
//	    agent.WithMaxTurns(25),
//	)
//	result, err := ag.Run(ctx, toolset, task, events)
//
// Each turn sends the conversation to the model, executes every tool call it
// requests through the Tools collaborator, and appends the results. The run
// ends when the model answers without tool calls. Progress is reported as
// types.AgentEvent values on the events channel; they are informational and
// never change the course of the run.
package agent

import (
	"context"
	"time"

	"github.com/entrhq/jobscout/pkg/llm"
	"github.com/entrhq/jobscout/pkg/llm/tokenizer"
	"github.com/entrhq/jobscout/pkg/logging"
	"github.com/entrhq/jobscout/pkg/mcpconn"
	"github.com/entrhq/jobscout/pkg/types"
)

const (
	DefaultName                 = "Job Scout"
	DefaultMaxTurns             = 25
	DefaultToolTimeout          = 120 * time.Second
	DefaultMaxToolOutputTokens  = 8000
	DefaultMaxConsecutiveErrors = 5
)

// Tools is what the loop needs from the connected tool servers.
type Tools interface {
	Tools() []mcpconn.Tool
	CallTool(ctx context.Context, name string, args map[string]any) (string, bool, error)
}

// Result summarizes a finished run.
type Result struct {
	FinalOutput string
	Turns       int
	ToolCalls   int
	Usage       types.TokenUsage
}

// Agent holds the loop configuration. It keeps no per-run state, so one
// Agent can run several tasks one after another.
type Agent struct {
	name                 string
	instructions         string
	provider             llm.Provider
	maxTurns             int
	toolTimeout          time.Duration
	maxToolOutputTokens  int
	maxConsecutiveErrors int
	temperature          *float64
	tokenizer            *tokenizer.Tokenizer
	log                  *logging.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithName sets the name reported in agent_updated events.
func WithName(name string) Option {
	return func(a *Agent) { a.name = name }
}

// WithInstructions sets the system prompt.
func WithInstructions(instructions string) Option {
	return func(a *Agent) { a.instructions = instructions }
}

// WithMaxTurns caps the number of model calls.
func WithMaxTurns(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxTurns = n
		}
	}
}

// WithToolTimeout bounds each tool call.
func WithToolTimeout(d time.Duration) Option {
	return func(a *Agent) {
		if d > 0 {
			a.toolTimeout = d
		}
	}
}

// WithMaxToolOutputTokens truncates tool output fed back to the model.
// Zero disables truncation.
func WithMaxToolOutputTokens(n int) Option {
	return func(a *Agent) { a.maxToolOutputTokens = n }
}

// WithMaxConsecutiveErrors ends the run after n failed tool calls in a row.
func WithMaxConsecutiveErrors(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxConsecutiveErrors = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(a *Agent) { a.temperature = &t }
}

// WithTokenizer replaces the tokenizer used for truncation.
func WithTokenizer(t *tokenizer.Tokenizer) Option {
	return func(a *Agent) { a.tokenizer = t }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(a *Agent) { a.log = l }
}

// New creates an Agent.
func New(provider llm.Provider, opts ...Option) *Agent {
	a := &Agent{
		name:                 DefaultName,
		provider:             provider,
		maxTurns:             DefaultMaxTurns,
		toolTimeout:          DefaultToolTimeout,
		maxToolOutputTokens:  DefaultMaxToolOutputTokens,
		maxConsecutiveErrors: DefaultMaxConsecutiveErrors,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logging.Nop()
	}
	if a.tokenizer == nil {
		a.tokenizer = tokenizer.NewOrEstimate()
	}
	return a
}

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// emit delivers an event unless the consumer is gone. A nil channel drops events.
func emit(ctx context.Context, events chan<- *types.AgentEvent, ev *types.AgentEvent) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}
