// Package console renders a run for a human: titled panels for the task,
// agent messages, tool calls and the final output, and one-line progress
// for everything else.
package console

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/entrhq/jobscout/pkg/records"
	"github.com/entrhq/jobscout/pkg/types"
)

const (
	defaultWidth   = 100
	previewRunes   = 240
	argumentsRunes = 400
)

// Reporter writes panels and progress lines to a writer. It is safe for
// concurrent use.
type Reporter struct {
	mu      sync.Mutex
	w       io.Writer
	color   bool
	verbose bool
	width   int
	theme   theme
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithColor forces color on or off.
func WithColor(on bool) Option {
	return func(r *Reporter) { r.color = on }
}

// WithVerbose also prints model calls, token usage and tool output previews.
func WithVerbose(on bool) Option {
	return func(r *Reporter) { r.verbose = on }
}

// WithWidth sets the panel width. Zero disables wrapping.
func WithWidth(width int) Option {
	return func(r *Reporter) { r.width = width }
}

// New creates a Reporter. Color is on unless NO_COLOR is set.
func New(w io.Writer, opts ...Option) *Reporter {
	_, noColor := os.LookupEnv("NO_COLOR")
	r := &Reporter{w: w, color: !noColor, width: defaultWidth}
	for _, opt := range opts {
		opt(r)
	}
	r.theme = newTheme(r.color)
	return r
}

// Color reports whether output is colored.
func (r *Reporter) Color() bool { return r.color }

// Panel writes body in a bordered box titled title.
func (r *Reporter) Panel(kind Kind, title, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panel(kind, title, body)
}

func (r *Reporter) panel(kind Kind, title, body string) {
	content := r.theme.title[kind].Render(title)
	if body = strings.TrimRight(body, "\n"); body != "" {
		content += "\n" + r.theme.body.Render(body)
	}
	style := r.theme.border[kind]
	if r.width > 0 {
		style = style.Width(r.width)
	}
	fmt.Fprintln(r.w, style.Render(content))
}

func (r *Reporter) line(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, format+"\n", args...)
}

// User shows the task sent to the agent.
func (r *Reporter) User(task string) { r.Panel(KindUser, "User", task) }

// Agent shows a message from the model.
func (r *Reporter) Agent(text string) { r.Panel(KindAgent, "Agent", text) }

// FinalOutput shows the final answer of a run.
func (r *Reporter) FinalOutput(text string) { r.Panel(KindFinal, "Final Output", text) }

// Fatal shows the error that ended the program.
func (r *Reporter) Fatal(err error) { r.Panel(KindFatal, "Fatal Error", err.Error()) }

// Info writes a muted progress line.
func (r *Reporter) Info(format string, args ...any) {
	r.line("%s", r.theme.muted.Render(fmt.Sprintf(format, args...)))
}

// Warn writes a highlighted warning line.
func (r *Reporter) Warn(format string, args ...any) {
	r.line("%s %s", r.theme.bad.Render("warning:"), fmt.Sprintf(format, args...))
}

// Records pretty-prints extracted records.
func (r *Reporter) Records(recs []records.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return records.Render(r.w, recs, records.RenderOptions{Color: r.color})
}

// Consume renders events until the channel is closed.
func (r *Reporter) Consume(events <-chan *types.AgentEvent) {
	for ev := range events {
		r.Handle(ev)
	}
}

// Handle renders one agent event.
func (r *Reporter) Handle(ev *types.AgentEvent) {
	if ev == nil {
		return
	}
	switch ev.Type {
	case types.EventTypeAgentUpdated:
		r.Info("agent: %s", ev.Content)
	case types.EventTypeAPICallStart:
		if r.verbose {
			model, _ := ev.Metadata["model"].(string)
			r.Info("turn %d: calling %s", ev.Turn, model)
		}
	case types.EventTypeAPICallEnd:
	case types.EventTypeTokenUsage:
		if r.verbose && ev.TokenUsage != nil {
			r.Info("turn %d: %d prompt + %d completion tokens", ev.Turn, ev.TokenUsage.PromptTokens, ev.TokenUsage.CompletionTokens)
		}
	case types.EventTypeToolCall:
		r.Panel(KindTool, "Tool: "+ev.ToolName, formatArguments(ev.ToolInput))
	case types.EventTypeToolResult:
		if r.verbose {
			r.line("%s %s", r.theme.ok.Render("✓ "+ev.ToolName), preview(ev.ToolOutput, previewRunes))
		} else {
			r.line("%s", r.theme.ok.Render("✓ "+ev.ToolName))
		}
	case types.EventTypeToolResultError:
		r.line("%s %v", r.theme.bad.Render("✗ "+ev.ToolName), ev.Error)
	case types.EventTypeMessage:
		r.Agent(ev.Content)
	case types.EventTypeFinalOutput:
		// The caller shows the final output once the run is torn down.
	case types.EventTypeError:
		if ev.Error != nil {
			r.line("%s %v", r.theme.bad.Render("error:"), ev.Error)
		}
	}
}

func formatArguments(args map[string]any) string {
	if len(args) == 0 {
		return ""
	}
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return preview(string(b), argumentsRunes)
}

// preview flattens s to one line and cuts it to max runes.
func preview(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
