package agent

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/entrhq/jobscout/pkg/types"
)

// Run executes task to completion. tools may be nil for a tool-less run;
// events may be nil. Run does not close events.
func (a *Agent) Run(ctx context.Context, tools Tools, task string, events chan<- *types.AgentEvent) (*Result, error) {
	var toolDefs []openai.ChatCompletionToolParam
	if tools != nil {
		toolDefs = toolParams(tools.Tools())
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 8)
	if a.instructions != "" {
		messages = append(messages, openai.SystemMessage(a.instructions))
	}
	messages = append(messages, openai.UserMessage(task))

	res := &Result{}
	consecutiveErrors := 0

	emit(ctx, events, types.NewAgentUpdatedEvent(a.name))
	a.log.Infof("run started with %d tools", len(toolDefs))

	fail := func(turn int, err error) (*Result, error) {
		loopErr := &AgentLoopError{Turn: turn, Err: err}
		a.log.Errorf("%v", loopErr)
		emit(ctx, events, types.NewErrorEvent(loopErr))
		return res, loopErr
	}

	for turn := 1; turn <= a.maxTurns; turn++ {
		res.Turns = turn
		if err := ctx.Err(); err != nil {
			return fail(turn, err)
		}

		params := openai.ChatCompletionNewParams{
			Model:    openai.ChatModel(a.provider.GetModel()),
			Messages: messages,
			Tools:    toolDefs,
		}
		if a.temperature != nil {
			params.Temperature = openai.Float(*a.temperature)
		}

		emit(ctx, events, types.NewAPICallStartEvent(turn, a.provider.GetModel()))
		resp, err := a.provider.Complete(ctx, params)
		emit(ctx, events, types.NewAPICallEndEvent(turn))
		if err != nil {
			return fail(turn, err)
		}

		usage := resp.Usage
		res.Usage.PromptTokens += int(usage.PromptTokens)
		res.Usage.CompletionTokens += int(usage.CompletionTokens)
		res.Usage.TotalTokens += int(usage.TotalTokens)
		emit(ctx, events, types.NewTokenUsageEvent(turn, int(usage.PromptTokens), int(usage.CompletionTokens), int(usage.TotalTokens)))

		if len(resp.Choices) == 0 {
			return fail(turn, ErrEmptyResponse)
		}
		msg := resp.Choices[0].Message
		if msg.Content != "" {
			emit(ctx, events, types.NewMessageEvent(turn, msg.Content))
		}

		if len(msg.ToolCalls) == 0 {
			res.FinalOutput = msg.Content
			a.log.Infof("run finished after %d turns, %d tool calls", turn, res.ToolCalls)
			emit(ctx, events, types.NewFinalOutputEvent(turn, msg.Content))
			return res, nil
		}

		messages = append(messages, assistantMessage(msg))
		for _, call := range msg.ToolCalls {
			res.ToolCalls++
			name := call.Function.Name

			args, argErr := parseArguments(call.Function.Arguments)
			emit(ctx, events, types.NewToolCallEvent(turn, call.ID, name, args))
			a.log.Debugf("turn %d: calling %s", turn, name)

			var outcome toolOutcome
			switch {
			case argErr != nil:
				outcome = toolOutcome{output: "Error: " + argErr.Error(), failure: argErr}
			case tools == nil:
				noTools := fmt.Errorf("unknown tool %q: no tools are connected", name)
				outcome = toolOutcome{output: "Error: " + noTools.Error(), failure: noTools}
			default:
				outcome, err = a.callTool(ctx, tools, name, args)
				if err != nil {
					return fail(turn, err)
				}
			}

			output, truncated := a.tokenizer.Truncate(outcome.output, a.maxToolOutputTokens)
			if truncated {
				output += fmt.Sprintf("\n[output truncated to %d tokens]", a.maxToolOutputTokens)
			}

			if outcome.failure != nil {
				consecutiveErrors++
				a.log.Warnf("tool %s failed: %v", name, outcome.failure)
				emit(ctx, events, types.NewToolResultErrorEvent(turn, call.ID, name, outcome.failure))
			} else {
				consecutiveErrors = 0
				emit(ctx, events, types.NewToolResultEvent(turn, call.ID, name, output))
			}
			messages = append(messages, openai.ToolMessage(output, call.ID))

			if consecutiveErrors >= a.maxConsecutiveErrors {
				return fail(turn, fmt.Errorf("%w: %d in a row", ErrTooManyToolErrors, consecutiveErrors))
			}
		}
	}

	return fail(a.maxTurns, fmt.Errorf("%w (%d)", ErrMaxTurns, a.maxTurns))
}

// assistantMessage rebuilds the assistant turn, including its tool calls, as
// a request parameter.
func assistantMessage(msg openai.ChatCompletionMessage) openai.ChatCompletionMessageParamUnion {
	assistant := openai.ChatCompletionAssistantMessageParam{}
	if msg.Content != "" {
		assistant.Content.OfString = openai.String(msg.Content)
	}
	for _, call := range msg.ToolCalls {
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}
