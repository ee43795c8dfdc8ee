package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/entrhq/jobscout/pkg/mcpconn"
)

// toolParams converts MCP tool definitions into OpenAI function tools.
func toolParams(tools []mcpconn.Tool) []openai.ChatCompletionToolParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		fn := openai.FunctionDefinitionParam{
			Name:       t.Name,
			Parameters: openai.FunctionParameters(functionSchema(t.InputSchema)),
		}
		if t.Description != "" {
			fn.Description = openai.String(t.Description)
		}
		out = append(out, openai.ChatCompletionToolParam{Function: fn})
	}
	return out
}

// functionSchema copies an input schema into the shape function calling
// accepts: a top-level object without a $schema marker.
func functionSchema(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema)+2)
	for k, v := range schema {
		if k == "$schema" {
			continue
		}
		out[k] = v
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}
	return out
}

// parseArguments decodes the JSON argument string of a tool call.
func parseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

type toolOutcome struct {
	output  string
	failure error
}

// callTool runs one tool call under the tool timeout. Tool-level failures and
// transport errors both come back as a failure the model gets to see; only a
// cancelled run returns an error.
func (a *Agent) callTool(ctx context.Context, tools Tools, name string, args map[string]any) (toolOutcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.toolTimeout)
	defer cancel()

	out, isError, err := tools.CallTool(callCtx, name, args)
	if err != nil {
		if ctx.Err() != nil {
			return toolOutcome{}, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("tool %s timed out after %s", name, a.toolTimeout)
		}
		return toolOutcome{output: "Error: " + err.Error(), failure: err}, nil
	}
	if isError {
		msg := strings.TrimSpace(out)
		if msg == "" {
			msg = "tool reported an error"
		}
		return toolOutcome{output: out, failure: errors.New(msg)}, nil
	}
	return toolOutcome{output: out}, nil
}
