// Package llm provides the model abstraction the agent loop talks to.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o-mini"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	resp, err := provider.Complete(ctx, oai.ChatCompletionNewParams{
//	    Messages: []oai.ChatCompletionMessageParamUnion{oai.UserMessage("Hello!")},
//	})
package llm

import (
	"context"

	"github.com/openai/openai-go"
)

// Provider defines the interface for LLM integrations.
//
// Requests and responses use the openai-go chat completion types directly:
// every backend we target speaks the OpenAI-compatible API, and function
// calling needs the full tool-call structure.
type Provider interface {
	// Complete sends one chat completion request. Providers fill in the
	// model when params.Model is empty.
	Complete(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)

	// GetModel returns the model name being used.
	GetModel() string

	// GetBaseURL returns the base URL being used for API requests.
	GetBaseURL() string
}
