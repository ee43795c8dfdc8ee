package types

import (
	"errors"
	"testing"
)

func TestAgentEventType(t *testing.T) {
	tests := []struct {
		eventType AgentEventType
		expected  string
	}{
		{EventTypeAgentUpdated, "agent_updated"},
		{EventTypeAPICallStart, "api_call_start"},
		{EventTypeAPICallEnd, "api_call_end"},
		{EventTypeToolCall, "tool_call"},
		{EventTypeToolResult, "tool_result"},
		{EventTypeToolResultError, "tool_result_error"},
		{EventTypeMessage, "message"},
		{EventTypeTokenUsage, "token_usage"},
		{EventTypeFinalOutput, "final_output"},
		{EventTypeError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if string(tt.eventType) != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, string(tt.eventType))
			}
		})
	}
}

func TestNewToolCallEvent(t *testing.T) {
	input := map[string]interface{}{"url": "https://example.com"}
	event := NewToolCallEvent(2, "call_1", "browser_navigate", input)

	if event.Type != EventTypeToolCall {
		t.Errorf("expected type %s, got %s", EventTypeToolCall, event.Type)
	}
	if event.Turn != 2 || event.ToolCallID != "call_1" || event.ToolName != "browser_navigate" {
		t.Errorf("unexpected event fields: %+v", event)
	}
	if event.ToolInput["url"] != "https://example.com" {
		t.Errorf("expected tool input to be preserved")
	}
	if !event.IsToolEvent() {
		t.Error("expected IsToolEvent to be true")
	}
}

func TestNewToolResultErrorEvent(t *testing.T) {
	err := errors.New("timeout")
	event := NewToolResultErrorEvent(1, "call_9", "browser_click", err)

	if !errors.Is(event.Error, err) {
		t.Errorf("expected error to be preserved")
	}
	if !event.IsErrorEvent() || !event.IsToolEvent() {
		t.Error("expected error and tool classification")
	}
}

func TestNewTokenUsageEvent(t *testing.T) {
	event := NewTokenUsageEvent(3, 100, 20, 120)
	if event.TokenUsage == nil {
		t.Fatal("expected token usage")
	}
	if event.TokenUsage.TotalTokens != 120 || event.TokenUsage.PromptTokens != 100 || event.TokenUsage.CompletionTokens != 20 {
		t.Errorf("unexpected usage: %+v", event.TokenUsage)
	}
}

func TestAPIEvents(t *testing.T) {
	start := NewAPICallStartEvent(1, "gpt-4o-mini")
	if !start.IsAPIEvent() || start.Metadata["model"] != "gpt-4o-mini" {
		t.Errorf("unexpected start event: %+v", start)
	}
	if !NewAPICallEndEvent(1).IsAPIEvent() {
		t.Error("expected end event to be an API event")
	}
	if NewMessageEvent(1, "hi").IsAPIEvent() {
		t.Error("message is not an API event")
	}
}

func TestWithMetadata(t *testing.T) {
	event := (&AgentEvent{Type: EventTypeMessage}).WithMetadata("source", "https://jobs.example")
	if event.Metadata["source"] != "https://jobs.example" {
		t.Errorf("expected metadata to be set")
	}
}
