package types

// AgentEventType defines the type of event emitted by the agent.
type AgentEventType string

const (
	EventTypeAgentUpdated    AgentEventType = "agent_updated"     // EventTypeAgentUpdated indicates a run started with a (new) agent.
	EventTypeAPICallStart    AgentEventType = "api_call_start"    // EventTypeAPICallStart indicates the agent is calling the model.
	EventTypeAPICallEnd      AgentEventType = "api_call_end"      // EventTypeAPICallEnd indicates a model call has completed.
	EventTypeToolCall        AgentEventType = "tool_call"         // EventTypeToolCall indicates the agent is calling a tool.
	EventTypeToolResult      AgentEventType = "tool_result"       // EventTypeToolResult indicates a successful tool call result.
	EventTypeToolResultError AgentEventType = "tool_result_error" // EventTypeToolResultError indicates a tool call failed.
	EventTypeMessage         AgentEventType = "message"           // EventTypeMessage indicates the model produced text.
	EventTypeTokenUsage      AgentEventType = "token_usage"       // EventTypeTokenUsage indicates token usage of one completion.
	EventTypeFinalOutput     AgentEventType = "final_output"      // EventTypeFinalOutput carries the run's final text.
	EventTypeError           AgentEventType = "error"             // EventTypeError indicates the run failed.
)

// AgentEvent represents an event emitted by the agent during a run. Events
// are informational: consumers render them and never steer the run with them.
type AgentEvent struct {
	// Metadata holds optional additional information about the event.
	Metadata map[string]interface{}

	// ToolInput is the input being sent to the tool (for tool call events).
	ToolInput map[string]interface{}

	// ToolOutput is the result from the tool (for tool result events).
	ToolOutput string

	// Error contains error information for error events.
	Error error

	// Content holds text for message, final output and agent events.
	Content string

	// ToolName is the name of the tool being called (for tool events).
	ToolName string

	// ToolCallID pairs a tool call with its result.
	ToolCallID string

	// Type indicates the kind of event.
	Type AgentEventType

	// Turn is the 1-based model turn the event belongs to.
	Turn int

	// TokenUsage contains token usage information (for token usage events).
	TokenUsage *TokenUsage
}

// TokenUsage contains token usage statistics from an LLM API call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// NewAgentUpdatedEvent creates an agent updated event.
func NewAgentUpdatedEvent(name string) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeAgentUpdated,
		Content:  name,
		Metadata: make(map[string]interface{}),
	}
}

// NewAPICallStartEvent creates an API call start event.
func NewAPICallStartEvent(turn int, model string) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeAPICallStart,
		Turn:     turn,
		Metadata: map[string]interface{}{"model": model},
	}
}

// NewAPICallEndEvent creates an API call end event.
func NewAPICallEndEvent(turn int) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeAPICallEnd,
		Turn:     turn,
		Metadata: make(map[string]interface{}),
	}
}

// NewToolCallEvent creates a tool call event.
func NewToolCallEvent(turn int, callID, toolName string, toolInput map[string]interface{}) *AgentEvent {
	return &AgentEvent{
		Type:       EventTypeToolCall,
		Turn:       turn,
		ToolCallID: callID,
		ToolName:   toolName,
		ToolInput:  toolInput,
		Metadata:   make(map[string]interface{}),
	}
}

// NewToolResultEvent creates a tool result event.
func NewToolResultEvent(turn int, callID, toolName, output string) *AgentEvent {
	return &AgentEvent{
		Type:       EventTypeToolResult,
		Turn:       turn,
		ToolCallID: callID,
		ToolName:   toolName,
		ToolOutput: output,
		Metadata:   make(map[string]interface{}),
	}
}

// NewToolResultErrorEvent creates a tool result error event.
func NewToolResultErrorEvent(turn int, callID, toolName string, err error) *AgentEvent {
	return &AgentEvent{
		Type:       EventTypeToolResultError,
		Turn:       turn,
		ToolCallID: callID,
		ToolName:   toolName,
		Error:      err,
		Metadata:   make(map[string]interface{}),
	}
}

// NewMessageEvent creates a message event.
func NewMessageEvent(turn int, content string) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeMessage,
		Turn:     turn,
		Content:  content,
		Metadata: make(map[string]interface{}),
	}
}

// NewTokenUsageEvent creates a token usage event.
func NewTokenUsageEvent(turn, promptTokens, completionTokens, totalTokens int) *AgentEvent {
	return &AgentEvent{
		Type: EventTypeTokenUsage,
		Turn: turn,
		TokenUsage: &TokenUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      totalTokens,
		},
		Metadata: make(map[string]interface{}),
	}
}

// NewFinalOutputEvent creates a final output event.
func NewFinalOutputEvent(turn int, content string) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeFinalOutput,
		Turn:     turn,
		Content:  content,
		Metadata: make(map[string]interface{}),
	}
}

// NewErrorEvent creates an error event.
func NewErrorEvent(err error) *AgentEvent {
	return &AgentEvent{
		Type:     EventTypeError,
		Error:    err,
		Metadata: make(map[string]interface{}),
	}
}

// WithMetadata adds a metadata entry and returns the event.
func (e *AgentEvent) WithMetadata(key string, value interface{}) *AgentEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// IsToolEvent returns true if this is a tool-related event.
func (e *AgentEvent) IsToolEvent() bool {
	return e.Type == EventTypeToolCall ||
		e.Type == EventTypeToolResult ||
		e.Type == EventTypeToolResultError
}

// IsAPIEvent returns true if this is an API call event.
func (e *AgentEvent) IsAPIEvent() bool {
	return e.Type == EventTypeAPICallStart || e.Type == EventTypeAPICallEnd
}

// IsErrorEvent returns true if this is an error event.
func (e *AgentEvent) IsErrorEvent() bool {
	return e.Type == EventTypeError || e.Type == EventTypeToolResultError
}
