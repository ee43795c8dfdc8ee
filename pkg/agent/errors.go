package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrMaxTurns means the model kept calling tools past the turn limit.
	ErrMaxTurns = errors.New("agent exceeded max turns")

	// ErrTooManyToolErrors means tool calls kept failing back to back.
	ErrTooManyToolErrors = errors.New("too many consecutive tool errors")

	// ErrEmptyResponse means the model returned no choices.
	ErrEmptyResponse = errors.New("model returned no choices")
)

// AgentLoopError is any failure that ends a run early. It is returned after
// the caller's teardown runs and is never retried here.
type AgentLoopError struct {
	Turn int
	Err  error
}

func (e *AgentLoopError) Error() string {
	return fmt.Sprintf("agent loop failed at turn %d: %v", e.Turn, e.Err)
}

func (e *AgentLoopError) Unwrap() error { return e.Err }
