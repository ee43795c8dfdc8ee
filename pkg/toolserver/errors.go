package toolserver

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStartup matches every *StartupError via errors.Is.
	ErrStartup = errors.New("tool server failed to start")

	// ErrReadyTimeout means the endpoint never answered before the deadline.
	ErrReadyTimeout = errors.New("tool server did not become ready in time")

	// ErrProcessExited means the process died before it was ready.
	ErrProcessExited = errors.New("tool server process exited during startup")
)

// StartupError reports a spawn that never reached Ready. Output holds the tail
// of whatever the process wrote to its log sink.
type StartupError struct {
	Server   string
	Endpoint string
	ExitCode int
	Output   string
	Err      error
}

func (e *StartupError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v", e.Server, e.Err)
	if e.Endpoint != "" {
		fmt.Fprintf(&b, " (endpoint %s)", e.Endpoint)
	}
	if e.ExitCode >= 0 && errors.Is(e.Err, ErrProcessExited) {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		b.WriteString("\n--- server output ---\n")
		b.WriteString(out)
	}
	return b.String()
}

func (e *StartupError) Unwrap() []error {
	return []error{ErrStartup, e.Err}
}
