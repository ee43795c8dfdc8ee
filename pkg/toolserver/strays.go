package toolserver

import (
	"context"
	"fmt"
	"os"

	"github.com/gobwas/glob"
	"go.uber.org/multierr"

	"github.com/entrhq/jobscout/pkg/logging"
)

type procInfo struct {
	PID  int
	Args string
}

// StrayCleaner terminates processes left behind by a tool server, matched by
// command line. Stopping npx does not always reach the node process it forked.
type StrayCleaner struct {
	patterns []string
	globs    []glob.Glob
	log      *logging.Logger

	list func(ctx context.Context) ([]procInfo, error)
	kill func(pid int) error
	skip map[int]bool
}

// NewStrayCleaner compiles the patterns. A nil cleaner or one without
// patterns does nothing.
func NewStrayCleaner(patterns []string, log *logging.Logger) (*StrayCleaner, error) {
	s := &StrayCleaner{
		log:  log,
		list: listProcesses,
		kill: terminatePID,
		skip: map[int]bool{os.Getpid(): true, os.Getppid(): true},
	}
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid stray pattern %q: %w", p, err)
		}
		s.patterns = append(s.patterns, p)
		s.globs = append(s.globs, g)
	}
	return s, nil
}

// Enabled reports whether any pattern is configured.
func (s *StrayCleaner) Enabled() bool {
	return s != nil && len(s.globs) > 0
}

// Match reports whether a command line matches any pattern.
func (s *StrayCleaner) Match(args string) bool {
	if s == nil {
		return false
	}
	for _, g := range s.globs {
		if g.Match(args) {
			return true
		}
	}
	return false
}

// Cleanup sends SIGTERM to every matching process and returns the pids it
// signalled. Errors are combined; the caller decides whether they matter.
func (s *StrayCleaner) Cleanup(ctx context.Context) ([]int, error) {
	if !s.Enabled() {
		return nil, nil
	}
	procs, err := s.list(ctx)
	if err != nil {
		return nil, err
	}

	var (
		killed []int
		errs   error
	)
	for _, p := range procs {
		if s.skip[p.PID] || !s.Match(p.Args) {
			continue
		}
		if err := s.kill(p.PID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("pid %d: %w", p.PID, err))
			continue
		}
		s.log.Debugf("terminated stray process %d: %s", p.PID, p.Args)
		killed = append(killed, p.PID)
	}
	return killed, errs
}
