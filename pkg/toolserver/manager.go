package toolserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/entrhq/jobscout/pkg/logging"
)

const (
	outputTailBytes = 8 * 1024
	killConfirmWait = 5 * time.Second
	strayTimeout    = 5 * time.Second
)

// ProcessHandle is one spawned server process. Only the Manager that created
// it mutates it. When no output directory is configured the server writes to
// a temporary one, which is removed together with LogPath once the process
// is confirmed gone.
type ProcessHandle struct {
	PID      int
	Port     int
	Endpoint string
	LogPath  string

	cmd      *exec.Cmd
	exited   chan struct{}
	waitErr  error
	alive    atomic.Bool
	stopOnce sync.Once
	tempDir  string
}

// Alive reports whether the process has not been reaped yet.
func (h *ProcessHandle) Alive() bool { return h.alive.Load() }

// Exited is closed once the process has been reaped.
func (h *ProcessHandle) Exited() <-chan struct{} { return h.exited }

// ExitCode returns the exit status, or -1 while running or when killed by a signal.
func (h *ProcessHandle) ExitCode() int {
	select {
	case <-h.exited:
	default:
		return -1
	}
	if h.cmd.ProcessState == nil {
		return -1
	}
	return h.cmd.ProcessState.ExitCode()
}

// WaitErr returns the error from reaping the process, nil while it runs or
// after a clean exit.
func (h *ProcessHandle) WaitErr() error {
	select {
	case <-h.exited:
		return h.waitErr
	default:
		return nil
	}
}

// ShutdownWarning records an escalation or cleanup step that failed. Warnings
// are logged and never fail a run.
type ShutdownWarning struct {
	Step string
	Err  error
}

func (w ShutdownWarning) Error() string {
	return fmt.Sprintf("%s: %v", w.Step, w.Err)
}

// Option configures a Manager.
type Option func(*Manager)

// WithProber replaces the readiness prober.
func WithProber(p *Prober) Option {
	return func(m *Manager) { m.prober = p }
}

// WithPortAllocator replaces the free-port allocator.
func WithPortAllocator(fn func() (int, error)) Option {
	return func(m *Manager) { m.allocPort = fn }
}

// WithStrayCleaner replaces the cleaner built from ServerConfig.StrayPatterns.
func WithStrayCleaner(s *StrayCleaner) Option {
	return func(m *Manager) { m.strays = s }
}

// Manager owns one tool server from spawn to confirmed exit.
type Manager struct {
	cfg       ServerConfig
	log       *logging.Logger
	prober    *Prober
	allocPort func() (int, error)
	signal    func(pid int, sig os.Signal) error
	strays    *StrayCleaner

	mu       sync.Mutex
	state    State
	handle   *ProcessHandle
	endpoint string
	warnings []ShutdownWarning
}

// NewManager creates a Manager in StateNotStarted.
func NewManager(cfg ServerConfig, log *logging.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	cfg = cfg.withDefaults()
	m := &Manager{
		cfg:       cfg,
		log:       log.With(cfg.Name),
		prober:    NewProber(),
		allocPort: AllocateFreePort,
		signal:    signalProcess,
		state:     StateNotStarted,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.strays == nil {
		strays, err := NewStrayCleaner(cfg.StrayPatterns, m.log)
		if err != nil {
			m.log.Warnf("stray cleanup disabled: %v", err)
			strays, _ = NewStrayCleaner(nil, m.log)
		}
		m.strays = strays
	}
	return m
}

// Config returns the effective configuration.
func (m *Manager) Config() ServerConfig { return m.cfg }

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Endpoint returns the endpoint once Start has produced one.
func (m *Manager) Endpoint() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endpoint
}

// Handle returns the spawned process, or nil for external servers.
func (m *Manager) Handle() *ProcessHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handle
}

// Warnings returns the shutdown warnings recorded so far.
func (m *Manager) Warnings() []ShutdownWarning {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ShutdownWarning(nil), m.warnings...)
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log.Debugf("state %s -> %s", m.state, s)
	m.state = s
}

// Start brings the server up and returns its endpoint. A failed start leaves
// no process behind: Start stops whatever it spawned before returning.
func (m *Manager) Start(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.state != StateNotStarted {
		state := m.state
		m.mu.Unlock()
		return "", fmt.Errorf("%s: start called in state %s", m.cfg.Name, state)
	}
	if m.cfg.IsExternal() {
		m.state = StateReady
		m.endpoint = m.cfg.ExternalURL
		m.mu.Unlock()
		m.log.Infof("using external endpoint %s, nothing to spawn", m.cfg.ExternalURL)
		return m.cfg.ExternalURL, nil
	}
	m.state = StateStarting
	m.mu.Unlock()

	if err := m.cfg.Validate(); err != nil {
		m.setState(StateFailed)
		return "", &StartupError{Server: m.cfg.Name, ExitCode: -1, Err: err}
	}

	h, err := m.spawn()
	if err != nil {
		m.setState(StateFailed)
		return "", &StartupError{Server: m.cfg.Name, ExitCode: -1, Err: err}
	}

	m.mu.Lock()
	m.handle = h
	m.endpoint = h.Endpoint
	m.mu.Unlock()
	m.log.Infof("spawned pid %d on port %d, log %s", h.PID, h.Port, h.LogPath)

	if err := m.awaitReady(ctx, h); err != nil {
		m.log.Errorf("startup failed: %v", err)
		m.shutdown(context.Background(), h)
		m.mu.Lock()
		if m.state == StateStarting {
			m.state = StateFailed
		}
		m.mu.Unlock()
		return "", err
	}

	m.setState(StateReady)
	m.log.Infof("ready at %s", h.Endpoint)
	return h.Endpoint, nil
}

func (m *Manager) spawn() (*ProcessHandle, error) {
	port := m.cfg.Port
	if port == 0 {
		p, err := m.allocPort()
		if err != nil {
			return nil, err
		}
		port = p
	}

	outputDir, tempDir := m.cfg.OutputDir, ""
	if outputDir == "" {
		dir, err := os.MkdirTemp("", "jobscout-"+m.cfg.Name+"-")
		if err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		outputDir, tempDir = dir, dir
	} else if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	logPath := filepath.Join(outputDir, m.cfg.Name+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		removeTemp(tempDir)
		return nil, fmt.Errorf("failed to open server log: %w", err)
	}

	args := m.cfg.expandArgs(port, outputDir)
	cmd := exec.Command(m.cfg.Command, args...)
	cmd.Env = mergeEnv(os.Environ(), m.cfg.Env)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	setProcessGroup(cmd)

	m.log.Debugf("exec %s %s", m.cfg.Command, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		removeTemp(tempDir)
		return nil, fmt.Errorf("failed to start %s: %w", m.cfg.Command, err)
	}
	// The child holds its own descriptor.
	_ = logFile.Close()

	h := &ProcessHandle{
		PID:      cmd.Process.Pid,
		Port:     port,
		Endpoint: m.cfg.Endpoint(port),
		LogPath:  logPath,
		cmd:      cmd,
		exited:   make(chan struct{}),
		tempDir:  tempDir,
	}
	h.alive.Store(true)
	go func() {
		h.waitErr = cmd.Wait()
		h.alive.Store(false)
		close(h.exited)
	}()
	return h, nil
}

func (m *Manager) awaitReady(ctx context.Context, h *ProcessHandle) error {
	if grace := m.cfg.StartupGrace; grace > 0 {
		timer := time.NewTimer(grace)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: startup interrupted: %w", m.cfg.Name, ctx.Err())
		case <-h.exited:
			timer.Stop()
			return m.startupError(h, ErrProcessExited)
		case <-timer.C:
		}
	}

	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-h.exited:
			cancel()
		case <-probeCtx.Done():
		}
	}()

	deadline := time.Now().Add(m.cfg.ReadyTimeout)
	if m.prober.WaitUntilReady(probeCtx, h.Endpoint, deadline) {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: startup interrupted: %w", m.cfg.Name, ctx.Err())
	}
	select {
	case <-h.exited:
		return m.startupError(h, ErrProcessExited)
	default:
		return m.startupError(h, ErrReadyTimeout)
	}
}

func (m *Manager) startupError(h *ProcessHandle, cause error) *StartupError {
	return &StartupError{
		Server:   m.cfg.Name,
		Endpoint: h.Endpoint,
		ExitCode: h.ExitCode(),
		Output:   readTail(h.LogPath, outputTailBytes),
		Err:      cause,
	}
}

// Stop shuts the server down. It is idempotent and never fails: escalation
// and cleanup problems are recorded as warnings. External servers are left
// untouched.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	switch {
	case m.cfg.IsExternal(), m.handle == nil:
		if m.state == StateReady {
			m.state = StateStopped
		}
		m.mu.Unlock()
		return
	case m.state == StateStopped, m.state == StateStopping, m.state == StateFailed:
		m.mu.Unlock()
		return
	}
	h := m.handle
	m.state = StateStopping
	m.mu.Unlock()

	m.shutdown(ctx, h)
	m.setState(StateStopped)
}

// shutdown escalates interrupt, SIGTERM, SIGKILL against h and then cleans up
// strays. It runs at most once per handle.
func (m *Manager) shutdown(ctx context.Context, h *ProcessHandle) {
	h.stopOnce.Do(func() {
		steps := []struct {
			name string
			sig  os.Signal
			wait time.Duration
		}{
			{"interrupt", os.Interrupt, m.cfg.StopGrace},
			{"terminate", syscall.SIGTERM, m.cfg.TerminateGrace},
			{"kill", os.Kill, killConfirmWait},
		}

		exited := false
		for _, step := range steps {
			if !h.Alive() {
				exited = true
				break
			}
			m.log.Debugf("sending %s to pid %d", step.name, h.PID)
			if err := m.signal(h.PID, step.sig); err != nil {
				m.warn(step.name, err)
			}
			waitCtx := ctx
			if step.sig == os.Kill {
				// The kill is final; wait for the reaper regardless of ctx.
				waitCtx = context.WithoutCancel(ctx)
			}
			if waitExit(waitCtx, h, step.wait) {
				exited = true
				break
			}
		}
		if !exited {
			m.warn("confirm exit", fmt.Errorf("pid %d still running after kill", h.PID))
		} else {
			m.log.Infof("pid %d exited (code %d)", h.PID, h.ExitCode())
			if h.tempDir != "" {
				if err := os.RemoveAll(h.tempDir); err != nil {
					m.warn("remove output directory", err)
				}
			}
		}

		if m.strays.Enabled() {
			cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), strayTimeout)
			defer cancel()
			killed, err := m.strays.Cleanup(cleanupCtx)
			if err != nil {
				m.warn("stray cleanup", err)
			}
			if len(killed) > 0 {
				m.log.Infof("terminated %d stray process(es): %v", len(killed), killed)
			}
		}
	})
}

func (m *Manager) warn(step string, err error) {
	w := ShutdownWarning{Step: step, Err: err}
	m.log.Warnf("shutdown warning: %v", w)
	m.mu.Lock()
	m.warnings = append(m.warnings, w)
	m.mu.Unlock()
}

// waitExit waits up to d for h to exit. A done ctx ends the wait early so the
// caller escalates immediately.
func waitExit(ctx context.Context, h *ProcessHandle, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-h.exited:
		return true
	case <-ctx.Done():
		select {
		case <-h.exited:
			return true
		default:
			return false
		}
	case <-timer.C:
		return false
	}
}

// mergeEnv overlays env on base. Overridden keys keep their position; new
// keys are appended in sorted order.
func mergeEnv(base []string, env map[string]string) []string {
	if len(env) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(env))
	seen := make(map[string]bool, len(env))
	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		if v, ok := env[k]; ok {
			out = append(out, k+"="+v)
			seen[k] = true
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func removeTemp(dir string) {
	if dir != "" {
		_ = os.RemoveAll(dir)
	}
}

func readTail(path string, n int64) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ""
	}
	offset := info.Size() - n
	if offset < 0 {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return ""
	}
	data, err := io.ReadAll(f)
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	return string(data)
}
