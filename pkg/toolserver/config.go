package toolserver

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Default timings for a managed server.
const (
	DefaultStartupGrace   = 5 * time.Second
	DefaultReadyTimeout   = 30 * time.Second
	DefaultStopGrace      = 30 * time.Second
	DefaultTerminateGrace = 3 * time.Second
	DefaultHost           = "127.0.0.1"
	DefaultPath           = "/mcp"
)

// Argument placeholders expanded when the command line is built.
const (
	PlaceholderPort      = "{port}"
	PlaceholderHost      = "{host}"
	PlaceholderOutputDir = "{output_dir}"
)

// DefaultStrayPatterns match the node processes npx leaves behind when the
// wrapper exits before its child.
var DefaultStrayPatterns = []string{"*playwright/mcp*", "*node*playwright*"}

// ServerConfig describes how to launch one tool server. It is built once per
// run and never mutated afterwards; the Manager copies it on construction.
type ServerConfig struct {
	// Name identifies the server in logs and errors.
	Name string

	// Command and Args form the launch line. Args may contain {port},
	// {host} and {output_dir}.
	Command string
	Args    []string

	// Env is overlaid on the parent environment.
	Env map[string]string

	// Host and Port the server listens on. Port 0 allocates a free port.
	Host string
	Port int

	// Path is the protocol suffix of the endpoint, "/mcp" or "/sse".
	Path string

	// ExternalURL bypasses spawning entirely.
	ExternalURL string

	// OutputDir receives the server log and anything the server writes.
	// Empty means a fresh temporary directory.
	OutputDir string

	StartupGrace   time.Duration
	ReadyTimeout   time.Duration
	StopGrace      time.Duration
	TerminateGrace time.Duration

	// StrayPatterns are globs matched against full command lines after the
	// primary process is gone. Empty disables stray cleanup.
	StrayPatterns []string
}

// IsExternal reports whether the server is owned by someone else.
func (c ServerConfig) IsExternal() bool {
	return strings.TrimSpace(c.ExternalURL) != ""
}

// Validate checks the config for a managed or external server.
func (c ServerConfig) Validate() error {
	if c.IsExternal() {
		if !strings.HasPrefix(c.ExternalURL, "http://") && !strings.HasPrefix(c.ExternalURL, "https://") {
			return fmt.Errorf("external url must be http(s): %q", c.ExternalURL)
		}
		return nil
	}
	if strings.TrimSpace(c.Command) == "" {
		return errors.New("command is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	for name, d := range map[string]time.Duration{
		"startup_grace":   c.StartupGrace,
		"ready_timeout":   c.ReadyTimeout,
		"stop_grace":      c.StopGrace,
		"terminate_grace": c.TerminateGrace,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// withDefaults fills zero values. StartupGrace is left alone because zero is a
// legitimate choice for servers that bind immediately.
func (c ServerConfig) withDefaults() ServerConfig {
	if c.Name == "" {
		c.Name = "tool-server"
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if !strings.HasPrefix(c.Path, "/") {
		c.Path = "/" + c.Path
	}
	if c.ReadyTimeout == 0 {
		c.ReadyTimeout = DefaultReadyTimeout
	}
	if c.StopGrace == 0 {
		c.StopGrace = DefaultStopGrace
	}
	if c.TerminateGrace == 0 {
		c.TerminateGrace = DefaultTerminateGrace
	}
	c.Args = append([]string(nil), c.Args...)
	c.StrayPatterns = append([]string(nil), c.StrayPatterns...)
	if c.Env != nil {
		env := make(map[string]string, len(c.Env))
		for k, v := range c.Env {
			env[k] = v
		}
		c.Env = env
	}
	return c
}

// Endpoint derives the URL for a given port.
func (c ServerConfig) Endpoint(port int) string {
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	path := c.Path
	if path == "" {
		path = DefaultPath
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + path
}

// expandArgs substitutes placeholders in Args.
func (c ServerConfig) expandArgs(port int, outputDir string) []string {
	r := strings.NewReplacer(
		PlaceholderPort, strconv.Itoa(port),
		PlaceholderHost, c.Host,
		PlaceholderOutputDir, outputDir,
	)
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = r.Replace(a)
	}
	return args
}

// PlaywrightOptions are the knobs of the Playwright MCP launch line.
type PlaywrightOptions struct {
	Package           string
	Browser           string
	Headless          bool
	Path              string
	OutputDir         string
	ActionTimeout     time.Duration
	NavigationTimeout time.Duration
	ExternalURL       string
	Env               map[string]string
}

// DefaultPlaywrightPackage is the npm package started through npx.
const DefaultPlaywrightPackage = "@playwright/mcp@latest"

// PlaywrightConfig builds the ServerConfig for `npx @playwright/mcp`.
func PlaywrightConfig(opts PlaywrightOptions) ServerConfig {
	pkg := opts.Package
	if pkg == "" {
		pkg = DefaultPlaywrightPackage
	}
	browser := opts.Browser
	if browser == "" {
		browser = "chromium"
	}
	action := opts.ActionTimeout
	if action <= 0 {
		action = 15 * time.Second
	}
	navigation := opts.NavigationTimeout
	if navigation <= 0 {
		navigation = 60 * time.Second
	}

	args := []string{
		"-y", pkg,
		"--port=" + PlaceholderPort,
		"--host=" + PlaceholderHost,
		"--browser=" + browser,
	}
	if opts.Headless {
		args = append(args, "--headless")
	}
	args = append(args,
		"--output-dir="+PlaceholderOutputDir,
		"--timeout-action="+strconv.FormatInt(action.Milliseconds(), 10),
		"--timeout-navigation="+strconv.FormatInt(navigation.Milliseconds(), 10),
	)

	return ServerConfig{
		Name:           "playwright",
		Command:        "npx",
		Args:           args,
		Env:            opts.Env,
		Host:           DefaultHost,
		Path:           opts.Path,
		ExternalURL:    opts.ExternalURL,
		OutputDir:      opts.OutputDir,
		StartupGrace:   DefaultStartupGrace,
		ReadyTimeout:   DefaultReadyTimeout,
		StopGrace:      DefaultStopGrace,
		TerminateGrace: DefaultTerminateGrace,
		StrayPatterns:  append([]string(nil), DefaultStrayPatterns...),
	}
}
