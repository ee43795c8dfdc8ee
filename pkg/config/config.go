// Package config resolves jobscout settings from defaults, a config file,
// the environment and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"time"

	"github.com/entrhq/jobscout/pkg/airtable"
	"github.com/entrhq/jobscout/pkg/mcpconn"
	"github.com/entrhq/jobscout/pkg/toolserver"
)

// Default values used when neither file, environment nor flags set a field.
const (
	DefaultModel               = "gpt-4o-mini"
	DefaultBrowser             = "chromium"
	DefaultAirtableMCPPackage  = "@felores/airtable-mcp-server"
	DefaultCount               = 10
	DefaultMaxTurns            = 25
	DefaultMaxToolOutputTokens = 8000
	DefaultToolTimeout         = 120 * time.Second
	DefaultInterSourceDelay    = 5 * time.Second
)

// Config is the complete jobscout configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm" toml:"llm"`
	ToolServer ToolServerConfig `yaml:"tool_server" toml:"tool_server"`
	Airtable   AirtableConfig   `yaml:"airtable" toml:"airtable"`
	Run        RunConfig        `yaml:"run" toml:"run"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
}

// LLMConfig configures the model and the agent loop.
type LLMConfig struct {
	APIKey              string        `yaml:"api_key" toml:"api_key"`
	BaseURL             string        `yaml:"base_url" toml:"base_url"`
	Model               string        `yaml:"model" toml:"model"`
	MaxTurns            int           `yaml:"max_turns" toml:"max_turns"`
	MaxToolOutputTokens int           `yaml:"max_tool_output_tokens" toml:"max_tool_output_tokens"`
	ToolTimeout         time.Duration `yaml:"tool_timeout" toml:"tool_timeout"`
	RequestTimeout      time.Duration `yaml:"request_timeout" toml:"request_timeout"`
}

// ToolServerConfig configures the browser tool server.
type ToolServerConfig struct {
	// URL of an already running server. When set nothing is spawned.
	URL       string `yaml:"url" toml:"url"`
	Transport string `yaml:"transport" toml:"transport"`

	Package           string        `yaml:"package" toml:"package"`
	Browser           string        `yaml:"browser" toml:"browser"`
	Headless          bool          `yaml:"headless" toml:"headless"`
	OutputDir         string        `yaml:"output_dir" toml:"output_dir"`
	ActionTimeout     time.Duration `yaml:"action_timeout" toml:"action_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" toml:"navigation_timeout"`

	StartupGrace time.Duration `yaml:"startup_grace" toml:"startup_grace"`
	ReadyTimeout time.Duration `yaml:"ready_timeout" toml:"ready_timeout"`
	StopGrace    time.Duration `yaml:"stop_grace" toml:"stop_grace"`

	InstallBrowsers bool     `yaml:"install_browsers" toml:"install_browsers"`
	CleanupStrays   bool     `yaml:"cleanup_strays" toml:"cleanup_strays"`
	StrayPatterns   []string `yaml:"stray_patterns" toml:"stray_patterns"`
}

// AirtableConfig configures persistence and the optional Airtable MCP server.
type AirtableConfig struct {
	APIKey         string `yaml:"api_key" toml:"api_key"`
	BaseID         string `yaml:"base_id" toml:"base_id"`
	TableID        string `yaml:"table_id" toml:"table_id"`
	SourcesTableID string `yaml:"sources_table_id" toml:"sources_table_id"`
	BaseURL        string `yaml:"base_url" toml:"base_url"`
	Typecast       bool   `yaml:"typecast" toml:"typecast"`

	// MCP exposes Airtable to the agent as a second tool server over stdio.
	MCP        bool   `yaml:"mcp" toml:"mcp"`
	MCPPackage string `yaml:"mcp_package" toml:"mcp_package"`
}

// RunConfig configures what a run scrapes.
type RunConfig struct {
	Sources          []string      `yaml:"sources" toml:"sources"`
	Count            int           `yaml:"count" toml:"count"`
	InterSourceDelay time.Duration `yaml:"inter_source_delay" toml:"inter_source_delay"`
	StrictPersist    bool          `yaml:"strict_persist" toml:"strict_persist"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:               DefaultModel,
			MaxTurns:            DefaultMaxTurns,
			MaxToolOutputTokens: DefaultMaxToolOutputTokens,
			ToolTimeout:         DefaultToolTimeout,
		},
		ToolServer: ToolServerConfig{
			Transport:     mcpconn.TransportStreamableHTTP.String(),
			Package:       toolserver.DefaultPlaywrightPackage,
			Browser:       DefaultBrowser,
			Headless:      true,
			StartupGrace:  toolserver.DefaultStartupGrace,
			ReadyTimeout:  toolserver.DefaultReadyTimeout,
			StopGrace:     toolserver.DefaultStopGrace,
			CleanupStrays: true,
		},
		Airtable: AirtableConfig{
			Typecast:   true,
			MCPPackage: DefaultAirtableMCPPackage,
		},
		Run: RunConfig{
			Count:            DefaultCount,
			InterSourceDelay: DefaultInterSourceDelay,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Validate checks the configuration. A missing OpenAI key is an error;
// missing Airtable settings only disable persistence.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required: set OPENAI_API_KEY, use --api-key, or set llm.api_key in the config file")
	}
	if c.LLM.MaxTurns <= 0 {
		return fmt.Errorf("llm.max_turns must be positive, got %d", c.LLM.MaxTurns)
	}
	if c.LLM.ToolTimeout < 0 || c.LLM.RequestTimeout < 0 {
		return fmt.Errorf("llm timeouts cannot be negative")
	}
	if _, err := mcpconn.ParseTransport(c.ToolServer.Transport); err != nil {
		return err
	}
	if c.ToolServer.URL == "" && c.ToolServer.Browser == "" {
		return fmt.Errorf("tool_server.browser is required when no tool_server.url is set")
	}
	if c.ToolServer.StartupGrace < 0 || c.ToolServer.ReadyTimeout < 0 || c.ToolServer.StopGrace < 0 {
		return fmt.Errorf("tool_server timeouts cannot be negative")
	}
	if c.Run.Count < 0 {
		return fmt.Errorf("run.count cannot be negative")
	}
	if c.Run.InterSourceDelay < 0 {
		return fmt.Errorf("run.inter_source_delay cannot be negative")
	}
	return nil
}

// TransportKind returns the parsed tool server transport. Validate must
// have passed.
func (c *Config) TransportKind() mcpconn.Transport {
	t, err := mcpconn.ParseTransport(c.ToolServer.Transport)
	if err != nil {
		return mcpconn.TransportStreamableHTTP
	}
	return t
}

// ServerConfig builds the tool server configuration.
func (c *Config) ServerConfig() toolserver.ServerConfig {
	ts := c.ToolServer
	cfg := toolserver.PlaywrightConfig(toolserver.PlaywrightOptions{
		Package:           ts.Package,
		Browser:           ts.Browser,
		Headless:          ts.Headless,
		Path:              c.TransportKind().Path(),
		OutputDir:         ts.OutputDir,
		ActionTimeout:     ts.ActionTimeout,
		NavigationTimeout: ts.NavigationTimeout,
		ExternalURL:       ts.URL,
	})
	cfg.StartupGrace = ts.StartupGrace
	cfg.ReadyTimeout = ts.ReadyTimeout
	cfg.StopGrace = ts.StopGrace
	if !ts.CleanupStrays {
		cfg.StrayPatterns = nil
	} else if len(ts.StrayPatterns) > 0 {
		cfg.StrayPatterns = append([]string(nil), ts.StrayPatterns...)
	}
	return cfg
}

// Store returns the Airtable store configuration.
func (c *Config) Store() airtable.Config {
	a := c.Airtable
	return airtable.Config{
		APIKey:         a.APIKey,
		BaseID:         a.BaseID,
		TableID:        a.TableID,
		SourcesTableID: a.SourcesTableID,
		BaseURL:        a.BaseURL,
		Typecast:       a.Typecast,
	}
}

// AirtableMissing lists the unset Airtable variables that disable persistence.
func (c *Config) AirtableMissing() []string {
	return c.Store().Missing()
}
