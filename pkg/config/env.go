package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by ApplyEnv.
const (
	EnvOpenAIKey        = "OPENAI_API_KEY"
	EnvOpenAIBaseURL    = "OPENAI_BASE_URL"
	EnvOpenAIModel      = "OPENAI_MODEL"
	EnvAirtableKey      = "AIRTABLE_API_KEY"
	EnvAirtableBase     = "AIRTABLE_BASE_ID"
	EnvAirtableTable    = "AIRTABLE_TABLE_ID"
	EnvAirtableOffers   = "AIRTABLE_OFFERS_TABLE_ID"
	EnvAirtableSources  = "AIRTABLE_SOURCES_TABLE_ID"
	EnvAirtableMCP      = "AIRTABLE_MCP_PACKAGE"
	EnvBrowser          = "PLAYWRIGHT_BROWSER"
	EnvHeadless         = "PLAYWRIGHT_HEADLESS"
	EnvToolServerURL    = "PLAYWRIGHT_MCP_URL"
	EnvReadyWaitSeconds = "MCP_READY_WAIT_SECONDS"
	EnvToolTimeoutSecs  = "MCP_TOOL_TIMEOUT_SECONDS"
	EnvTransport        = "MCP_TRANSPORT"
)

// ApplyEnv overlays environment variables on c. Empty values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := get(k); ok {
				*dst = v
				return
			}
		}
	}

	setString(&c.LLM.APIKey, EnvOpenAIKey)
	setString(&c.LLM.BaseURL, EnvOpenAIBaseURL)
	setString(&c.LLM.Model, EnvOpenAIModel)

	setString(&c.Airtable.APIKey, EnvAirtableKey)
	setString(&c.Airtable.BaseID, EnvAirtableBase)
	setString(&c.Airtable.TableID, EnvAirtableTable, EnvAirtableOffers)
	setString(&c.Airtable.SourcesTableID, EnvAirtableSources)
	setString(&c.Airtable.MCPPackage, EnvAirtableMCP)

	setString(&c.ToolServer.Browser, EnvBrowser)
	setString(&c.ToolServer.URL, EnvToolServerURL)
	setString(&c.ToolServer.Transport, EnvTransport)

	if v, ok := get(EnvHeadless); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvHeadless, v, err)
		}
		c.ToolServer.Headless = b
	}
	if v, ok := get(EnvReadyWaitSeconds); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvReadyWaitSeconds, err)
		}
		c.ToolServer.ReadyTimeout = d
	}
	if v, ok := get(EnvToolTimeoutSecs); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvToolTimeoutSecs, err)
		}
		c.LLM.ToolTimeout = d
	}
	return nil
}

// parseSeconds accepts whole or fractional seconds.
func parseSeconds(v string) (time.Duration, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number of seconds", v)
	}
	if f < 0 {
		return 0, fmt.Errorf("%q is negative", v)
	}
	return time.Duration(f * float64(time.Second)), nil
}
