package main

import (
	"github.com/spf13/cobra"

	"github.com/entrhq/jobscout/pkg/config"
	"github.com/entrhq/jobscout/pkg/console"
	"github.com/entrhq/jobscout/pkg/logging"
)

// flags holds the persistent command-line overrides. Empty values leave the
// file and environment settings in place.
type flags struct {
	configPath string
	envFiles   []string

	apiKey    string
	baseURL   string
	model     string
	serverURL string
	browser   string
	transport string
	headful   bool
	install   bool

	strict   bool
	verbose  bool
	noColor  bool
	logLevel string
}

// app is what every subcommand works with once flags are parsed.
type app struct {
	cfg      *config.Config
	log      *logging.Logger
	reporter *console.Reporter
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	a := &app{}

	root := &cobra.Command{
		Use:           "jobscout",
		Short:         "Scrape job offers with a browser-driving agent",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.init(cmd, f)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				a.log.Close()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "Config file (.yaml or .toml), default ~/.jobscout/config.yaml")
	pf.StringSliceVar(&f.envFiles, "env-file", nil, "Dotenv files to load (default .env)")
	pf.StringVar(&f.apiKey, "api-key", "", "OpenAI API key")
	pf.StringVar(&f.baseURL, "base-url", "", "OpenAI-compatible API base URL")
	pf.StringVar(&f.model, "model", "", "Model name")
	pf.StringVar(&f.serverURL, "server-url", "", "Use a running tool server at this URL instead of spawning one")
	pf.StringVar(&f.browser, "browser", "", "Browser for the tool server (chromium, firefox, webkit, chrome, msedge)")
	pf.StringVar(&f.transport, "transport", "", "Tool server transport (streamable-http or sse)")
	pf.BoolVar(&f.headful, "headful", false, "Show the browser window")
	pf.BoolVar(&f.install, "install-browsers", false, "Install the browser before starting the tool server")
	pf.BoolVar(&f.strict, "strict", false, "Fail the run when records cannot be stored")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "Show model calls, token usage and tool output")
	pf.BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(a),
		newSourcesCmd(a),
		newRecordsCmd(a),
		newVersionCmd(),
	)
	return root
}

// init resolves configuration and builds the logger and reporter.
func (a *app) init(cmd *cobra.Command, f *flags) error {
	cfg, err := config.Load(config.LoadOptions{ConfigPath: f.configPath, EnvFiles: f.envFiles})
	if err != nil {
		return &usageError{err}
	}
	f.apply(cmd, cfg)

	log, _ := logging.NewLogger("jobscout")
	log.SetLevel(logging.ParseLevel(cfg.Logging.Level))

	opts := []console.Option{console.WithVerbose(f.verbose)}
	if f.noColor {
		opts = append(opts, console.WithColor(false))
	}

	a.cfg = cfg
	a.log = log
	a.reporter = console.New(cmd.OutOrStdout(), opts...)
	if path := log.LogPath(); path != "" {
		a.reporter.Info("log: %s", path)
	}
	return nil
}

// validate checks the configuration for commands that run the agent.
func (a *app) validate() error {
	if err := a.cfg.Validate(); err != nil {
		return &usageError{err}
	}
	return nil
}

// apply overlays flags that were set on the command line.
func (f *flags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) && v != "" {
			*dst = v
		}
	}
	set("api-key", &cfg.LLM.APIKey, f.apiKey)
	set("base-url", &cfg.LLM.BaseURL, f.baseURL)
	set("model", &cfg.LLM.Model, f.model)
	set("server-url", &cfg.ToolServer.URL, f.serverURL)
	set("browser", &cfg.ToolServer.Browser, f.browser)
	set("transport", &cfg.ToolServer.Transport, f.transport)
	set("log-level", &cfg.Logging.Level, f.logLevel)

	if cmd.Flags().Changed("headful") {
		cfg.ToolServer.Headless = !f.headful
	}
	if cmd.Flags().Changed("install-browsers") {
		cfg.ToolServer.InstallBrowsers = f.install
	}
	if cmd.Flags().Changed("strict") {
		cfg.Run.StrictPersist = f.strict
	}
}
