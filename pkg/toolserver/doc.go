// Package toolserver owns the lifecycle of subprocess-backed MCP tool servers.
//
// A tool server is a local process (typically `npx @playwright/mcp`) that
// exposes browser automation over HTTP. The agent only ever talks to it
// through a protocol session; this package makes sure the process exists,
// answers on its port, and is gone again when the run ends.
//
// # Lifecycle
//
// A Manager walks one server through a fixed set of states:
//
//	NotStarted ──Start──▶ Starting ──ready──▶ Ready ──Stop──▶ Stopping ──▶ Stopped
//	                         │
//	                         └──exit / timeout──▶ Failed
//
// Start allocates a free port, spawns the process in its own process group
// with output redirected to a log file, waits a short grace period, then
// polls the endpoint until anything answers. A process that exits during the
// grace period or while being probed fails the start with a *StartupError
// carrying the captured output.
//
// Stop escalates: interrupt the process group, wait the stop grace, SIGTERM,
// wait the terminate grace, then SIGKILL. Once the process is confirmed dead,
// leftover processes whose command line matches the configured stray patterns
// are signalled as well. Problems during Stop are logged, never returned.
//
// # External servers
//
// When ServerConfig.ExternalURL is set no process is spawned: Start returns
// the URL immediately and Stop does nothing, since the server belongs to
// someone else.
//
// # Example
//
//	cfg := toolserver.PlaywrightConfig(toolserver.PlaywrightOptions{
//	    Browser:  "chromium",
//	    Headless: true,
//	})
//	mgr := toolserver.NewManager(cfg, logger)
//	endpoint, err := mgr.Start(ctx)
//	if err != nil {
//	    return err
//	}
//	defer mgr.Stop(context.Background())
package toolserver
