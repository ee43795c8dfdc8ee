// Package browser makes sure the Playwright browser the tool server needs is
// installed before the server starts, so that the first navigation does not
// stall on a download.
package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/gobwas/glob"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/jobscout/pkg/logging"
)

// EnvBrowsersPath overrides the Playwright browser cache directory.
const EnvBrowsersPath = "PLAYWRIGHT_BROWSERS_PATH"

// installable are the browsers Playwright downloads itself. Channels such as
// "chrome" or "msedge" use the system installation.
var installable = map[string]bool{
	"chromium": true,
	"firefox":  true,
	"webkit":   true,
}

// Options configures Preflight.
type Options struct {
	Browser string
	// CacheDir overrides the browser cache lookup.
	CacheDir string
	// Output receives installer progress. Nil discards it.
	Output io.Writer
}

// installFunc is replaced in tests.
var installFunc = playwright.Install

// Preflight installs opts.Browser unless it is already in the cache. It
// returns when the install finishes or ctx is done. playwright.Install takes
// no context, so on cancellation the download keeps running in the
// background until the driver exits; a later Preflight finds the finished
// browser in the cache.
func Preflight(ctx context.Context, opts Options, log *logging.Logger) error {
	if log == nil {
		log = logging.Nop()
	}
	name := opts.Browser
	if name == "" {
		name = "chromium"
	}
	if !installable[name] {
		log.Infof("browser %q is a system channel, skipping install", name)
		return nil
	}

	cache := opts.CacheDir
	if cache == "" {
		cache = CacheDir()
	}
	if dir, ok := FindInstalled(cache, name); ok {
		log.Infof("found installed %s at %s", name, dir)
		return nil
	}

	out := opts.Output
	if out == nil {
		out = io.Discard
	}
	log.Infof("installing playwright %s", name)
	start := time.Now()

	done := make(chan error, 1)
	go func() {
		done <- installFunc(&playwright.RunOptions{
			Browsers: []string{name},
			Verbose:  opts.Output != nil,
			Stdout:   out,
			Stderr:   out,
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to install playwright %s: %w", name, err)
		}
		log.Infof("installed %s in %s", name, time.Since(start).Round(time.Millisecond))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser install interrupted: %w", ctx.Err())
	}
}

// CacheDir returns the directory Playwright stores browsers in.
func CacheDir() string {
	if dir := os.Getenv(EnvBrowsersPath); dir != "" && dir != "0" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "ms-playwright")
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "ms-playwright")
		}
		return filepath.Join(home, "AppData", "Local", "ms-playwright")
	default:
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "ms-playwright")
		}
		return filepath.Join(home, ".cache", "ms-playwright")
	}
}

// FindInstalled returns the most recently modified "<browser>-<revision>"
// directory under cache.
func FindInstalled(cache, browser string) (string, bool) {
	if cache == "" {
		return "", false
	}
	entries, err := os.ReadDir(cache)
	if err != nil {
		return "", false
	}
	g, err := glob.Compile(browser + "-[0-9]*")
	if err != nil {
		return "", false
	}

	type candidate struct {
		path string
		mod  time.Time
	}
	var found []candidate
	for _, e := range entries {
		if !e.IsDir() || !g.Match(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{filepath.Join(cache, e.Name()), info.ModTime()})
	}
	if len(found) == 0 {
		return "", false
	}
	sort.Slice(found, func(i, j int) bool { return found[i].mod.After(found[j].mod) })
	return found[0].path, true
}
