package browser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubInstall(t *testing.T, fn func(...*playwright.RunOptions) error) {
	t.Helper()
	orig := installFunc
	installFunc = fn
	t.Cleanup(func() { installFunc = orig })
}

func TestFindInstalled(t *testing.T) {
	cache := t.TempDir()
	older := filepath.Join(cache, "chromium-1100")
	newer := filepath.Join(cache, "chromium-1200")
	require.NoError(t, os.Mkdir(older, 0o755))
	require.NoError(t, os.Mkdir(newer, 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(cache, "chromium_headless_shell-1200"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cache, "chromium-9999"), nil, 0o644))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	dir, ok := FindInstalled(cache, "chromium")
	require.True(t, ok)
	assert.Equal(t, newer, dir)

	_, ok = FindInstalled(cache, "firefox")
	assert.False(t, ok)
	_, ok = FindInstalled(filepath.Join(cache, "missing"), "chromium")
	assert.False(t, ok)
}

func TestPreflightSkipsInstalled(t *testing.T) {
	cache := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(cache, "firefox-1480"), 0o755))
	stubInstall(t, func(...*playwright.RunOptions) error {
		t.Fatal("install must not run")
		return nil
	})

	require.NoError(t, Preflight(context.Background(), Options{Browser: "firefox", CacheDir: cache}, nil))
}

func TestPreflightSkipsChannels(t *testing.T) {
	stubInstall(t, func(...*playwright.RunOptions) error {
		t.Fatal("install must not run")
		return nil
	})
	require.NoError(t, Preflight(context.Background(), Options{Browser: "msedge", CacheDir: t.TempDir()}, nil))
}

func TestPreflightInstalls(t *testing.T) {
	var got *playwright.RunOptions
	stubInstall(t, func(opts ...*playwright.RunOptions) error {
		require.Len(t, opts, 1)
		got = opts[0]
		return nil
	})

	require.NoError(t, Preflight(context.Background(), Options{CacheDir: t.TempDir()}, nil))
	require.NotNil(t, got)
	assert.Equal(t, []string{"chromium"}, got.Browsers)
	assert.False(t, got.Verbose)
}

func TestPreflightInstallError(t *testing.T) {
	stubInstall(t, func(...*playwright.RunOptions) error { return errors.New("no network") })

	err := Preflight(context.Background(), Options{Browser: "webkit", CacheDir: t.TempDir()}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no network")
}

func TestPreflightCancelled(t *testing.T) {
	release := make(chan struct{})
	stubInstall(t, func(...*playwright.RunOptions) error {
		<-release
		return nil
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := Preflight(ctx, Options{CacheDir: t.TempDir()}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCacheDirEnv(t *testing.T) {
	t.Setenv(EnvBrowsersPath, "/opt/browsers")
	assert.Equal(t, "/opt/browsers", CacheDir())
}
