package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudankdk/refix-sandbox/internal/languages"
	"github.com/sudankdk/refix-sandbox/internal/sandbox"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, sandbox.DefaultTimeout, cfg.Sandbox.Timeout)
	assert.Equal(t, sandbox.DefaultTimeout+30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, time.Minute, cfg.Sandbox.SweepInterval)
	assert.False(t, cfg.Sandbox.PullImages)
	assert.Equal(t, "info", cfg.Log.Level)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, languages.PythonImage, reg.Resolve("python").Image)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REFIX_SERVER_ADDR", ":8080")
	t.Setenv("REFIX_SANDBOX_TIMEOUT", "60s")
	t.Setenv("REFIX_SANDBOX_PULL_IMAGES", "true")
	t.Setenv("REFIX_PROFILES_PYTHON_IMAGE", "python-runner:3.12")
	t.Setenv("REFIX_LOG_FORMAT", "json")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 60*time.Second, cfg.Sandbox.Timeout)
	assert.True(t, cfg.Sandbox.PullImages)
	assert.Equal(t, "json", cfg.Log.Format)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, "python-runner:3.12", reg.Resolve("python").Image)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refix-sandbox.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sandbox:
  timeout: 1h
profiles:
  typescript:
    image: node-runner:22
    memory: 768m
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, sandbox.MaxTimeout, cfg.Sandbox.Timeout, "timeout is clamped")
	assert.Equal(t, sandbox.MaxTimeout+30*time.Second, cfg.Server.WriteTimeout, "write timeout follows the run timeout")

	reg, err := cfg.Registry()
	require.NoError(t, err)
	p := reg.Resolve("TypeScript")
	assert.Equal(t, "node-runner:22", p.Image)
	assert.Equal(t, int64(768*1024*1024), p.Memory)
}

func TestLoadInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unknown profile", "profiles:\n  ruby:\n    image: ruby\n"},
		{"bad memory", "profiles:\n  python:\n    memory: plenty\n"},
		{"bad body limit", "server:\n  body_limit: -1\n"},
		{"write timeout below run timeout", "server:\n  write_timeout: 30s\nsandbox:\n  timeout: 5m\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "refix-sandbox.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.body), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadExplicitWriteTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refix-sandbox.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  write_timeout: 10m\nsandbox:\n  timeout: 2m\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Sandbox.Timeout)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
