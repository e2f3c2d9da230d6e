package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(oldWd) })
}

func TestLoadConfigFromPath(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "all fields",
			content: `{
				"server": {"addr": ":9090", "assets_dir": "./public", "ask_timeout": "5s"},
				"database": {"path": "/var/lib/eventsphere/data.db"},
				"client": {"endpoint": "http://events.local/rpc/eventsphere.Backend.v1", "max_retries": 4},
				"dev": {"enabled": true, "watch": ["*.wasm"], "exclude": ["tmp"]},
				"log_level": "debug"
			}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ":9090", cfg.Server.Addr)
				assert.Equal(t, "./public", cfg.Server.AssetsDir)
				assert.Equal(t, 5*time.Second, cfg.Server.AskTimeout.Std())
				assert.Equal(t, "/var/lib/eventsphere/data.db", cfg.Database.Path)
				assert.Equal(t, "http://events.local/rpc/eventsphere.Backend.v1", cfg.Client.Endpoint)
				assert.Equal(t, uint64(4), cfg.Client.MaxRetries)
				assert.True(t, cfg.Dev.Enabled)
				assert.Equal(t, []string{"*.wasm"}, cfg.Dev.Watch)
				assert.Equal(t, []string{"tmp"}, cfg.Dev.Exclude)
				assert.Equal(t, "debug", cfg.LogLevel)
			},
		},
		{
			name:    "defaults for missing fields",
			content: `{"server": {"addr": ":9090"}}`,
			check: func(t *testing.T, cfg *Config) {
				def := Default()
				assert.Equal(t, ":9090", cfg.Server.Addr)
				assert.Equal(t, def.Server.AssetsDir, cfg.Server.AssetsDir)
				assert.Equal(t, def.Server.AskTimeout, cfg.Server.AskTimeout)
				assert.Equal(t, def.Database.Path, cfg.Database.Path)
				assert.Equal(t, def.Dev.Watch, cfg.Dev.Watch)
				assert.Equal(t, "info", cfg.LogLevel)
			},
		},
		{
			name:    "empty object",
			content: `{}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), tt.content)

			got, err := LoadConfigFromPath(path)
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestLoadConfigFromPath_Errors(t *testing.T) {
	tests := []struct {
		name        string
		setupFunc   func(string) string
		errContains string
	}{
		{
			name: "file not found",
			setupFunc: func(tmpDir string) string {
				return filepath.Join(tmpDir, "nonexistent.json")
			},
			errContains: "failed to read config file",
		},
		{
			name: "invalid json",
			setupFunc: func(tmpDir string) string {
				path := filepath.Join(tmpDir, FileName)
				os.WriteFile(path, []byte("invalid json"), 0o644)
				return path
			},
			errContains: "failed to parse config file",
		},
		{
			name: "invalid duration",
			setupFunc: func(tmpDir string) string {
				path := filepath.Join(tmpDir, FileName)
				os.WriteFile(path, []byte(`{"server": {"ask_timeout": "soon"}}`), 0o644)
				return path
			},
			errContains: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := tt.setupFunc(t.TempDir())

			_, err := LoadConfigFromPath(configPath)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	// Test: config in parent directory
	t.Run("config in parent dir", func(t *testing.T) {
		tmpDir := t.TempDir()
		subDir := filepath.Join(tmpDir, "subdir")
		require.NoError(t, os.MkdirAll(subDir, 0o755))
		writeConfig(t, tmpDir, `{"server": {"addr": ":7070"}}`)
		chdir(t, subDir)

		got, root, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, ":7070", got.Server.Addr)

		expectedRoot, _ := filepath.EvalSymlinks(tmpDir)
		actualRoot, _ := filepath.EvalSymlinks(root)
		assert.Equal(t, expectedRoot, actualRoot)
	})

	// Test: no config found
	t.Run("no config found", func(t *testing.T) {
		chdir(t, t.TempDir())

		_, _, err := LoadConfig()
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLoad(t *testing.T) {
	// Test: defaults when nothing is found
	t.Run("defaults", func(t *testing.T) {
		chdir(t, t.TempDir())

		got, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), got)
	})

	// Test: relative paths resolve against the config directory
	t.Run("relative paths", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, `{"server": {"assets_dir": "web"}, "database": {"path": "data/es.db"}}`)

		got, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "web"), got.Server.AssetsDir)
		assert.Equal(t, filepath.Join(dir, "data/es.db"), got.Database.Path)
	})

	// Test: explicit path must exist
	t.Run("missing explicit path", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	// Test: environment overrides file values
	t.Run("env overrides", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), `{"server": {"addr": ":9090"}, "log_level": "debug"}`)
		t.Setenv("EVENTSPHERE_SERVER_ADDR", ":6060")
		t.Setenv("EVENTSPHERE_SERVER_ASK_TIMEOUT", "2s")
		t.Setenv("EVENTSPHERE_DB_PATH", "/tmp/override.db")
		t.Setenv("EVENTSPHERE_DEV_ENABLED", "true")
		t.Setenv("EVENTSPHERE_LOG_LEVEL", "warn")

		got, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":6060", got.Server.Addr)
		assert.Equal(t, 2*time.Second, got.Server.AskTimeout.Std())
		assert.Equal(t, "/tmp/override.db", got.Database.Path)
		assert.True(t, got.Dev.Enabled)
		assert.Equal(t, "warn", got.LogLevel)
	})

	// Test: invalid env value
	t.Run("invalid env", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("EVENTSPHERE_SERVER_ASK_TIMEOUT", "later")

		_, err := Load("")
		assert.ErrorContains(t, err, "parse env")
	})
}
