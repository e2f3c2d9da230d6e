// Package config loads eventsphere.json and applies EVENTSPHERE_* environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// FileName is the name of the configuration file searched for by LoadConfig.
const FileName = "eventsphere.json"

// EnvPrefix prefixes every environment override, e.g. EVENTSPHERE_SERVER_ADDR.
const EnvPrefix = "EVENTSPHERE_"

// ErrNotFound is returned by LoadConfig when no configuration file exists.
var ErrNotFound = errors.New("config file not found")

// Config represents the eventsphere.json configuration file
type Config struct {
	Server   ServerConfig   `json:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `json:"database" envPrefix:"DB_"`
	Client   ClientConfig   `json:"client" envPrefix:"CLIENT_"`
	Dev      DevConfig      `json:"dev" envPrefix:"DEV_"`
	LogLevel string         `json:"log_level" env:"LOG_LEVEL"`
}

// ServerConfig configures the web server and the service gateway
type ServerConfig struct {
	Addr       string   `json:"addr" env:"ADDR"`
	AssetsDir  string   `json:"assets_dir" env:"ASSETS"`
	AskTimeout Duration `json:"ask_timeout" env:"ASK_TIMEOUT"`
}

// DatabaseConfig configures the SQLite store
type DatabaseConfig struct {
	Path string `json:"path" env:"PATH"`
}

// ClientConfig configures the greet command
type ClientConfig struct {
	Endpoint   string `json:"endpoint" env:"ENDPOINT"`
	MaxRetries uint64 `json:"max_retries" env:"MAX_RETRIES"`
}

// DevConfig contains development mode configuration
type DevConfig struct {
	Enabled bool     `json:"enabled" env:"ENABLED"`
	Watch   []string `json:"watch" env:"WATCH"`
	Exclude []string `json:"exclude" env:"EXCLUDE"`
}

// Duration is a time.Duration written as "30s" in JSON and the environment.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       ":8080",
			AssetsDir:  "./web",
			AskTimeout: Duration(30 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "eventsphere.db",
		},
		Client: ClientConfig{
			Endpoint:   "http://localhost:8080/rpc/eventsphere.Backend.v1",
			MaxRetries: 2,
		},
		Dev: DevConfig{
			Watch:   []string{"*.wasm", "*.js", "*.html", "*.css"},
			Exclude: []string{".git", "node_modules", "*.tmp", "*~"},
		},
		LogLevel: "info",
	}
}

// Load resolves the configuration. An explicit path must exist; otherwise
// eventsphere.json is searched from the working directory upwards and
// Default is used when none is found. Environment overrides apply last.
//
// Relative paths in a loaded file are resolved against the file's directory.
func Load(path string) (*Config, error) {
	var (
		cfg *Config
		dir string
		err error
	)

	if path != "" {
		cfg, err = LoadConfigFromPath(path)
		dir = filepath.Dir(path)
	} else {
		cfg, dir, err = LoadConfig()
		if errors.Is(err, ErrNotFound) {
			cfg, dir, err = Default(), "", nil
		}
	}
	if err != nil {
		return nil, err
	}

	if dir != "" {
		cfg.Server.AssetsDir = resolve(dir, cfg.Server.AssetsDir)
		cfg.Database.Path = resolve(dir, cfg.Database.Path)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with EVENTSPHERE_* environment variables
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadConfig loads eventsphere.json from the current directory or a parent directory
func LoadConfig() (*Config, string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get current directory: %w", err)
	}

	return loadConfigFromDir(dir)
}

// LoadConfigFromPath loads a configuration file, filling unset fields from Default
func LoadConfigFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

func loadConfigFromDir(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		configPath := filepath.Join(dir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			config, err := LoadConfigFromPath(configPath)
			if err != nil {
				return nil, "", err
			}
			return config, dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return nil, "", fmt.Errorf("no %s in %s or any parent directory: %w", FileName, startDir, ErrNotFound)
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
