// Package config resolves settings with the priority cascade
// defaults < YAML file < PAGE_TRACKER_* environment < command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Tracker TrackerConfig `yaml:"tracker"`
	Chrome  ChromeConfig  `yaml:"chrome"`
	Export  ExportConfig  `yaml:"export"`
	Control ControlConfig `yaml:"control"`
	MCP     MCPConfig     `yaml:"mcp"`
	Log     LogConfig     `yaml:"log"`
}

type TrackerConfig struct {
	ScrollDebounce time.Duration `yaml:"scroll_debounce"`
}

type ChromeConfig struct {
	Headless    bool          `yaml:"headless"`
	ExecPath    string        `yaml:"exec_path"`
	Width       int           `yaml:"width"`
	Height      int           `yaml:"height"`
	UserAgent   string        `yaml:"user_agent"`
	LoadTimeout time.Duration `yaml:"load_timeout"`
}

type ExportConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"` // json, yaml or sqlite
}

type ControlConfig struct {
	Addr string `yaml:"addr"` // empty disables the HTTP control API
}

type MCPConfig struct {
	Transport string `yaml:"transport"` // stdio or streamable-http
	Port      int    `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Defaults returns the base configuration.
func Defaults() Config {
	return Config{
		Tracker: TrackerConfig{ScrollDebounce: 300 * time.Millisecond},
		Chrome: ChromeConfig{
			Width:       1280,
			Height:      800,
			LoadTimeout: 30 * time.Second,
		},
		Export: ExportConfig{Dir: ".", Format: "json"},
		MCP:    MCPConfig{Transport: "stdio", Port: 8080},
		Log:    LogConfig{Level: "warn", Format: "console"},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/page-tracker/config.yaml, falling back to
// the user config directory.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		d, err := os.UserConfigDir()
		if err != nil {
			return ""
		}
		dir = d
	}
	return filepath.Join(dir, "page-tracker", "config.yaml")
}

// Load applies the file at path (if it exists) and the environment on top of
// the defaults. An explicitly named file that is missing is an error; the
// default path may be absent.
func Load(path string, explicit bool) (Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			if !explicit && errors.Is(err, os.ErrNotExist) {
				err = nil
			}
			if err != nil {
				return cfg, err
			}
		}
	}
	if err := loadEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// loadFile merges a YAML file into cfg. Keys absent from the file keep their
// current values.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

const envPrefix = "PAGE_TRACKER_"

// loadEnv applies PAGE_TRACKER_* overrides. lookup is os.LookupEnv outside
// tests.
func loadEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	dur("SCROLL_DEBOUNCE", &cfg.Tracker.ScrollDebounce)
	flag("HEADLESS", &cfg.Chrome.Headless)
	str("CHROME_PATH", &cfg.Chrome.ExecPath)
	num("WINDOW_WIDTH", &cfg.Chrome.Width)
	num("WINDOW_HEIGHT", &cfg.Chrome.Height)
	str("USER_AGENT", &cfg.Chrome.UserAgent)
	dur("LOAD_TIMEOUT", &cfg.Chrome.LoadTimeout)
	str("EXPORT_DIR", &cfg.Export.Dir)
	str("EXPORT_FORMAT", &cfg.Export.Format)
	str("CONTROL_ADDR", &cfg.Control.Addr)
	str("MCP_TRANSPORT", &cfg.MCP.Transport)
	num("MCP_PORT", &cfg.MCP.Port)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	return errors.Join(errs...)
}

// Validate checks enumerations and ranges.
func (c Config) Validate() error {
	if c.Tracker.ScrollDebounce <= 0 {
		return fmt.Errorf("tracker.scroll_debounce must be positive, got %s", c.Tracker.ScrollDebounce)
	}
	if c.Chrome.Width <= 0 || c.Chrome.Height <= 0 {
		return fmt.Errorf("chrome window size must be positive, got %dx%d", c.Chrome.Width, c.Chrome.Height)
	}
	switch strings.ToLower(c.Export.Format) {
	case "json", "yaml", "sqlite":
	default:
		return fmt.Errorf("export.format must be json, yaml or sqlite, got %q", c.Export.Format)
	}
	switch c.MCP.Transport {
	case "stdio", "streamable-http":
	default:
		return fmt.Errorf("mcp.transport must be stdio or streamable-http, got %q", c.MCP.Transport)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}
