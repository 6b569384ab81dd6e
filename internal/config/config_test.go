package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults_Valid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Tracker.ScrollDebounce != 300*time.Millisecond {
		t.Errorf("scroll debounce: got %s", cfg.Tracker.ScrollDebounce)
	}
}

func TestLoad_FileOverridesOnlyPresentKeys(t *testing.T) {
	path := writeFile(t, "tracker:\n  scroll_debounce: 150ms\nchrome:\n  headless: true\n")
	cfg, err := Load(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tracker.ScrollDebounce != 150*time.Millisecond || !cfg.Chrome.Headless {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Chrome.Width != 1280 || cfg.Export.Format != "json" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := Load(missing, false); err != nil {
		t.Errorf("missing default file should be ignored: %v", err)
	}
	if _, err := Load(missing, true); err == nil {
		t.Error("missing explicit file should fail")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	if _, err := Load(writeFile(t, "tracker: [\n"), true); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeFile(t, "export:\n  format: csv\n"), true)
	if err == nil || !strings.Contains(err.Error(), "export.format") {
		t.Errorf("expected export.format error, got %v", err)
	}
}

func TestLoadEnv(t *testing.T) {
	env := map[string]string{
		"PAGE_TRACKER_SCROLL_DEBOUNCE": "1s",
		"PAGE_TRACKER_HEADLESS":        "true",
		"PAGE_TRACKER_WINDOW_WIDTH":    "800",
		"PAGE_TRACKER_CONTROL_ADDR":    "127.0.0.1:9000",
		"PAGE_TRACKER_LOG_LEVEL":       "debug",
	}
	cfg := Defaults()
	err := loadEnv(&cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tracker.ScrollDebounce != time.Second || !cfg.Chrome.Headless || cfg.Chrome.Width != 800 {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.Control.Addr != "127.0.0.1:9000" || cfg.Log.Level != "debug" {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestLoadEnv_BadValues(t *testing.T) {
	env := map[string]string{
		"PAGE_TRACKER_SCROLL_DEBOUNCE": "soon",
		"PAGE_TRACKER_MCP_PORT":        "eighty",
	}
	cfg := Defaults()
	err := loadEnv(&cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "SCROLL_DEBOUNCE") || !strings.Contains(err.Error(), "MCP_PORT") {
		t.Errorf("both bad values should be reported: %v", err)
	}
	if cfg.Tracker.ScrollDebounce != 300*time.Millisecond {
		t.Error("bad value should not overwrite the default")
	}
}
