// Package store reads and writes exported tracking bundles: JSON and YAML
// files, and SQLite databases.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mj1618/page-tracker/internal/model"
	"github.com/mj1618/page-tracker/internal/output"
	"gopkg.in/yaml.v3"
)

// ReadBundle loads a bundle file. Files ending in .yaml or .yml are parsed
// as YAML, .db and .sqlite as SQLite (the most recent session), anything
// else as JSON.
func ReadBundle(path string) (model.ExportBundle, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		db, err := Open(path)
		if err != nil {
			return model.ExportBundle{}, err
		}
		defer db.Close()
		return db.LatestBundle()
	}
	f, err := os.Open(path)
	if err != nil {
		return model.ExportBundle{}, fmt.Errorf("opening bundle: %w", err)
	}
	defer f.Close()
	return DecodeBundle(f, isYAML(path))
}

// DecodeBundle parses a bundle from r.
func DecodeBundle(r io.Reader, asYAML bool) (model.ExportBundle, error) {
	var b model.ExportBundle
	if asYAML {
		if err := yaml.NewDecoder(r).Decode(&b); err != nil {
			return b, fmt.Errorf("parsing bundle YAML: %w", err)
		}
	} else {
		if err := json.NewDecoder(r).Decode(&b); err != nil {
			return b, fmt.Errorf("parsing bundle JSON: %w", err)
		}
	}
	if b.SessionID == "" {
		return b, fmt.Errorf("bundle has no sessionId")
	}
	if b.TotalEvents != len(b.Events) {
		return b, fmt.Errorf("bundle declares %d events but contains %d", b.TotalEvents, len(b.Events))
	}
	return b, nil
}

// WriteBundle saves b to path in the given format ("json", "yaml" or
// "sqlite"). JSON is indented the same way the tracker exports it.
func WriteBundle(path, format string, b model.ExportBundle) error {
	switch format {
	case "", "json", "yaml", "sqlite":
	default:
		return fmt.Errorf("unknown export format %q (use json, yaml or sqlite)", format)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if format == "sqlite" {
		db, err := Open(path)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.SaveBundle(b)
	}

	var buf bytes.Buffer
	switch format {
	case "", "json":
		if err := output.WritePrettyJSON(&buf, b); err != nil {
			return err
		}
	case "yaml":
		if err := output.WriteYAML(&buf, b); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing bundle: %w", err)
	}
	return nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
