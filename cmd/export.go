package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mj1618/page-tracker/internal/model"
	"github.com/mj1618/page-tracker/internal/output"
	"github.com/mj1618/page-tracker/internal/store"
	"github.com/spf13/cobra"
)

// ExportResult is the output of the export command.
type ExportResult struct {
	OK          bool   `yaml:"ok"          json:"ok"`
	Action      string `yaml:"action"      json:"action"`
	SessionID   string `yaml:"sessionId"   json:"sessionId"`
	TotalEvents int    `yaml:"totalEvents" json:"totalEvents"`
	Format      string `yaml:"format"      json:"format"`
	Path        string `yaml:"path"        json:"path"`
}

var exportCmd = &cobra.Command{
	Use:   "export <bundle>",
	Short: "Convert an exported session to JSON, YAML or SQLite",
	Long: `Read a bundle (JSON, YAML or SQLite) and write it in another format.
SQLite exports add the session to the database, replacing an earlier copy.

Examples:
  page-tracker export tracking-data-session_1.json --format yaml
  page-tracker export tracking-data-session_1.json --format sqlite -o tracking.db`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("format", "json", "Target format: json, yaml, sqlite")
	exportCmd.Flags().StringP("output", "o", "", "Output path (default: tracking-data-<session>.<ext> next to the input)")
}

func runExport(cmd *cobra.Command, args []string) error {
	// Local --format shadows the root output format flag.
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(format)
	switch format {
	case "json", "yaml", "sqlite":
	default:
		return fmt.Errorf("unsupported export format: %s (use json, yaml, or sqlite)", format)
	}

	b, err := store.ReadBundle(args[0])
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		path = filepath.Join(filepath.Dir(args[0]), model.ExportFileName(b.SessionID, outputExt(format)))
	}
	if filepath.Clean(path) == filepath.Clean(args[0]) {
		return fmt.Errorf("refusing to overwrite the input bundle %s", args[0])
	}
	if err := store.WriteBundle(path, format, b); err != nil {
		return err
	}
	return output.Print(ExportResult{
		OK:          true,
		Action:      "export",
		SessionID:   b.SessionID,
		TotalEvents: b.TotalEvents,
		Format:      format,
		Path:        path,
	})
}
