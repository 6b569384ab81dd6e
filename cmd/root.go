package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mj1618/page-tracker/internal/config"
	"github.com/mj1618/page-tracker/internal/output"
	"github.com/mj1618/page-tracker/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "page-tracker",
	Short: "Record user interaction on web pages",
	Long: `Record page views, clicks, scrolls, visibility changes, key presses and
form submissions on a web page into a session log that can be summarized,
exported and rendered as a click map.`,
	SilenceUsage: true,
}

// Resolved in PersistentPreRunE and shared by every command.
var (
	cfg     = config.Defaults()
	logger  = zap.NewNop()
	console = output.NewConsole(nil)
)

func Execute() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().String("format", "yaml", "Output format: yaml, json")
	rootCmd.PersistentFlags().Bool("pretty", false, "Indent JSON output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default $XDG_CONFIG_HOME/page-tracker/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: console, json")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Do not echo tracked events to stderr")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Use the root persistent flag directly to avoid conflicts with
		// subcommand local flags (e.g. export --format sqlite).
		format, _ := rootCmd.PersistentFlags().GetString("format")
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		output.OutputFormat = f
		output.PrettyOutput, _ = rootCmd.PersistentFlags().GetBool("pretty")

		path, _ := rootCmd.PersistentFlags().GetString("config")
		explicit := path != ""
		if !explicit {
			path = config.DefaultPath()
		}
		loaded, err := config.Load(path, explicit)
		if err != nil {
			return err
		}
		if v, _ := rootCmd.PersistentFlags().GetString("log-level"); v != "" {
			loaded.Log.Level = v
		}
		if v, _ := rootCmd.PersistentFlags().GetString("log-format"); v != "" {
			loaded.Log.Format = v
		}
		cfg = loaded

		l, err := newLogger(cfg.Log, os.Stderr)
		if err != nil {
			return err
		}
		logger = l

		var w io.Writer = os.Stderr
		if quiet, _ := rootCmd.PersistentFlags().GetBool("quiet"); quiet {
			w = io.Discard
		}
		console = output.NewConsole(w)
		return nil
	}
}

// outputExt maps an export format to a file extension.
func outputExt(format string) string {
	switch strings.ToLower(format) {
	case "yaml":
		return "yaml"
	case "sqlite":
		return "db"
	}
	return "json"
}
