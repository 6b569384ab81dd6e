package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mj1618/page-tracker/internal/server"
	"github.com/mj1618/page-tracker/internal/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve --url <url>",
	Short: "Track a page in Chrome and expose the tracking controls over MCP",
	Long: `Open a URL in Chrome, start tracking it, and serve a Model Context Protocol
(MCP) server whose tools summarize, list, export, clear, pause and resume the
session.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  page-tracker serve --url https://example.com
  page-tracker serve --url https://example.com --transport streamable-http --port 8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addChromeFlags(serveCmd)
	serveCmd.Flags().String("url", "", "Page to open and track (required)")
	serveCmd.Flags().String("transport", "", "Transport: stdio, streamable-http (default from config: stdio)")
	serveCmd.Flags().Int("port", 0, "HTTP port for streamable-http transport (default from config: 8080)")
	serveCmd.Flags().String("control-addr", "", "Also serve the HTTP control API on this address")
	serveCmd.Flags().String("export-dir", "", "Directory for exports")
	_ = serveCmd.MarkFlagRequired("url")
}

func runServe(cmd *cobra.Command, args []string) error {
	applyChromeFlags(cmd)
	if cmd.Flags().Changed("transport") {
		cfg.MCP.Transport, _ = cmd.Flags().GetString("transport")
	}
	if cmd.Flags().Changed("port") {
		cfg.MCP.Port, _ = cmd.Flags().GetInt("port")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	url, _ := cmd.Flags().GetString("url")

	page, tr, err := openTracked(cmd.Context(), url)
	if err != nil {
		return err
	}
	defer page.Close()
	defer tr.Close()

	cancelEcho := tr.Observe(console.Event)
	defer cancelEcho()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr.Start()
	apiErr := startControlAPI(ctx, tr)

	srv := server.New(tr, version.Version, logger.Named("mcp"))
	return runUntilDone(ctx, stop, func() error {
		return srv.Serve(server.Config{Transport: cfg.MCP.Transport, Port: cfg.MCP.Port})
	}, apiErr)
}

// runUntilDone runs serve until it returns, ctx is done or the control API
// fails. It then cancels ctx through stop and waits for the API to shut
// down. A nil apiErr means no API is running.
func runUntilDone(ctx context.Context, stop context.CancelFunc, serve func() error, apiErr <-chan error) error {
	serveErr := make(chan error, 1)
	go func() { serveErr <- serve() }()

	var err error
	select {
	case err = <-serveErr:
		if err != nil {
			err = fmt.Errorf("MCP server: %w", err)
		}
	case err = <-apiErr:
		apiErr = nil
		if err != nil {
			logger.Error("control API stopped", zap.Error(err))
		}
	case <-ctx.Done():
	}

	stop()
	if apiErr != nil {
		if shutdownErr := <-apiErr; shutdownErr != nil && err == nil {
			err = shutdownErr
		}
	}
	return err
}
