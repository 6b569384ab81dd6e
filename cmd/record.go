package cmd

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mj1618/page-tracker/internal/api"
	"github.com/mj1618/page-tracker/internal/clickmap"
	"github.com/mj1618/page-tracker/internal/platform/chrome"
	"github.com/mj1618/page-tracker/internal/tracker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recordCmd = &cobra.Command{
	Use:   "record <url>",
	Short: "Open a page in Chrome and record interaction with it",
	Long: `Open a URL in Chrome and record every page view, click, scroll, visibility
change, key press and form submission. Events are echoed to stderr as they
happen.

While recording, type commands on stdin:
  pause, resume, clear, summary, export [json|yaml|sqlite], events [n], flush, help, quit

Recording stops on quit, EOF, Ctrl-C or when the browser window is closed.

Examples:
  page-tracker record https://example.com
  page-tracker record https://example.com --control-addr 127.0.0.1:8765
  page-tracker record https://example.com --export-on-exit --clickmap clicks.png`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	addChromeFlags(recordCmd)
	recordCmd.Flags().String("control-addr", "", "Serve the HTTP control API on this address (e.g. 127.0.0.1:8765)")
	recordCmd.Flags().Bool("export-on-exit", false, "Export the session when recording stops")
	recordCmd.Flags().String("export-dir", "", "Directory for exports (default from config: .)")
	recordCmd.Flags().String("export-format", "", "Export format: json, yaml, sqlite")
	recordCmd.Flags().String("screenshot", "", "Save a full-page PNG screenshot here when recording stops")
	recordCmd.Flags().String("clickmap", "", "Save a click map over a full-page screenshot here when recording stops")
	recordCmd.Flags().Bool("no-stdin", false, "Do not read control commands from stdin")
}

// addChromeFlags registers browser and tracker flags shared by record and serve.
func addChromeFlags(c *cobra.Command) {
	c.Flags().Bool("headless", false, "Run Chrome without a window")
	c.Flags().String("chrome-path", "", "Chrome executable (default: auto-detect)")
	c.Flags().Int("width", 0, "Browser window width")
	c.Flags().Int("height", 0, "Browser window height")
	c.Flags().Duration("scroll-debounce", 0, "Quiet time before a scroll is recorded (default 300ms)")
}

// applyChromeFlags folds explicitly set flags into the resolved config.
func applyChromeFlags(c *cobra.Command) {
	flags := c.Flags()
	if flags.Changed("headless") {
		cfg.Chrome.Headless, _ = flags.GetBool("headless")
	}
	if flags.Changed("chrome-path") {
		cfg.Chrome.ExecPath, _ = flags.GetString("chrome-path")
	}
	if flags.Changed("width") {
		cfg.Chrome.Width, _ = flags.GetInt("width")
	}
	if flags.Changed("height") {
		cfg.Chrome.Height, _ = flags.GetInt("height")
	}
	if flags.Changed("scroll-debounce") {
		cfg.Tracker.ScrollDebounce, _ = flags.GetDuration("scroll-debounce")
	}
	if flags.Lookup("control-addr") != nil && flags.Changed("control-addr") {
		cfg.Control.Addr, _ = flags.GetString("control-addr")
	}
	if flags.Lookup("export-dir") != nil && flags.Changed("export-dir") {
		cfg.Export.Dir, _ = flags.GetString("export-dir")
	}
	if flags.Lookup("export-format") != nil && flags.Changed("export-format") {
		cfg.Export.Format, _ = flags.GetString("export-format")
	}
}

// openTracked launches Chrome on url and starts tracking it.
func openTracked(ctx context.Context, url string) (*chrome.Page, *tracker.Tracker, error) {
	page, err := chrome.Open(ctx, url, chrome.Options{
		Headless:     cfg.Chrome.Headless,
		ExecPath:     cfg.Chrome.ExecPath,
		WindowWidth:  cfg.Chrome.Width,
		WindowHeight: cfg.Chrome.Height,
		UserAgent:    cfg.Chrome.UserAgent,
		DownloadDir:  cfg.Export.Dir,
		LoadTimeout:  cfg.Chrome.LoadTimeout,
		Logger:       logger.Named("chrome"),
	})
	if err != nil {
		return nil, nil, err
	}
	tr := tracker.New(page,
		tracker.WithLogger(logger.Named("tracker")),
		tracker.WithScrollDebounce(cfg.Tracker.ScrollDebounce),
	)
	return page, tr, nil
}

// startControlAPI serves the HTTP API in the background when an address is
// configured. The returned channel yields the server's exit error once ctx
// is done or the server fails; it is nil when no address is configured.
func startControlAPI(ctx context.Context, tr *tracker.Tracker) <-chan error {
	if cfg.Control.Addr == "" {
		return nil
	}
	errc := make(chan error, 1)
	srv := api.New(tr, logger.Named("api"))
	go func() {
		errc <- srv.ListenAndServe(ctx, cfg.Control.Addr, func(addr net.Addr) {
			console.Note(fmt.Sprintf("Control API listening on http://%s", addr))
		})
	}()
	return errc
}

func runRecord(cmd *cobra.Command, args []string) error {
	applyChromeFlags(cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	page, tr, err := openTracked(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer page.Close()
	defer tr.Close()

	cancelEcho := tr.Observe(console.Event)
	defer cancelEcho()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console.Banner(tr.Session().ID(), controlCommands)
	tr.Start()
	apiErr := startControlAPI(ctx, tr)

	loopDone := make(chan error, 1)
	if noStdin, _ := cmd.Flags().GetBool("no-stdin"); noStdin {
		loopDone = nil
	} else {
		go func() { loopDone <- runControlLoop(ctx, os.Stdin, tr, console, os.Stderr) }()
	}

	select {
	case <-ctx.Done():
		logger.Info("interrupted")
	case err := <-loopDone:
		if err != nil {
			logger.Warn("reading commands", zap.Error(err))
		}
	case <-page.Done():
		logger.Info("browser closed")
	case err := <-apiErr:
		if err != nil {
			return err
		}
	}
	stop()

	tr.FlushScroll()
	return finishRecording(cmd, page, tr)
}

// finishRecording runs the on-exit exports. It needs the browser still open
// for screenshots.
func finishRecording(cmd *cobra.Command, page *chrome.Page, tr *tracker.Tracker) error {
	if exportOnExit, _ := cmd.Flags().GetBool("export-on-exit"); exportOnExit {
		path, err := exportSession(tr, cfg.Export.Format, cfg.Export.Dir)
		if err != nil {
			console.Warn(fmt.Sprintf("export skipped: %v", err))
		} else {
			b, _ := tr.Bundle()
			console.Exported(path, b)
		}
	}

	shotPath, _ := cmd.Flags().GetString("screenshot")
	mapPath, _ := cmd.Flags().GetString("clickmap")
	if shotPath == "" && mapPath == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	shot, err := page.Screenshot(ctx)
	if err != nil {
		return err
	}
	if shotPath != "" {
		if err := os.WriteFile(shotPath, shot, 0o644); err != nil {
			return fmt.Errorf("writing screenshot: %w", err)
		}
	}
	if mapPath == "" {
		return nil
	}
	bg, err := png.Decode(bytes.NewReader(shot))
	if err != nil {
		return fmt.Errorf("decoding screenshot: %w", err)
	}
	f, err := os.Create(mapPath)
	if err != nil {
		return fmt.Errorf("creating click map: %w", err)
	}
	defer f.Close()
	return clickmap.WritePNG(f, tr.Events(), clickmap.Options{
		Background: bg,
		PageWidth:  page.Scroll().ScrollWidth,
	})
}
