package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mj1618/page-tracker/internal/model"
	"github.com/mj1618/page-tracker/internal/output"
	"github.com/mj1618/page-tracker/internal/session"
	"github.com/mj1618/page-tracker/internal/store"
	"github.com/mj1618/page-tracker/internal/tracker"
)

// controlCommands are the words accepted on stdin while recording.
var controlCommands = []string{"pause", "resume", "clear", "summary", "export", "events [n]", "flush", "help", "quit"}

// runControlLoop executes one control command per input line until quit,
// EOF or ctx is done.
func runControlLoop(ctx context.Context, r io.Reader, tr *tracker.Tracker, con *output.Console, w io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			if quit := handleControl(line, tr, con, w); quit {
				return nil
			}
		}
	}
}

// handleControl runs one command line and reports whether to stop.
func handleControl(line string, tr *tracker.Tracker, con *output.Console, w io.Writer) bool {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "pause":
		tr.PauseTracking()
		con.Paused()
	case "resume":
		tr.ResumeTracking()
		con.Resumed()
	case "clear":
		con.Cleared(tr.ClearTrackingData())
	case "summary":
		sum, err := tr.GetTrackingSummary()
		if err != nil {
			con.Warn("No tracking data available")
			return false
		}
		con.Summary(sum)
	case "export":
		format := cfg.Export.Format
		if len(fields) > 1 {
			format = fields[1]
		}
		path, err := exportSession(tr, format, cfg.Export.Dir)
		switch {
		case errors.Is(err, session.ErrNoData):
			con.Warn("No tracking data to export")
		case err != nil:
			con.Warn(err.Error())
		default:
			b, _ := tr.Bundle()
			con.Exported(path, b)
		}
	case "events":
		events := tr.Events()
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil && n >= 0 && n < len(events) {
				events = events[len(events)-n:]
			}
		}
		for _, ev := range events {
			fmt.Fprint(w, output.FormatEvent(ev))
		}
	case "flush":
		tr.FlushScroll()
	case "help", "?":
		fmt.Fprintf(w, "Commands: %s\n", strings.Join(controlCommands, ", "))
	case "quit", "exit", "q":
		return true
	default:
		con.Warn(fmt.Sprintf("unknown command %q (try help)", fields[0]))
	}
	return false
}

// exportSession writes the session log. JSON goes through the page's
// download mechanism; YAML and SQLite are written into dir.
func exportSession(tr *tracker.Tracker, format, dir string) (string, error) {
	format = strings.ToLower(format)
	if format == "" || format == "json" {
		return tr.ExportTrackingData()
	}
	b, err := tr.ExportBundle()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, model.ExportFileName(b.SessionID, outputExt(format)))
	if err := store.WriteBundle(path, format, b); err != nil {
		return "", err
	}
	return path, nil
}
