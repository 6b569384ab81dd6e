// Package server exposes the tracking control surface as MCP tools.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/mj1618/page-tracker/internal/model"
	"go.uber.org/zap"
)

// Controller is the part of *tracker.Tracker the tools drive.
type Controller interface {
	Events() []model.Event
	GetTrackingSummary() (model.Summary, error)
	ExportTrackingData() (string, error)
	ClearTrackingData() int
	PauseTracking()
	ResumeTracking()
}

// Config holds MCP transport settings.
type Config struct {
	Transport string // stdio or streamable-http
	Port      int
}

// Server wraps the MCP server around one tracked page.
type Server struct {
	ctrl Controller
	log  *zap.Logger
	mcp  *mcpserver.MCPServer
}

// New creates a server with every tracking tool registered.
func New(ctrl Controller, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		ctrl: ctrl,
		log:  log,
		mcp:  mcpserver.NewMCPServer("page-tracker", version),
	}
	s.registerTools()
	return s
}

// Serve blocks serving the configured transport.
func (s *Server) Serve(cfg Config) error {
	switch cfg.Transport {
	case "", "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		addr := fmt.Sprintf(":%d", cfg.Port)
		s.log.Info("MCP server listening", zap.String("addr", addr))
		return mcpserver.NewStreamableHTTPServer(s.mcp).Start(addr)
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("tracking_summary",
			mcp.WithDescription("Summarize the tracking session: total events, counts per event type, session id, start and current time"),
		),
		s.handleSummary,
	)

	s.mcp.AddTool(
		mcp.NewTool("tracking_events",
			mcp.WithDescription("List recorded events, oldest first"),
			mcp.WithString("type", mcp.Description("Only events of this type: PAGE_VIEW, CLICK, SCROLL, VISIBILITY_CHANGE, KEYDOWN, FORM_SUBMIT")),
			mcp.WithNumber("after", mcp.Description("Only events with a larger event number")),
			mcp.WithNumber("limit", mcp.Description("Return at most this many events, the most recent ones (0 = all)")),
		),
		s.handleEvents,
	)

	s.mcp.AddTool(
		mcp.NewTool("tracking_export",
			mcp.WithDescription("Export the session log to a JSON file and return its path"),
		),
		s.handleExport,
	)

	s.mcp.AddTool(
		mcp.NewTool("tracking_clear",
			mcp.WithDescription("Discard every recorded event. The session id and start time are kept."),
		),
		s.handleClear,
	)

	s.mcp.AddTool(
		mcp.NewTool("tracking_pause",
			mcp.WithDescription("Stop recording. Events that happen while paused are dropped, not queued."),
		),
		s.handlePause,
	)

	s.mcp.AddTool(
		mcp.NewTool("tracking_resume",
			mcp.WithDescription("Resume recording after a pause"),
		),
		s.handleResume,
	)
}
