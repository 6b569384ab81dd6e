package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mj1618/page-tracker/internal/model"
	"github.com/mj1618/page-tracker/internal/session"
	"gopkg.in/yaml.v3"
)

// toolResult is the YAML document returned by state-changing tools.
type toolResult struct {
	OK      bool   `yaml:"ok"`
	Action  string `yaml:"action"`
	Message string `yaml:"message,omitempty"`
	Path    string `yaml:"path,omitempty"`
	Cleared *int   `yaml:"cleared,omitempty"`
	Paused  *bool  `yaml:"paused,omitempty"`
	Error   string `yaml:"error,omitempty"`
}

func resultToText(r toolResult) string {
	b, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Sprintf("ok: %v\naction: %s\nerror: %s", r.OK, r.Action, r.Error)
	}
	return string(b)
}

func yamlResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func noData(action string) *mcp.CallToolResult {
	return mcp.NewToolResultError(resultToText(toolResult{Action: action, Error: session.ErrNoData.Error()}))
}

func (s *Server) handleSummary(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.ctrl.GetTrackingSummary()
	if errors.Is(err, session.ErrNoData) {
		return noData("summary"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return yamlResult(sum)
}

func (s *Server) handleEvents(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := model.EventType(request.GetString("type", ""))
	after := request.GetInt("after", 0)
	limit := request.GetInt("limit", 0)

	out := []model.Event{}
	for _, ev := range s.ctrl.Events() {
		if ev.Sequence <= after || (kind != "" && ev.Type != kind) {
			continue
		}
		out = append(out, ev)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return yamlResult(out)
}

func (s *Server) handleExport(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := s.ctrl.ExportTrackingData()
	if errors.Is(err, session.ErrNoData) {
		return noData("export"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(resultToText(toolResult{Action: "export", Error: err.Error()})), nil
	}
	return mcp.NewToolResultText(resultToText(toolResult{OK: true, Action: "export", Path: path})), nil
}

func (s *Server) handleClear(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := s.ctrl.ClearTrackingData()
	return mcp.NewToolResultText(resultToText(toolResult{
		OK:      true,
		Action:  "clear",
		Message: fmt.Sprintf("cleared %d tracked events", n),
		Cleared: &n,
	})), nil
}

func (s *Server) handlePause(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.ctrl.PauseTracking()
	paused := true
	return mcp.NewToolResultText(resultToText(toolResult{OK: true, Action: "pause", Paused: &paused})), nil
}

func (s *Server) handleResume(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.ctrl.ResumeTracking()
	paused := false
	return mcp.NewToolResultText(resultToText(toolResult{OK: true, Action: "resume", Paused: &paused})), nil
}
