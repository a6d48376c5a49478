package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/desktop-switch/internal/activation"
	"github.com/mj1618/desktop-switch/internal/model"
	"github.com/mj1618/desktop-switch/internal/output"
	"github.com/mj1618/desktop-switch/internal/session"
)

// ActivateResult is the response of activate_window.
type ActivateResult struct {
	OK      bool   `yaml:"ok"               json:"ok"`
	Outcome string `yaml:"outcome"          json:"outcome"`
	Reason  string `yaml:"reason,omitempty" json:"reason,omitempty"`
	PID     int    `yaml:"pid"              json:"pid"`
	Title   string `yaml:"title"            json:"title"`
	Error   string `yaml:"error,omitempty"  json:"error,omitempty"`
}

// PermissionResult is the response of permission_status.
type PermissionResult struct {
	Granted  bool `yaml:"granted"  json:"granted"`
	Prompted bool `yaml:"prompted" json:"prompted"`
}

// toText serializes v to YAML for an MCP response.
func toText(v interface{}) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}

func (s *Server) handleListWindows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	app := strings.ToLower(StringParam(request.GetArguments(), "app", ""))
	windows, err := s.snapshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if app != "" {
		filtered := make([]model.WindowRecord, 0, len(windows))
		for _, w := range windows {
			if strings.Contains(strings.ToLower(w.AppName), app) {
				filtered = append(filtered, w)
			}
		}
		windows = filtered
	}
	return mcp.NewToolResultText(toText(output.NewListResult(time.Now().Unix(), windows))), nil
}

func (s *Server) handleActivateWindow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := request.GetArguments()
	pid := IntParam(params, "pid", 0)
	title := StringParam(params, "title", "")
	if pid <= 0 || title == "" {
		return mcp.NewToolResultError("pid and title are required"), nil
	}
	if s.act == nil {
		return mcp.NewToolResultError("activation is not available on this platform"), nil
	}

	var actErr error
	if err := s.exec(ctx, func() {
		actErr = s.act.Activate(ctx, lookup(s.snap.Snapshot(), pid, title))
	}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := ActivateResult{
		OK:      actErr == nil,
		Outcome: session.Activated.String(),
		PID:     pid,
		Title:   title,
	}
	if actErr != nil {
		result.Outcome = session.Uncertain.String()
		result.Error = actErr.Error()
		if reason, ok := activation.ReasonOf(actErr); ok {
			result.Reason = reason.String()
		}
		s.log.Warn("activation uncertain", "pid", pid, "title", title, "error", actErr)
		return mcp.NewToolResultError(toText(result)), nil
	}
	return mcp.NewToolResultText(toText(result)), nil
}

// lookup returns the record for pid and title from a fresh enumeration so
// activation can use its window id. Unknown windows get a bare record.
func lookup(windows []model.WindowRecord, pid int, title string) model.WindowRecord {
	for _, w := range windows {
		if w.PID == pid && w.Title == title {
			return w
		}
	}
	return model.WindowRecord{
		Identity: model.Identity{PID: pid, Title: title},
		PID:      pid,
		Title:    title,
	}
}

func (s *Server) handlePermissionStatus(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.gate == nil {
		return mcp.NewToolResultError("permission gate not available on this platform"), nil
	}
	var result PermissionResult
	if BoolParam(request.GetArguments(), "prompt", false) && !s.gate.HasPermission() {
		result.Prompted = true
		result.Granted = s.gate.RequestPermission()
	} else {
		result.Granted = s.gate.HasPermission()
	}
	return mcp.NewToolResultText(toText(result)), nil
}

func (s *Server) handleSessionState(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(toText(s.owner.State())), nil
}

func (s *Server) handleSessionCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.ToLower(StringParam(request.GetArguments(), "command", ""))
	cmd, ok := session.ParseCommand(name)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown command %q (use open, next, previous, commit or cancel)", name)), nil
	}
	if !s.owner.Post(cmd) {
		return mcp.NewToolResultError(errQueueFull.Error()), nil
	}
	// Wait for the command to be applied before reporting the state.
	if err := s.exec(ctx, func() {}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(toText(s.owner.State())), nil
}
