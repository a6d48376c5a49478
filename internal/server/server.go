// Package server exposes window enumeration, activation and the switcher
// session as Model Context Protocol tools.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/mj1618/desktop-switch/internal/model"
	"github.com/mj1618/desktop-switch/internal/platform"
	"github.com/mj1618/desktop-switch/internal/session"
)

var errQueueFull = errors.New("session queue is full")

// Config holds MCP server configuration.
type Config struct {
	Name      string
	Version   string
	Transport string
	Port      int
}

// Server wraps the MCP server with the session owner and platform gate.
type Server struct {
	owner *session.Owner
	snap  session.Snapshotter
	act   session.Activator
	gate  platform.PermissionGate
	log   *slog.Logger
	mcp   *mcpserver.MCPServer
}

// New creates a server. owner may be nil, in which case session tools are not
// registered and activation runs on the calling goroutine. A nil logger uses
// slog.Default().
func New(cfg Config, owner *session.Owner, snap session.Snapshotter, act session.Activator, gate platform.PermissionGate, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "desktop-switch"
	}
	s := &Server{
		owner: owner,
		snap:  snap,
		act:   act,
		gate:  gate,
		log:   logger,
		mcp:   mcpserver.NewMCPServer(cfg.Name, cfg.Version),
	}
	s.registerTools()
	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcpserver.MCPServer {
	return s.mcp
}

// Serve starts the MCP server with the configured transport.
func (s *Server) Serve(cfg Config) error {
	switch cfg.Transport {
	case "", "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		s.log.Info("serving MCP over HTTP", "port", cfg.Port)
		return httpServer.Start(fmt.Sprintf(":%d", cfg.Port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("list_windows",
			mcp.WithDescription("List switchable windows front to back, as the switcher would show them"),
			mcp.WithString("app", mcp.Description("Filter by application name substring")),
		),
		s.handleListWindows,
	)

	s.mcp.AddTool(
		mcp.NewTool("activate_window",
			mcp.WithDescription("Bring a window to the foreground through the activation chain"),
			mcp.WithNumber("pid", mcp.Required(), mcp.Description("Process ID owning the window")),
			mcp.WithString("title", mcp.Required(), mcp.Description("Exact window title")),
		),
		s.handleActivateWindow,
	)

	s.mcp.AddTool(
		mcp.NewTool("permission_status",
			mcp.WithDescription("Report whether accessibility permission is granted"),
			mcp.WithBoolean("prompt", mcp.Description("Show the system permission prompt when missing")),
		),
		s.handlePermissionStatus,
	)

	if s.owner == nil {
		return
	}

	s.mcp.AddTool(
		mcp.NewTool("session_state",
			mcp.WithDescription("Return the switcher session: visibility, frozen window list and selection"),
		),
		s.handleSessionState,
	)

	s.mcp.AddTool(
		mcp.NewTool("session_command",
			mcp.WithDescription("Drive the switcher session as the keyboard would"),
			mcp.WithString("command", mcp.Required(), mcp.Description("One of: open, next, previous, commit, cancel")),
		),
		s.handleSessionCommand,
	)
}

// snapshot enumerates afresh on the owner goroutine. Records are never kept
// between tool calls.
func (s *Server) snapshot(ctx context.Context) ([]model.WindowRecord, error) {
	var windows []model.WindowRecord
	if err := s.exec(ctx, func() { windows = s.snap.Snapshot() }); err != nil {
		return nil, err
	}
	if windows == nil {
		windows = []model.WindowRecord{}
	}
	return windows, nil
}

// exec runs fn on the owner goroutine and waits for it.
func (s *Server) exec(ctx context.Context, fn func()) error {
	if s.owner == nil {
		fn()
		return nil
	}
	done := make(chan struct{})
	if !s.owner.Exec(func() {
		defer close(done)
		fn()
	}) {
		return errQueueFull
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
