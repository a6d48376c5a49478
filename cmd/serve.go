package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-switch/internal/server"
	"github.com/mj1618/desktop-switch/internal/session"
	"github.com/mj1618/desktop-switch/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server exposing the switcher as tools",
	Long: `Start a Model Context Protocol (MCP) server that exposes window listing,
activation and the switcher session as tools. Agents can drive the switcher
without the keyboard.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  desktop-switch serve
  desktop-switch serve --transport streamable-http --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("port", 8080, "HTTP port for streamable-http transport")
	addExcludeFlag(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")

	c, err := newCore(currentConfig(), excludedPIDs(cmd)...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	owner := session.NewOwner(c.enumerator, c.engine, session.WithLogger(logger("session")))
	go owner.Run(ctx)

	cfg := server.Config{
		Name:      "desktop-switch",
		Version:   version.Version,
		Transport: transport,
		Port:      port,
	}
	srv := server.New(cfg, owner, c.enumerator, c.engine, c.provider.Permission, logger("mcp"))
	if err := srv.Serve(cfg); err != nil {
		return fmt.Errorf("serve MCP: %w", err)
	}
	return nil
}
