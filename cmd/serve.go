package cmd

import (
	"fmt"

	"github.com/keyforge/keyforge/internal/engine"
	"github.com/keyforge/keyforge/internal/platform"
	"github.com/keyforge/keyforge/internal/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server exposing keyforge tools",
	Long: `Start a Model Context Protocol (MCP) server that exposes script
playback and management as tools. AI agents can trigger recordings directly
without shell overhead.

Supported transports:
  stdio             Standard I/O (default, for Claude Code / MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  keyforge serve
  keyforge serve --transport streamable-http --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("port", 8080, "HTTP port for streamable-http transport")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")

	provider, err := platform.NewProvider()
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	eng := engine.New(provider, st, cfg, logger)
	srv := server.New(eng, provider, logger)

	if err := srv.Serve(server.Config{Transport: transport, Port: port}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
