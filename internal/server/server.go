// Package server exposes engine operations over the Model Context Protocol
// so agents can drive recording playback without shelling out to the CLI.
package server

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/keyforge/keyforge/internal/engine"
	"github.com/keyforge/keyforge/internal/platform"
	"github.com/keyforge/keyforge/internal/version"
)

// Config holds MCP server configuration.
type Config struct {
	Transport string
	Port      int
}

// Server wraps the MCP server around a single engine. engineMu serializes
// tool calls that mutate playback state; status reads take it too so a
// snapshot never interleaves with a transition.
type Server struct {
	eng      *engine.Engine
	provider *platform.Provider
	logger   *slog.Logger
	engineMu sync.Mutex
	mcp      *mcpserver.MCPServer
}

// New creates and configures an MCP server with all keyforge tools.
func New(eng *engine.Engine, provider *platform.Provider, logger *slog.Logger) *Server {
	s := &Server{
		eng:      eng,
		provider: provider,
		logger:   logger.With("component", "mcp"),
	}

	s.mcp = mcpserver.NewMCPServer(
		"keyforge",
		version.Version,
	)

	s.registerTools()
	return s
}

// Serve starts the MCP server with the configured transport and blocks.
func (s *Server) Serve(cfg Config) error {
	switch cfg.Transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(fmt.Sprintf(":%d", cfg.Port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *Server) registerTools() {
	// play_script
	s.mcp.AddTool(
		mcp.NewTool("play_script",
			mcp.WithDescription("Play a recorded script by id or name. Returns immediately unless wait is set."),
			mcp.WithString("script", mcp.Description("Script UUID or exact name"), mcp.Required()),
			mcp.WithNumber("speed", mcp.Description("Speed multiplier (e.g. 2.0 halves delays)")),
			mcp.WithNumber("repeat", mcp.Description("Override the script's repeat count")),
			mcp.WithBoolean("stop-on-error", mcp.Description("Abort playback on the first failed action")),
			mcp.WithBoolean("wait", mcp.Description("Block until playback finishes and return the final status")),
		),
		s.handlePlayScript,
	)

	// stop_playback
	s.mcp.AddTool(
		mcp.NewTool("stop_playback",
			mcp.WithDescription("Stop the current playback. No-op error if nothing is playing."),
		),
		s.handleStopPlayback,
	)

	// pause_playback
	s.mcp.AddTool(
		mcp.NewTool("pause_playback",
			mcp.WithDescription("Pause the current playback, preserving the remaining delay of the in-flight wait"),
		),
		s.handlePausePlayback,
	)

	// resume_playback
	s.mcp.AddTool(
		mcp.NewTool("resume_playback",
			mcp.WithDescription("Resume a paused playback"),
		),
		s.handleResumePlayback,
	)

	// list_scripts
	s.mcp.AddTool(
		mcp.NewTool("list_scripts",
			mcp.WithDescription("List all stored scripts with id, name, action count and timestamps"),
		),
		s.handleListScripts,
	)

	// get_script
	s.mcp.AddTool(
		mcp.NewTool("get_script",
			mcp.WithDescription("Fetch one script with its full action sequence"),
			mcp.WithString("script", mcp.Description("Script UUID or exact name"), mcp.Required()),
		),
		s.handleGetScript,
	)

	// delete_script
	s.mcp.AddTool(
		mcp.NewTool("delete_script",
			mcp.WithDescription("Delete a stored script"),
			mcp.WithString("script", mcp.Description("Script UUID or exact name"), mcp.Required()),
		),
		s.handleDeleteScript,
	)

	// find_image
	s.mcp.AddTool(
		mcp.NewTool("find_image",
			mcp.WithDescription("Capture the screen and locate a template image. Returns coordinates and confidence, or found: false."),
			mcp.WithString("template", mcp.Description("Path to the template image (png or jpeg)"), mcp.Required()),
			mcp.WithNumber("min-confidence", mcp.Description("Minimum match confidence in [0,1] (default: 0.8)")),
			mcp.WithString("region", mcp.Description("Restrict search to x,y,w,h")),
		),
		s.handleFindImage,
	)

	// engine_status
	s.mcp.AddTool(
		mcp.NewTool("engine_status",
			mcp.WithDescription("Report recorder and player state: active recording, playback state, current action index, iteration and errors"),
		),
		s.handleEngineStatus,
	)
}
