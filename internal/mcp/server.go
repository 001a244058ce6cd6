package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("Spotter", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Spotter strength-training log. Query the next planned training day, weekly volume, weekly consistency, estimated one-rep-max progress and logged sessions. Weights are in the unit each set was logged in."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetNextPlanDay, Handler: h.getNextPlanDay},
		server.ServerTool{Tool: toolGetWeeklyVolume, Handler: h.getWeeklyVolume},
		server.ServerTool{Tool: toolGetWeeklyConsistency, Handler: h.getWeeklyConsistency},
		server.ServerTool{Tool: toolGetE1RMProgress, Handler: h.getE1RMProgress},
		server.ServerTool{Tool: toolListSessions, Handler: h.listSessions},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecentSessions, Handler: h.recentSessions},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resRecentSessions = mcp.NewResource(
	"spotter://recent_sessions",
	"Recent Sessions",
	mcp.WithResourceDescription("Sessions from the last 14 days with volume and exercise counts"),
	mcp.WithMIMEType("application/json"),
)
