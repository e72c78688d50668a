// Package mcp exposes training history and analytics to MCP clients.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/meltforce/liftlog/internal/library"
)

// Deps are the data sources the MCP handlers read from.
type Deps struct {
	Data     DataSource
	Settings SettingsSource
	Library  *library.Catalog
	// DefaultRestSeconds is assumed for template sets without a rest value.
	DefaultRestSeconds int
}

// New creates an MCP server with all tools and resources registered.
func New(deps Deps, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("liftlog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("liftlog strength training server. Analyze workout templates, logged training volume per muscle, exercise history and estimated one-rep maxes. Weights are in kilograms."),
	)

	h := newHandlers(deps, log)

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListTemplates, Handler: h.listTemplates},
		server.ServerTool{Tool: toolGetProgramReport, Handler: h.getProgramReport},
		server.ServerTool{Tool: toolGetTrainingVolume, Handler: h.getTrainingVolume},
		server.ServerTool{Tool: toolGetExerciseHistory, Handler: h.getExerciseHistory},
		server.ServerTool{Tool: toolEstimateOneRepMax, Handler: h.estimateOneRepMax},
		server.ServerTool{Tool: toolListSessions, Handler: h.listSessions},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resLibrary, Handler: h.library},
		server.ServerResource{Resource: resRecentSessions, Handler: h.recentSessions},
		server.ServerResource{Resource: resStats, Handler: h.stats},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds          DataSource
	settings    SettingsSource
	lib         *library.Catalog
	defaultRest int
	log         *slog.Logger
}

func newHandlers(deps Deps, log *slog.Logger) *handlers {
	lib := deps.Library
	if lib == nil {
		lib = library.Default()
	}
	return &handlers{
		ds:          deps.Data,
		settings:    deps.Settings,
		lib:         lib,
		defaultRest: deps.DefaultRestSeconds,
		log:         log,
	}
}

// --- Resource definitions ---

var resLibrary = mcp.NewResource(
	"liftlog://library",
	"Exercise Library",
	mcp.WithResourceDescription("Every known exercise with its primary and auxiliary muscles"),
	mcp.WithMIMEType("application/json"),
)

var resRecentSessions = mcp.NewResource(
	"liftlog://recent_sessions",
	"Recent Sessions",
	mcp.WithResourceDescription("The 20 most recently completed workouts"),
	mcp.WithMIMEType("application/json"),
)

var resStats = mcp.NewResource(
	"liftlog://stats",
	"Data Stats",
	mcp.WithResourceDescription("Totals of logged sessions, sets and templates plus the most trained exercises"),
	mcp.WithMIMEType("application/json"),
)
