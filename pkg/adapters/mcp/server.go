package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/geofence"
	"github.com/aretw0/geofence/pkg/coordinator"
	"github.com/aretw0/geofence/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Service is the part of geofence.Service exposed as MCP tools.
type Service interface {
	Snapshot() []domain.Region
	Status() coordinator.Status
	Register(ctx context.Context) (domain.Mutation, error)
	Unregister(ctx context.Context) domain.Mutation
}

// Server exposes the service as an MCP server. Injected transitions are only
// enqueued; the service's Run loop handles them.
type Server struct {
	svc       Service
	events    chan<- domain.TransitionEvent
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(svc Service, events chan<- domain.TransitionEvent, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:       svc,
		events:    events,
		logger:    logger,
		mcpServer: server.NewMCPServer("geofence-mcp", strings.TrimSpace(geofence.Version)),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("inject_transition",
		mcp.WithDescription("Queue a transition event (ENTER, EXIT or DWELL) as if reported by the monitoring service."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("ENTER, EXIT, DWELL or a numeric code")),
		mcp.WithString("region_ids", mcp.Required(), mcp.Description("Comma separated region identifiers")),
		mcp.WithNumber("lat", mcp.Description("Latitude of the triggering location (optional)")),
		mcp.WithNumber("lon", mcp.Description("Longitude of the triggering location (optional)")),
	), s.handleInject)

	s.mcpServer.AddTool(mcp.NewTool("list_regions",
		mcp.WithDescription("List the regions currently desired, sorted by identifier."),
	), s.handleListRegions)

	s.mcpServer.AddTool(mcp.NewTool("coordinator_status",
		mcp.WithDescription("Show the coordinator phase, queued mutation and divergence."),
	), s.handleStatus)

	s.mcpServer.AddTool(mcp.NewTool("register_landmarks",
		mcp.WithDescription("Register a region for every landmark."),
	), s.handleRegister)

	s.mcpServer.AddTool(mcp.NewTool("unregister_all",
		mcp.WithDescription("Remove every registered region."),
	), s.handleUnregister)
}

func (s *Server) handleListRegions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Snapshot())
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Status())
}

func (s *Server) handleRegister(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	m, err := s.svc.Register(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("register failed: %v", err)), nil
	}
	return jsonResult(m)
}

func (s *Server) handleUnregister(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Unregister(ctx))
}

func (s *Server) handleInject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kindArg, err := request.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := domain.ParseTransitionKind(kindArg)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	idsArg, err := request.RequireString("region_ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ev := domain.TransitionEvent{Kind: kind, Time: time.Now()}
	for _, id := range strings.Split(idsArg, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ev.RegionIDs = append(ev.RegionIDs, id)
		}
	}
	args := request.GetArguments()
	if _, hasLat := args["lat"]; hasLat {
		if _, hasLon := args["lon"]; hasLon {
			loc := domain.Coordinate{
				Latitude:  request.GetFloat("lat", 0),
				Longitude: request.GetFloat("lon", 0),
			}
			if err := loc.Validate(); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			ev.Location = &loc
		}
	}

	select {
	case s.events <- ev:
		s.logger.Debug("MCP: transition queued", "kind", ev.Kind, "ids", ev.RegionIDs)
		return mcp.NewToolResultText("queued " + ev.Details()), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return mcp.NewToolResultError("event queue full"), nil
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
