package mcp

import (
	"context"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	portboard "github.com/coordinator/agent-board/internal/port/board"
	"github.com/coordinator/agent-board/internal/service/analyzer"
	"github.com/coordinator/agent-board/internal/service/assignment"
	"github.com/coordinator/agent-board/internal/service/feature"
	agentregistry "github.com/coordinator/agent-board/internal/service/registry"
	"github.com/coordinator/agent-board/internal/service/progress"
	"github.com/coordinator/agent-board/internal/service/synth"
)

// Server wraps the mark3labs/mcp-go MCPServer and its StreamableHTTPServer.
// [SRP] HTTP/SSE server lifecycle only (start, stop, session open/close).
//
//	Tools are registered in tools.go, session state in registry.go.
//
// [OCP] Adding new tools never requires changes to this file.
type Server struct {
	httpSrv *mcpserver.StreamableHTTPServer
	reg     *SessionRegistry
	agents  *agentregistry.Registry
}

// New creates the MCP transport server. sessions is a pre-built
// SessionRegistry (constructed before the MCPServer in the wire); its
// mcp-go reference is injected here, after construction, to break the init
// cycle.
func New(
	sessions *SessionRegistry,
	agents *agentregistry.Registry,
	engine *assignment.Engine,
	tracker *progress.Tracker,
	synthesizer *synth.Synthesizer,
	inserter *feature.Inserter,
	boardAnalyzer *analyzer.Analyzer,
	board portboard.Client,
) *Server {
	s := &Server{reg: sessions, agents: agents}

	hooks := &mcpserver.Hooks{}
	hooks.OnUnregisterSession = append(hooks.OnUnregisterSession, s.onSessionClose)

	mcpSrv := mcpserver.NewMCPServer(
		"agent-board",
		serviceVersion,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithHooks(hooks),
	)

	sessions.SetMCPServer(mcpSrv)

	RegisterTools(mcpSrv, sessions, agents, engine, tracker, synthesizer, inserter, boardAnalyzer, board)

	s.httpSrv = mcpserver.NewStreamableHTTPServer(mcpSrv)
	return s
}

// Handler returns an http.Handler that serves the MCP SSE endpoint.
func (s *Server) Handler() http.Handler {
	return s.httpSrv
}

// Registry returns the session registry (implements AgentNotifier + RoleNotifier).
func (s *Server) Registry() *SessionRegistry {
	return s.reg
}

// onSessionClose does not deregister the agent itself — a disconnected agent
// still owns its lease until the sweeper reclaims it (§4.10). It only drops
// the session's notification route.
func (s *Server) onSessionClose(ctx context.Context, session mcpserver.ClientSession) {
	agentID, ok := s.reg.Unregister(session.SessionID())
	if !ok {
		return
	}
	slog.InfoContext(ctx, "mcp: session closed", "session_id", session.SessionID(), "agent_id", agentID)
}
