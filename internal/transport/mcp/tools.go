package mcp

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/coordinator/agent-board/internal/apperr"
	domainagent "github.com/coordinator/agent-board/internal/domain/agent"
	domainproject "github.com/coordinator/agent-board/internal/domain/project"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
	portboard "github.com/coordinator/agent-board/internal/port/board"
	"github.com/coordinator/agent-board/internal/service/analyzer"
	"github.com/coordinator/agent-board/internal/service/assignment"
	"github.com/coordinator/agent-board/internal/service/feature"
	"github.com/coordinator/agent-board/internal/service/mode"
	"github.com/coordinator/agent-board/internal/service/progress"
	agentregistry "github.com/coordinator/agent-board/internal/service/registry"
	"github.com/coordinator/agent-board/internal/service/synth"
)

const serviceVersion = "1.0.0"

// RegisterTools registers the ten MCP tools of the ToolSurface (§6).
// [SRP] Tool registration only.
// [OCP] Add a new tool by adding a new AddTool call — server.go never changes.
func RegisterTools(
	s *mcpserver.MCPServer,
	sessions *SessionRegistry,
	agents *agentregistry.Registry,
	engine *assignment.Engine,
	tracker *progress.Tracker,
	synthesizer *synth.Synthesizer,
	inserter *feature.Inserter,
	boardAnalyzer *analyzer.Analyzer,
	board portboard.Client,
) {
	s.AddTool(mcpmcp.NewTool("register_agent",
		mcpmcp.WithDescription("Register this agent with the coordinator. agent_id is client-chosen; reusing one already live fails with duplicate_agent."),
		mcpmcp.WithString("agent_id", mcpmcp.Required(), mcpmcp.Description("Client-chosen agent identifier")),
		mcpmcp.WithString("name", mcpmcp.Required(), mcpmcp.Description("Human-readable agent name")),
		mcpmcp.WithString("role", mcpmcp.Required(), mcpmcp.Description("Agent role, e.g. backend, frontend, qa")),
		mcpmcp.WithString("skills", mcpmcp.Description("Comma-separated skill labels, e.g. go,postgres,react")),
	), registerAgentHandler(sessions, agents))

	s.AddTool(mcpmcp.NewTool("request_next_task",
		mcpmcp.WithDescription("Claim the best available task for this agent. Returns has_task=false when nothing qualifies — the caller should poll again later, it is never an error."),
		mcpmcp.WithString("agent_id", mcpmcp.Required(), mcpmcp.Description("Agent identifier returned by register_agent")),
	), requestNextTaskHandler(agents, engine))

	s.AddTool(mcpmcp.NewTool("report_task_progress",
		mcpmcp.WithDescription("Report progress on the agent's currently assigned task. status=completed marks the task done and frees the agent; status=blocked marks it blocked; status=in_progress just appends a comment."),
		mcpmcp.WithString("agent_id", mcpmcp.Required(), mcpmcp.Description("Agent identifier")),
		mcpmcp.WithString("task_id", mcpmcp.Required(), mcpmcp.Description("Task the agent currently holds")),
		mcpmcp.WithString("status", mcpmcp.Required(), mcpmcp.Description("One of: in_progress, completed, blocked")),
		mcpmcp.WithString("progress", mcpmcp.Description("Completion percentage, 0-100")),
		mcpmcp.WithString("message", mcpmcp.Description("Free-text progress note")),
	), reportTaskProgressHandler(tracker))

	s.AddTool(mcpmcp.NewTool("report_blocker",
		mcpmcp.WithDescription("Report a blocker on the agent's currently assigned task. Marks the task blocked, asks the AI backend for a resolution suggestion, and releases the assignment."),
		mcpmcp.WithString("agent_id", mcpmcp.Required(), mcpmcp.Description("Agent identifier")),
		mcpmcp.WithString("task_id", mcpmcp.Required(), mcpmcp.Description("Task the agent currently holds")),
		mcpmcp.WithString("description", mcpmcp.Required(), mcpmcp.Description("What is blocking progress")),
		mcpmcp.WithString("severity", mcpmcp.Description("One of: low, medium, high (default medium)")),
	), reportBlockerHandler(tracker))

	s.AddTool(mcpmcp.NewTool("get_agent_status",
		mcpmcp.WithDescription("Look up a single registered agent by id."),
		mcpmcp.WithString("agent_id", mcpmcp.Required(), mcpmcp.Description("Agent identifier")),
	), getAgentStatusHandler(agents))

	s.AddTool(mcpmcp.NewTool("list_registered_agents",
		mcpmcp.WithDescription("List every agent currently registered with the coordinator."),
	), listRegisteredAgentsHandler(agents))

	s.AddTool(mcpmcp.NewTool("get_project_status",
		mcpmcp.WithDescription("Summarize the board: task totals, completion percentage, board-quality score, and operating mode."),
	), getProjectStatusHandler(board, boardAnalyzer))

	s.AddTool(mcpmcp.NewTool("create_project_from_description",
		mcpmcp.WithDescription("Synthesize a phase-ordered, dependency-connected task graph from a natural-language project description and publish it to the board. Refuses on a non-empty board unless allow_on_nonempty is set."),
		mcpmcp.WithString("description", mcpmcp.Required(), mcpmcp.Description("Natural-language project description")),
		mcpmcp.WithString("project_name", mcpmcp.Description("Project name, informational")),
		mcpmcp.WithString("team_size", mcpmcp.Description("Number of engineers, scales the day estimate")),
		mcpmcp.WithString("tech_stack", mcpmcp.Description("Comma-separated technology names")),
		mcpmcp.WithString("deadline", mcpmcp.Description("ISO-8601 deadline, informational only")),
		mcpmcp.WithString("allow_on_nonempty", mcpmcp.Description("true to bypass the non-empty-board refusal")),
		mcpmcp.WithString("complexity", mcpmcp.Description("One of: mvp, standard, enterprise (default standard)")),
	), createProjectHandler(board, synthesizer))

	s.AddTool(mcpmcp.NewTool("add_feature",
		mcpmcp.WithDescription("Insert a small task graph for a new feature into the live board, wired into the existing dependency graph at the chosen integration point."),
		mcpmcp.WithString("feature_description", mcpmcp.Required(), mcpmcp.Description("Natural-language feature description")),
		mcpmcp.WithString("integration_point", mcpmcp.Description("One of: auto_detect, after_current, parallel, new_phase (default auto_detect)")),
	), addFeatureHandler(inserter))

	s.AddTool(mcpmcp.NewTool("ping",
		mcpmcp.WithDescription("Liveness check. Echoes back the optional echo argument."),
		mcpmcp.WithString("echo", mcpmcp.Description("Arbitrary string echoed back in the response")),
	), pingHandler())
}

// ── response helpers ───────────────────────────────────────────────────────

func textResult(v any) *mcpmcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return mcpmcp.NewToolResultText(`{"success":false,"error_kind":"permanent","error":"failed to encode response"}`)
	}
	return mcpmcp.NewToolResultText(string(data))
}

// errorResult renders err per §7's propagation policy: the ToolSurface never
// raises a Go error to the client, it returns a typed failure response.
func errorResult(err error) *mcpmcp.CallToolResult {
	return textResult(map[string]any{
		"success":    false,
		"error_kind": string(apperr.KindOf(err)),
		"error":      err.Error(),
	})
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(s string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(s))
	return b
}

func parseIntDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// ── handlers ────────────────────────────────────────────────────────────────

func registerAgentHandler(sessions *SessionRegistry, agents *agentregistry.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		agentID := mcpmcp.ParseString(req, "agent_id", "")
		name := mcpmcp.ParseString(req, "name", "")
		role := mcpmcp.ParseString(req, "role", "")
		skills := splitCSV(mcpmcp.ParseString(req, "skills", ""))

		agent, err := agents.Register(agentID, name, role, skills)
		if err != nil {
			return errorResult(err), nil
		}

		if session := mcpserver.ClientSessionFromContext(ctx); session != nil {
			sessions.Register(session.SessionID(), agentID, role)
		}

		return textResult(map[string]any{"success": true, "agent": agentView(agent)}), nil
	}
}

func requestNextTaskHandler(agents *agentregistry.Registry, engine *assignment.Engine) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		agentID := mcpmcp.ParseString(req, "agent_id", "")

		a, ok := agents.Get(agentID)
		if !ok {
			return errorResult(apperr.Newf(apperr.KindNotFound, "mcp.request_next_task", "agent %q is not registered", agentID)), nil
		}

		var result *mcpmcp.CallToolResult
		var claimed string
		err := agents.WithAgentLock(agentID, func() error {
			instruction, hasTask, err := engine.RequestNextTask(ctx, a)
			if err != nil {
				result = errorResult(err)
				return nil
			}
			if !hasTask {
				result = textResult(map[string]any{"has_task": false})
				return nil
			}
			claimed = instruction.TaskID
			result = textResult(map[string]any{
				"has_task": true,
				"assignment": map[string]any{
					"task_id":             instruction.TaskID,
					"title":               instruction.Title,
					"description":         instruction.Description,
					"acceptance_criteria": instruction.AcceptanceCriteria,
					"estimated_hours":     instruction.EstimatedHours,
				},
			})
			return nil
		})
		if err != nil {
			return errorResult(err), nil
		}
		if claimed != "" {
			// SetCurrentTask takes the same per-agent lock, so it runs after
			// WithAgentLock has released it.
			agents.SetCurrentTask(agentID, claimed)
		}
		return result, nil
	}
}

func reportTaskProgressHandler(tracker *progress.Tracker) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		agentID := mcpmcp.ParseString(req, "agent_id", "")
		taskID := mcpmcp.ParseString(req, "task_id", "")
		status := progress.Status(mcpmcp.ParseString(req, "status", ""))
		pct := parseIntDefault(mcpmcp.ParseString(req, "progress", ""), 0)
		message := mcpmcp.ParseString(req, "message", "")

		if err := tracker.ReportProgress(ctx, agentID, taskID, status, pct, message); err != nil {
			return errorResult(err), nil
		}
		return textResult(map[string]any{"acknowledged": true}), nil
	}
}

func reportBlockerHandler(tracker *progress.Tracker) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		agentID := mcpmcp.ParseString(req, "agent_id", "")
		taskID := mcpmcp.ParseString(req, "task_id", "")
		description := mcpmcp.ParseString(req, "description", "")
		severity := progress.Severity(mcpmcp.ParseString(req, "severity", string(progress.SeverityMedium)))

		resolution, err := tracker.ReportBlocker(ctx, agentID, taskID, description, severity)
		if err != nil {
			return errorResult(err), nil
		}
		return textResult(map[string]any{
			"suggestion":       resolution.Suggestion,
			"estimated_impact": resolution.EstimatedImpact,
		}), nil
	}
}

func getAgentStatusHandler(agents *agentregistry.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		agentID := mcpmcp.ParseString(req, "agent_id", "")
		a, ok := agents.Get(agentID)
		if !ok {
			return textResult(map[string]any{"found": false}), nil
		}
		return textResult(map[string]any{"found": true, "agent": agentView(a)}), nil
	}
}

func listRegisteredAgentsHandler(agents *agentregistry.Registry) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		all := agents.List()
		views := make([]map[string]any, 0, len(all))
		for _, a := range all {
			views = append(views, agentView(a))
		}
		return textResult(map[string]any{"agents": views}), nil
	}
}

func getProjectStatusHandler(board portboard.Client, boardAnalyzer *analyzer.Analyzer) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		tasks, err := board.ListTasks(ctx)
		if err != nil {
			return errorResult(err), nil
		}

		now := time.Now().UTC()
		snap := domainproject.NewSnapshot(tasks, now)
		score, class := boardAnalyzer.Analyze(snap, now)
		selectedMode := mode.Select(class, "")

		totals := map[string]int{}
		done := 0
		for _, t := range tasks {
			totals[string(t.Status)]++
			if t.Status == domaintask.StatusDone {
				done++
			}
		}
		completionPct := 0.0
		if len(tasks) > 0 {
			completionPct = float64(done) / float64(len(tasks)) * 100
		}

		return textResult(map[string]any{
			"totals":          totals,
			"completion_pct":  completionPct,
			"board_info": map[string]any{
				"task_count": len(tasks),
				"class":      string(class),
				"mode":       string(selectedMode),
				"score": map[string]float64{
					"descriptions": score.Descriptions,
					"labels":       score.Labels,
					"estimates":    score.Estimates,
					"priorities":   score.Priorities,
					"dependencies": score.Dependencies,
					"weighted":     score.Weighted(),
				},
			},
		}), nil
	}
}

func createProjectHandler(board portboard.Client, synthesizer *synth.Synthesizer) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		description := mcpmcp.ParseString(req, "description", "")
		projectName := mcpmcp.ParseString(req, "project_name", "")

		existing, err := board.ListTasks(ctx)
		if err != nil {
			return errorResult(err), nil
		}

		opts := synth.Options{
			TeamSize:        parseIntDefault(mcpmcp.ParseString(req, "team_size", ""), 1),
			TechStack:       splitCSV(mcpmcp.ParseString(req, "tech_stack", "")),
			Deadline:        mcpmcp.ParseString(req, "deadline", ""),
			AllowOnNonEmpty: parseBool(mcpmcp.ParseString(req, "allow_on_nonempty", "")),
			Complexity:      mcpmcp.ParseString(req, "complexity", ""),
		}

		result, err := synthesizer.CreateProject(ctx, description, projectName, len(existing), opts)
		if err != nil {
			return errorResult(err), nil
		}

		return textResult(map[string]any{
			"success":             true,
			"tasks_created":       result.TasksCreated,
			"phases":              result.Phases,
			"estimated_days":      result.EstimatedDays,
			"dependencies_mapped": result.DependenciesMapped,
			"risk_level":          result.RiskLevel,
			"confidence":          result.Confidence,
			"missing_tasks":       result.MissingTasks,
		}), nil
	}
}

func addFeatureHandler(inserter *feature.Inserter) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		description := mcpmcp.ParseString(req, "feature_description", "")
		point := feature.IntegrationPoint(mcpmcp.ParseString(req, "integration_point", string(feature.IntegrationAutoDetect)))

		result, err := inserter.AddFeature(ctx, description, point)
		if err != nil {
			return errorResult(err), nil
		}

		return textResult(map[string]any{
			"success":            true,
			"tasks_created":      result.TasksCreated,
			"integration_points": result.IntegrationPoints,
			"confidence":         result.Confidence,
		}), nil
	}
}

func pingHandler() mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		echo := mcpmcp.ParseString(req, "echo", "")
		return textResult(map[string]any{
			"status":  "ok",
			"service": "agent-board",
			"version": serviceVersion,
			"echo":    echo,
		}), nil
	}
}

func agentView(a domainagent.Agent) map[string]any {
	return map[string]any{
		"agent_id":        a.ID,
		"name":            a.Name,
		"role":            a.Role,
		"skills":          a.Skills,
		"current_task":    a.CurrentTask,
		"completed_count": a.CompletedCount,
		"registered_at":   a.RegisteredAt,
		"last_seen_at":    a.LastSeenAt,
	}
}
