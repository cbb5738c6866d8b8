package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ainone "github.com/coordinator/agent-board/internal/adapter/ai/none"
	boardmemory "github.com/coordinator/agent-board/internal/adapter/board/memory"
	ledgermemory "github.com/coordinator/agent-board/internal/adapter/ledger/memory"
	portboard "github.com/coordinator/agent-board/internal/port/board"
	domaintask "github.com/coordinator/agent-board/internal/domain/task"
	"github.com/coordinator/agent-board/internal/service/analyzer"
	"github.com/coordinator/agent-board/internal/service/assignment"
	"github.com/coordinator/agent-board/internal/service/feature"
	"github.com/coordinator/agent-board/internal/service/progress"
	agentregistry "github.com/coordinator/agent-board/internal/service/registry"
	"github.com/coordinator/agent-board/internal/service/synth"
)

// toolsFixture wires every handler against real in-memory adapters: no
// mocks package was retrieved alongside this tree, so these tests exercise
// the handlers against the same board/memory and ledger/memory adapters
// production uses when no board provider and no database are configured.
type toolsFixture struct {
	board   *boardmemory.Board
	agents  *agentregistry.Registry
	engine  *assignment.Engine
	tracker *progress.Tracker
	synth   *synth.Synthesizer
	feature *feature.Inserter
	analyze *analyzer.Analyzer
}

func newToolsFixture() toolsFixture {
	board := boardmemory.New()
	ledger := ledgermemory.New()
	ai := ainone.New()
	agents := agentregistry.New()
	return toolsFixture{
		board:   board,
		agents:  agents,
		engine:  assignment.NewEngine(ledger, board, ai),
		tracker: progress.New(ledger, board, ai, agents),
		synth:   synth.New(ai, board),
		feature: feature.New(ai, board),
		analyze: analyzer.New(time.Second),
	}
}

func makeReq(args map[string]any) mcpmcp.CallToolRequest {
	var req mcpmcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func decodeResult(t *testing.T, r *mcpmcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotNil(t, r)
	require.Len(t, r.Content, 1)

	raw, err := json.Marshal(r.Content[0])
	require.NoError(t, err)
	var wrapper struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(raw, &wrapper))

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(wrapper.Text), &out))
	return out
}

func TestRegisterAgentHandler_Success(t *testing.T) {
	f := newToolsFixture()
	sessions := NewSessionRegistry()
	handler := registerAgentHandler(sessions, f.agents)

	res, err := handler(context.Background(), makeReq(map[string]any{
		"agent_id": "agent-1",
		"name":     "Ada",
		"role":     "backend",
		"skills":   "go,postgres",
	}))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, true, body["success"])
	agentView := body["agent"].(map[string]any)
	assert.Equal(t, "agent-1", agentView["agent_id"])
}

func TestRegisterAgentHandler_DuplicateFails(t *testing.T) {
	f := newToolsFixture()
	sessions := NewSessionRegistry()
	handler := registerAgentHandler(sessions, f.agents)

	_, err := handler(context.Background(), makeReq(map[string]any{"agent_id": "agent-1", "name": "Ada", "role": "backend"}))
	require.NoError(t, err)

	res, err := handler(context.Background(), makeReq(map[string]any{"agent_id": "agent-1", "name": "Ada", "role": "backend"}))
	require.NoError(t, err)
	body := decodeResult(t, res)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error_kind"])
}

func TestRequestNextTaskHandler_NoTasksReturnsHasTaskFalse(t *testing.T) {
	f := newToolsFixture()
	_, err := f.agents.Register("agent-1", "Ada", "backend", nil)
	require.NoError(t, err)

	handler := requestNextTaskHandler(f.agents, f.engine)
	res, err := handler(context.Background(), makeReq(map[string]any{"agent_id": "agent-1"}))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, false, body["has_task"])
}

func TestRequestNextTaskHandler_UnregisteredAgentErrors(t *testing.T) {
	f := newToolsFixture()
	handler := requestNextTaskHandler(f.agents, f.engine)

	res, err := handler(context.Background(), makeReq(map[string]any{"agent_id": "ghost"}))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, false, body["success"])
}

func TestRequestNextTaskHandler_ClaimsMatchingTask(t *testing.T) {
	f := newToolsFixture()
	ctx := context.Background()
	_, err := f.board.CreateTask(ctx, portboard.CreateSpec{
		Title:          "implement login",
		Labels:         []string{"phase:implementation"},
		Priority:       domaintask.PriorityHigh,
		EstimatedHours: 2,
	})
	require.NoError(t, err)
	_, err = f.agents.Register("agent-1", "Ada", "backend", []string{"go"})
	require.NoError(t, err)

	handler := requestNextTaskHandler(f.agents, f.engine)
	res, err := handler(ctx, makeReq(map[string]any{"agent_id": "agent-1"}))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, true, body["has_task"])
}

func TestPingHandler_EchoesInput(t *testing.T) {
	handler := pingHandler()
	res, err := handler(context.Background(), makeReq(map[string]any{"echo": "hello"}))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "hello", body["echo"])
	assert.Equal(t, serviceVersion, body["version"])
}

func TestGetProjectStatusHandler_EmptyBoard(t *testing.T) {
	f := newToolsFixture()
	handler := getProjectStatusHandler(f.board, f.analyze)

	res, err := handler(context.Background(), makeReq(nil))
	require.NoError(t, err)

	body := decodeResult(t, res)
	assert.Equal(t, 0.0, body["completion_pct"])
}

func TestListRegisteredAgentsHandler_ReturnsAllAgents(t *testing.T) {
	f := newToolsFixture()
	_, err := f.agents.Register("agent-1", "Ada", "backend", nil)
	require.NoError(t, err)
	_, err = f.agents.Register("agent-2", "Bo", "frontend", nil)
	require.NoError(t, err)

	handler := listRegisteredAgentsHandler(f.agents)
	res, err := handler(context.Background(), makeReq(nil))
	require.NoError(t, err)

	body := decodeResult(t, res)
	agents := body["agents"].([]any)
	assert.Len(t, agents, 2)
}
