package mcp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ainone "github.com/coordinator/agent-board/internal/adapter/ai/none"
	boardmemory "github.com/coordinator/agent-board/internal/adapter/board/memory"
	ledgermemory "github.com/coordinator/agent-board/internal/adapter/ledger/memory"
	"github.com/coordinator/agent-board/internal/service/analyzer"
	"github.com/coordinator/agent-board/internal/service/assignment"
	"github.com/coordinator/agent-board/internal/service/feature"
	"github.com/coordinator/agent-board/internal/service/progress"
	agentregistry "github.com/coordinator/agent-board/internal/service/registry"
	"github.com/coordinator/agent-board/internal/service/synth"
)

func TestNew_BuildsServerWithHandler(t *testing.T) {
	board := boardmemory.New()
	ledger := ledgermemory.New()
	ai := ainone.New()
	agents := agentregistry.New()

	sessions := NewSessionRegistry()
	engine := assignment.NewEngine(ledger, board, ai)
	tracker := progress.New(ledger, board, ai, agents)
	synthesizer := synth.New(ai, board)
	inserter := feature.New(ai, board)
	boardAnalyzer := analyzer.New(time.Second)

	srv := New(sessions, agents, engine, tracker, synthesizer, inserter, boardAnalyzer, board)
	require.NotNil(t, srv)
	assert.NotNil(t, srv.Handler())
	assert.Same(t, sessions, srv.Registry())
}
