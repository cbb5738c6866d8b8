package http

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boardmemory "github.com/coordinator/agent-board/internal/adapter/board/memory"
	"github.com/coordinator/agent-board/internal/domain/event"
	portboard "github.com/coordinator/agent-board/internal/port/board"
	porteventbus "github.com/coordinator/agent-board/internal/port/eventbus"
	"github.com/coordinator/agent-board/internal/service/analyzer"
	agentregistry "github.com/coordinator/agent-board/internal/service/registry"
)

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

type fakeEventBus struct{}

func (fakeEventBus) Publish(context.Context, event.Event) error { return nil }

func (fakeEventBus) Subscribe(context.Context, event.Channel, porteventbus.Handler) (porteventbus.Subscription, error) {
	return noopSubscription{}, nil
}

func TestRouter_ProjectStatus_EmptyBoard(t *testing.T) {
	board := boardmemory.New()
	agents := agentregistry.New()
	r := NewRouter(context.Background(), board, analyzer.New(0), agents, fakeEventBus{})

	req := httptest.NewRequest("GET", "/api/project/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"task_count":0`)
}

func TestRouter_ProjectStatus_ReflectsTaskCount(t *testing.T) {
	board := boardmemory.New()
	_, err := board.CreateTask(context.Background(), portboard.CreateSpec{Title: "a task"})
	require.NoError(t, err)

	agents := agentregistry.New()
	r := NewRouter(context.Background(), board, analyzer.New(0), agents, fakeEventBus{})

	req := httptest.NewRequest("GET", "/api/project/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"task_count":1`)
}

func TestRouter_Agents_ListsRegistered(t *testing.T) {
	board := boardmemory.New()
	agents := agentregistry.New()
	_, err := agents.Register("agent-1", "Ada", "backend", nil)
	require.NoError(t, err)

	r := NewRouter(context.Background(), board, analyzer.New(0), agents, fakeEventBus{})

	req := httptest.NewRequest("GET", "/api/agents", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "agent-1")
}

func TestRouter_MutatingVerbsRejectedByCORSPolicy(t *testing.T) {
	board := boardmemory.New()
	agents := agentregistry.New()
	r := NewRouter(context.Background(), board, analyzer.New(0), agents, fakeEventBus{})

	req := httptest.NewRequest("OPTIONS", "/api/project/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, 204, w.Code)
	assert.Equal(t, "GET, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
}
