// Package http is the human-facing, read-only status/debug surface (§6):
// it never mutates board or ledger state — the worker-facing ToolSurface in
// internal/transport/mcp is the only mutating entry point. Grounded on the
// teacher's transport router, trimmed to the read-only subset this domain
// needs and bridged to the same WebSocket hub for live board-change events.
package http

import (
	"context"
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coordinator/agent-board/internal/domain/event"
	domainproject "github.com/coordinator/agent-board/internal/domain/project"
	porteventbus "github.com/coordinator/agent-board/internal/port/eventbus"
	portboard "github.com/coordinator/agent-board/internal/port/board"
	"github.com/coordinator/agent-board/internal/service/analyzer"
	"github.com/coordinator/agent-board/internal/service/mode"
	agentregistry "github.com/coordinator/agent-board/internal/service/registry"
	wshandler "github.com/coordinator/agent-board/internal/transport/ws"
)

// broadcastedChannels are the event channels forwarded to WebSocket observers.
var broadcastedChannels = []event.Channel{
	event.ChannelTask,
	event.ChannelAgent,
	event.ChannelProject,
}

func NewRouter(
	ctx context.Context,
	board portboard.Client,
	boardAnalyzer *analyzer.Analyzer,
	agents *agentregistry.Registry,
	eventBus porteventbus.EventBus,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(CORSMiddleware())

	api := r.Group("/api")

	api.GET("/project/status", func(c *gin.Context) {
		tasks, err := board.ListTasks(c.Request.Context())
		if err != nil {
			c.JSON(nethttp.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		now := time.Now().UTC()
		snap := domainproject.NewSnapshot(tasks, now)
		score, class := boardAnalyzer.Analyze(snap, now)

		done := 0
		for _, t := range tasks {
			if t.Status == "done" {
				done++
			}
		}
		completionPct := 0.0
		if len(tasks) > 0 {
			completionPct = float64(done) / float64(len(tasks)) * 100
		}

		c.JSON(nethttp.StatusOK, gin.H{
			"task_count":     len(tasks),
			"completion_pct": completionPct,
			"class":          string(class),
			"mode":           string(mode.Select(class, "")),
			"score":          score,
		})
	})

	api.GET("/agents", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{"agents": agents.List()})
	})

	hub := wshandler.NewHub()
	hub.Register(api.Group("/ws"))

	for _, ch := range broadcastedChannels {
		channel := ch
		if _, err := eventBus.Subscribe(ctx, channel, func(_ context.Context, e event.Event) {
			hub.Broadcast(e)
		}); err != nil {
			slog.Error("failed to subscribe event channel to WS hub", "channel", channel, "error", err)
		}
	}

	return r
}
