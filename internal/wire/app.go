// Package wire is the composition root: it builds every concrete adapter,
// wires them into the services, and assembles the transport layer into one
// runnable App. Grounded on the teacher's internal/wire, which performed the
// identical "build adapters -> build services -> build transport" assembly
// for a different domain.
package wire

import (
	"context"
	"fmt"
	nethttp "net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	aihttp "github.com/coordinator/agent-board/internal/adapter/ai/http"
	ainone "github.com/coordinator/agent-board/internal/adapter/ai/none"
	boardgithub "github.com/coordinator/agent-board/internal/adapter/board/github"
	boardmemory "github.com/coordinator/agent-board/internal/adapter/board/memory"
	ledgermemory "github.com/coordinator/agent-board/internal/adapter/ledger/memory"
	ledgerpostgres "github.com/coordinator/agent-board/internal/adapter/ledger/postgres"
	pgeventbus "github.com/coordinator/agent-board/internal/adapter/postgres/eventbus"
	"github.com/coordinator/agent-board/internal/apperr"
	domainevent "github.com/coordinator/agent-board/internal/domain/event"
	porteventbus "github.com/coordinator/agent-board/internal/port/eventbus"
	portai "github.com/coordinator/agent-board/internal/port/ai"
	portboard "github.com/coordinator/agent-board/internal/port/board"
	portledger "github.com/coordinator/agent-board/internal/port/ledger"
	"github.com/coordinator/agent-board/internal/adapter/postgres"
	"github.com/coordinator/agent-board/internal/service/analyzer"
	"github.com/coordinator/agent-board/internal/service/assignment"
	"github.com/coordinator/agent-board/internal/service/feature"
	"github.com/coordinator/agent-board/internal/service/progress"
	agentregistry "github.com/coordinator/agent-board/internal/service/registry"
	"github.com/coordinator/agent-board/internal/service/sweeper"
	"github.com/coordinator/agent-board/internal/service/synth"
	transporthttp "github.com/coordinator/agent-board/internal/transport/http"
	transportmcp "github.com/coordinator/agent-board/internal/transport/mcp"
)

// App is everything main needs to run and shut down the process.
type App struct {
	Config  Config
	Pool    *pgxpool.Pool // nil when DatabaseURL is unset
	Server  *nethttp.Server
	Sweeper *sweeper.Sweeper

	ledger portledger.Ledger
	board  portboard.Client
}

// RecoverOnStart cross-checks the ledger against the board before the
// process accepts any connections (§4.10 crash recovery).
func (a *App) RecoverOnStart(ctx context.Context) error {
	return sweeper.RecoverOnStart(ctx, a.ledger, a.board)
}

// Build assembles the full application graph from cfg.
func Build(ctx context.Context, cfg Config) (*App, error) {
	var pool *pgxpool.Pool
	var ledger portledger.Ledger
	var eventBus porteventbus.EventBus

	if cfg.DatabaseURL != "" {
		var err error
		pool, err = postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		ledger = ledgerpostgres.New(pool)
		eventBus = pgeventbus.New(pool)
	} else {
		ledger = ledgermemory.New()
		eventBus = noopEventBus{}
	}

	board, err := buildBoard(cfg)
	if err != nil {
		return nil, err
	}

	ai := buildAI(cfg)

	agents := agentregistry.New()
	boardAnalyzer := analyzer.New(cfg.AnalyzerCacheTTL)

	engine := assignment.NewEngine(ledger, board, ai)

	sessions := transportmcp.NewSessionRegistry()
	tracker := progress.New(ledger, board, ai, agents)
	synthesizer := synth.New(ai, board)
	inserter := feature.New(ai, board)

	sweep := sweeper.New(ledger, board, agents, cfg.SweepInterval, cfg.LeaseFloor, cfg.LeaseCeiling, nil)

	mcpSrv := transportmcp.New(sessions, agents, engine, tracker, synthesizer, inserter, boardAnalyzer, board)

	router := transporthttp.NewRouter(ctx, board, boardAnalyzer, agents, eventBus)

	mux := nethttp.NewServeMux()
	mux.Handle("/api/", router)
	mux.Handle("/mcp", mcpSrv.Handler())
	mux.Handle("/mcp/", mcpSrv.Handler())

	return &App{
		Config: cfg,
		Pool:   pool,
		Server: &nethttp.Server{
			Addr:    cfg.Addr,
			Handler: mux,
		},
		Sweeper: sweep,
		ledger:  ledger,
		board:   board,
	}, nil
}

func buildBoard(cfg Config) (portboard.Client, error) {
	switch cfg.BoardProvider {
	case "github":
		if cfg.GitHubToken == "" || cfg.GitHubOwner == "" || cfg.GitHubRepo == "" {
			return nil, apperr.New(apperr.KindPermanent, "wire.buildBoard", fmt.Errorf("github board provider requires GITHUB_TOKEN, GITHUB_OWNER, GITHUB_REPO"))
		}
		return boardgithub.NewClient(cfg.GitHubToken, cfg.GitHubOwner, cfg.GitHubRepo), nil
	case "memory", "":
		return boardmemory.New(), nil
	default:
		return nil, apperr.Newf(apperr.KindPermanent, "wire.buildBoard", "unrecognized board provider %q", cfg.BoardProvider)
	}
}

func buildAI(cfg Config) portai.Client {
	if !cfg.AIEnabled || cfg.AIBaseURL == "" {
		return ainone.New()
	}
	return aihttp.NewClient(cfg.AIBaseURL, cfg.AIAPIKey)
}

// noopEventBus backs a memory-only run (no DATABASE_URL): board-change events
// have nowhere durable to go, so publish is a no-op and subscribe never fires.
// The WS dashboard bridge simply stays quiet rather than erroring.
type noopEventBus struct{}

func (noopEventBus) Publish(context.Context, domainevent.Event) error { return nil }

func (noopEventBus) Subscribe(context.Context, domainevent.Channel, porteventbus.Handler) (porteventbus.Subscription, error) {
	return noopSubscription{}, nil
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}
