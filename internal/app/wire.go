// Package app wires the scoring core, its stores and the ops surface for
// both binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/attaboy/tippspiel/internal/engine"
	"github.com/attaboy/tippspiel/internal/handler"
	"github.com/attaboy/tippspiel/internal/infra"
	"github.com/attaboy/tippspiel/internal/projection"
	"github.com/attaboy/tippspiel/internal/repository"
	"github.com/attaboy/tippspiel/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// App holds every long-lived dependency of a process.
type App struct {
	Config   *infra.Config
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Store    projection.Store
	Registry *prometheus.Registry
	Metrics  *infra.Metrics
	Engine   *engine.Engine
	Scoring  *service.ScoringService
	Reports  *service.ReportService
	Logger   *slog.Logger
}

// NewEngineRepositories returns the pgx repositories the engine writes through.
func NewEngineRepositories() engine.Repositories {
	return engine.Repositories{
		Tournaments: repository.NewTournamentRepository(),
		Fixtures:    repository.NewFixtureRepository(),
		Teams:       repository.NewTeamRepository(),
		Predictions: repository.NewPredictionRepository(),
		Specials:    repository.NewSpecialRepository(),
		Scores:      repository.NewScoreRepository(),
		Outbox:      repository.NewOutboxRepository(),
	}
}

// NewReportRepositories returns the pgx repositories the report service reads.
func NewReportRepositories() service.ReportRepositories {
	return service.ReportRepositories{
		Tournaments: repository.NewTournamentRepository(),
		Fixtures:    repository.NewFixtureRepository(),
		Teams:       repository.NewTeamRepository(),
		Predictions: repository.NewPredictionRepository(),
		Scores:      repository.NewScoreRepository(),
		TippGroups:  repository.NewTippGroupRepository(),
	}
}

// New connects to Postgres (and Redis when enabled) and assembles the services.
func New(ctx context.Context, cfg *infra.Config, logger *slog.Logger) (*App, error) {
	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	logger.Info("connected to postgres")

	a := &App{Config: cfg, Pool: pool, Logger: logger}

	a.Store = projection.NewInMemoryStore()
	if cfg.RedisEnabled {
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.Info("connected to redis")
		a.Redis = client
		a.Store = projection.NewRedisStore(client)
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = infra.NewMetrics(a.Registry)

	a.Engine = engine.NewEngine(NewEngineRepositories(), logger)
	a.Scoring = service.NewScoringService(pool, a.Engine, a.Store, cfg.LeaderboardCacheTTL, a.Metrics, logger)
	a.Reports = service.NewReportService(pool, NewReportRepositories(), a.Store, cfg.LeaderboardCacheTTL, a.Metrics, logger)
	return a, nil
}

// OpsRouter serves /health and /metrics. extra adds dependency checks.
func (a *App) OpsRouter(extra map[string]handler.Pinger) chi.Router {
	checks := map[string]handler.Pinger{
		"postgres": handler.PingFunc(func(ctx context.Context) error { return infra.HealthCheck(ctx, a.Pool) }),
	}
	if a.Redis != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() })
	}
	for name, p := range extra {
		checks[name] = p
	}
	return handler.NewOpsRouter(handler.OpsDeps{Registry: a.Registry, Checks: checks, Logger: a.Logger})
}

// Close releases the connections opened by New.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("close redis", "error", err)
		}
	}
	a.Pool.Close()
}
