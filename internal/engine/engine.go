// Package engine runs the scoring pipeline inside a caller-owned transaction:
// result → tipp scores → group standings → specials → leaderboard, with an
// outbox event for every state change.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/attaboy/tippspiel/internal/leaderboard"
	"github.com/attaboy/tippspiel/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Repositories groups the stores the engine writes through.
type Repositories struct {
	Tournaments repository.TournamentRepository
	Fixtures    repository.FixtureRepository
	Teams       repository.TeamRepository
	Predictions repository.PredictionRepository
	Specials    repository.SpecialRepository
	Scores      repository.ScoreRepository
	Outbox      repository.OutboxRepository
}

// Engine provides the foundational scoring operations. Every method must be
// called within a transaction; locks are taken in the order
// fixture → teams → tournament.
type Engine struct {
	tournaments repository.TournamentRepository
	fixtures    repository.FixtureRepository
	teams       repository.TeamRepository
	predictions repository.PredictionRepository
	specials    repository.SpecialRepository
	scores      repository.ScoreRepository
	outbox      repository.OutboxRepository

	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewEngine creates a scoring engine with the given repositories.
func NewEngine(repos Repositories, logger *slog.Logger) *Engine {
	return &Engine{
		tournaments: repos.Tournaments,
		fixtures:    repos.Fixtures,
		teams:       repos.Teams,
		predictions: repos.Predictions,
		specials:    repos.Specials,
		scores:      repos.Scores,
		outbox:      repos.Outbox,
		logger:      logger,
		tracer:      otel.Tracer("github.com/attaboy/tippspiel/internal/engine"),
		now:         time.Now,
	}
}

// LockFixture acquires a row-level lock and returns the fixture.
func (e *Engine) LockFixture(ctx context.Context, tx pgx.Tx, fixtureID uuid.UUID) (*domain.Fixture, error) {
	fx, err := e.fixtures.LockForUpdate(ctx, tx, fixtureID)
	if err != nil {
		return nil, fmt.Errorf("lock fixture: %w", err)
	}
	if fx == nil {
		return nil, domain.ErrNotFound("fixture", fixtureID.String())
	}
	return fx, nil
}

// LockTournament acquires a row-level lock on the tournament. Special
// resolution and leaderboard recomputes serialize on this row.
func (e *Engine) LockTournament(ctx context.Context, tx pgx.Tx, tournamentID uuid.UUID) (*domain.Tournament, error) {
	t, err := e.tournaments.LockForUpdate(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("lock tournament: %w", err)
	}
	if t == nil {
		return nil, domain.ErrNotFound("tournament", tournamentID.String())
	}
	return t, nil
}

// RecomputeLeaderboard rebuilds the snapshot of every participant from the
// scored predictions and upserts the history rows of the current match-day.
func (e *Engine) RecomputeLeaderboard(ctx context.Context, tx pgx.Tx, tournamentID uuid.UUID) (*leaderboard.Result, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.RecomputeLeaderboard",
		trace.WithAttributes(attribute.String("tournament_id", tournamentID.String())))
	defer span.End()

	t, err := e.LockTournament(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}
	return e.recompute(ctx, tx, t)
}

// recompute expects the tournament row to be locked already.
func (e *Engine) recompute(ctx context.Context, tx pgx.Tx, t *domain.Tournament) (*leaderboard.Result, error) {
	participants, err := e.tournaments.ListParticipants(ctx, tx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("recompute participants: %w", err)
	}
	users := make([]uuid.UUID, len(participants))
	for i, p := range participants {
		users[i] = p.UserID
	}

	tipps, err := e.predictions.ListScores(ctx, tx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("recompute tipp scores: %w", err)
	}
	specials, err := e.specials.ListScores(ctx, tx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("recompute special scores: %w", err)
	}
	specs, err := e.specials.ListSpecs(ctx, tx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("recompute specs: %w", err)
	}
	champions, err := e.specials.ChampionPicks(ctx, tx, t.ID, championSpecName(specs, t.ChampionSpecName))
	if err != nil {
		return nil, fmt.Errorf("recompute champion picks: %w", err)
	}
	matchDay, err := e.fixtures.CountFinished(ctx, tx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("recompute match-day: %w", err)
	}
	history, err := e.scores.LatestHistory(ctx, tx, t.ID, matchDay)
	if err != nil {
		return nil, fmt.Errorf("recompute history: %w", err)
	}

	res := leaderboard.Compute(leaderboard.Input{
		TournamentID: t.ID,
		Users:        users,
		Tipps:        tipps,
		Specials:     specials,
		Champions:    champions,
		History:      history,
		MatchDay:     matchDay,
		At:           e.now(),
	})

	if err := e.scores.ReplaceAll(ctx, tx, t.ID, res.Scores); err != nil {
		return nil, fmt.Errorf("recompute snapshot: %w", err)
	}
	// Match-day 0 has nothing to chart.
	if matchDay > 0 {
		if err := e.scores.UpsertHistory(ctx, tx, res.History); err != nil {
			return nil, fmt.Errorf("recompute history: %w", err)
		}
	}
	if err := e.outbox.Insert(ctx, tx, domain.NewLeaderboardRecomputedEvent(t.ID, matchDay, res.Scores)); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	e.logger.Debug("leaderboard recomputed", "tournament_id", t.ID, "match_day", matchDay, "participants", len(res.Scores))
	return &res, nil
}

// championSpecName returns preferred when such a special exists, otherwise
// the first unscoped WINNER special. specs are ordered by name.
func championSpecName(specs []domain.SpecialSpec, preferred string) string {
	for _, s := range specs {
		if s.Name == preferred {
			return preferred
		}
	}
	for _, s := range specs {
		if s.IsTournamentWinner() {
			return s.Name
		}
	}
	return preferred
}
