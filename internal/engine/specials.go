package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/attaboy/tippspiel/internal/leaderboard"
	"github.com/attaboy/tippspiel/internal/outcome"
	"github.com/attaboy/tippspiel/internal/settlement"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SpecialsResult is returned by ResolveAndScoreSpecials.
type SpecialsResult struct {
	TournamentID uuid.UUID
	Resolved     int
	Scored       int
	Complete     bool
	Leaderboard  *leaderboard.Result
}

// ResolveAndScoreSpecials resolves every special whose outcome is knowable,
// scores its predictions and recomputes the leaderboard. Running it again
// without new results changes nothing.
func (e *Engine) ResolveAndScoreSpecials(ctx context.Context, tx pgx.Tx, tournamentID uuid.UUID) (*SpecialsResult, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.ResolveAndScoreSpecials",
		trace.WithAttributes(attribute.String("tournament_id", tournamentID.String())))
	defer span.End()

	t, err := e.LockTournament(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("resolve specials: %w", err)
	}

	specs, err := e.specials.ListSpecs(ctx, tx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve specials: %w", err)
	}
	fixtures, err := e.fixtures.ListByTournament(ctx, tx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve specials: %w", err)
	}
	teams, err := e.teams.ListByTournament(ctx, tx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve specials: %w", err)
	}

	res := &SpecialsResult{TournamentID: t.ID}
	now := e.now()
	for i := range specs {
		spec := &specs[i]
		changed := false
		if actual, ok := outcome.Resolve(*spec, fixtures, teams); ok {
			if spec.Actual == nil || !spec.Actual.Equal(*actual) {
				spec.Actual = actual
				spec.ResolvedAt = &now
				if err := e.specials.SetActual(ctx, tx, spec); err != nil {
					return nil, fmt.Errorf("resolve specials: %w", err)
				}
				res.Resolved++
				changed = true
			}
		}
		if !spec.Resolved() {
			continue
		}

		n, err := e.scoreSpecial(ctx, tx, *spec, changed, now)
		if err != nil {
			return nil, fmt.Errorf("resolve specials: %w", err)
		}
		res.Scored += n
	}

	res.Complete = outcome.Champion(fixtures) != nil
	if res.Complete != t.Complete {
		if err := e.tournaments.SetComplete(ctx, tx, t.ID, res.Complete); err != nil {
			return nil, fmt.Errorf("resolve specials: %w", err)
		}
		t.Complete = res.Complete
	}

	if err := e.outbox.Insert(ctx, tx, domain.NewSpecialsResolvedEvent(t.ID, res.Resolved, res.Scored)); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	if res.Leaderboard, err = e.recompute(ctx, tx, t); err != nil {
		return nil, fmt.Errorf("resolve specials: %w", err)
	}

	if res.Resolved > 0 {
		e.logger.Info("specials resolved", "tournament_id", t.ID, "resolved", res.Resolved, "scored", res.Scored)
	}
	return res, nil
}

// scoreSpecial scores the picks of a resolved spec. Unless the outcome just
// changed only picks that were never scored are touched.
func (e *Engine) scoreSpecial(ctx context.Context, tx pgx.Tx, spec domain.SpecialSpec, changed bool, now time.Time) (int, error) {
	preds, err := e.specials.ListPredictions(ctx, tx, spec.ID)
	if err != nil {
		return 0, err
	}
	var dirty []domain.SpecialPrediction
	for i := range preds {
		if !changed && preds[i].ScoredAt != nil {
			continue
		}
		if settlement.ApplySpecial(spec, &preds[i], now) {
			dirty = append(dirty, preds[i])
		}
	}
	if len(dirty) == 0 {
		return 0, nil
	}
	if err := e.specials.SaveScores(ctx, tx, dirty); err != nil {
		return 0, err
	}
	return len(dirty), nil
}

// unresolveSpecials clears every resolved outcome and its scores. The caller
// re-resolves whatever is still knowable.
func (e *Engine) unresolveSpecials(ctx context.Context, tx pgx.Tx, tournamentID uuid.UUID) (int, error) {
	specs, err := e.specials.ListSpecs(ctx, tx, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("list specs: %w", err)
	}
	var ids []uuid.UUID
	for i := range specs {
		if !specs[i].Resolved() {
			continue
		}
		specs[i].Actual = nil
		specs[i].ResolvedAt = nil
		if err := e.specials.SetActual(ctx, tx, &specs[i]); err != nil {
			return 0, fmt.Errorf("clear actual: %w", err)
		}
		ids = append(ids, specs[i].ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if _, err := e.specials.ClearScores(ctx, tx, ids); err != nil {
		return 0, fmt.Errorf("clear special scores: %w", err)
	}
	return len(ids), nil
}
