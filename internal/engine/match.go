package engine

import (
	"bytes"
	"context"
	"fmt"
	"slices"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/attaboy/tippspiel/internal/leaderboard"
	"github.com/attaboy/tippspiel/internal/settlement"
	"github.com/attaboy/tippspiel/internal/standings"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MatchResult is returned by FinishMatch and ScoreMatch.
// Idempotent is set when the result had already been applied and only tipp
// scores were re-derived.
type MatchResult struct {
	Fixture         *domain.Fixture
	Scored          bool
	TippsScored     int
	StandingsUpdate bool
	Idempotent      bool
	Specials        *SpecialsResult
	Leaderboard     *leaderboard.Result
}

// ReopenResult is returned by ReopenMatch.
type ReopenResult struct {
	Fixture       *domain.Fixture
	TippsCleared  int64
	TeamsRefolded int
	SpecsReopened int
	HistoryPruned int64
	Specials      *SpecialsResult
}

// FinishMatch records the result of a scheduled fixture and runs the whole
// pipeline: tipps, standings, specials and leaderboard.
// Pattern: Lock → Guard → Write → Score
func (e *Engine) FinishMatch(ctx context.Context, tx pgx.Tx, params domain.FinishMatchParams) (*MatchResult, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.FinishMatch",
		trace.WithAttributes(attribute.String("fixture_id", params.FixtureID.String())))
	defer span.End()

	fx, err := e.LockFixture(ctx, tx, params.FixtureID)
	if err != nil {
		return nil, fmt.Errorf("finish match: %w", err)
	}
	if fx.IsFinished() {
		return nil, domain.ErrConflict(fmt.Sprintf("fixture %s is already finished; reopen it before recording a new result", fx.ID))
	}
	if err := domain.ValidateFinish(*fx, params); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	gh, gv := params.GoalsHome, params.GoalsVisitor
	fx.Status = domain.FixtureFinished
	fx.GoalsHome = &gh
	fx.GoalsVisitor = &gv
	fx.HalftimeHome = params.HalftimeHome
	fx.HalftimeVisitor = params.HalftimeVisitor
	fx.PenaltyWinnerID = params.PenaltyWinnerID
	fx.PenaltyShootout = params.PenaltyWinnerID != nil
	fx.Version++
	if err := fx.Validate(); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := e.fixtures.Update(ctx, tx, fx); err != nil {
		return nil, fmt.Errorf("finish match update: %w", err)
	}
	if err := e.outbox.Insert(ctx, tx, domain.NewMatchFinishedEvent(fx)); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	res, err := e.score(ctx, tx, fx)
	if err != nil {
		return nil, fmt.Errorf("finish match: %w", err)
	}

	specials, err := e.ResolveAndScoreSpecials(ctx, tx, fx.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("finish match: %w", err)
	}
	res.Specials = specials
	res.Leaderboard = specials.Leaderboard

	e.logger.Info("match finished",
		"fixture_id", fx.ID,
		"goals_home", gh,
		"goals_visitor", gv,
		"tipps_scored", res.TippsScored,
		"standings_update", res.StandingsUpdate,
	)
	return res, nil
}

// ScoreMatch scores every tipp of a finished fixture, applies its group result
// once and recomputes the leaderboard. Scoring an unfinished fixture is a
// no-op; scoring an already applied fixture only re-derives tipp scores.
func (e *Engine) ScoreMatch(ctx context.Context, tx pgx.Tx, fixtureID uuid.UUID) (*MatchResult, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.ScoreMatch",
		trace.WithAttributes(attribute.String("fixture_id", fixtureID.String())))
	defer span.End()

	fx, err := e.LockFixture(ctx, tx, fixtureID)
	if err != nil {
		return nil, fmt.Errorf("score match: %w", err)
	}
	res, err := e.score(ctx, tx, fx)
	if err != nil {
		return nil, fmt.Errorf("score match: %w", err)
	}
	if !res.Scored {
		return res, nil
	}

	lb, err := e.RecomputeLeaderboard(ctx, tx, fx.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("score match: %w", err)
	}
	res.Leaderboard = lb
	return res, nil
}

// score expects fx to be locked. It does not touch the leaderboard.
func (e *Engine) score(ctx context.Context, tx pgx.Tx, fx *domain.Fixture) (*MatchResult, error) {
	res := &MatchResult{Fixture: fx}
	if !fx.HasResult() {
		return res, nil
	}

	hash := fx.Fingerprint()
	if fx.ResultHash != "" {
		if fx.ResultHash != hash {
			return nil, domain.ErrConflict(fmt.Sprintf("result of fixture %s changed after it was applied; reopen it first", fx.ID))
		}
		res.Idempotent = true
	}

	preds, err := e.predictions.ListByFixture(ctx, tx, fx.ID)
	if err != nil {
		return nil, fmt.Errorf("list tipps: %w", err)
	}
	now := e.now()
	for i := range preds {
		if settlement.ApplyTipp(*fx, &preds[i], now) {
			res.TippsScored++
		}
	}
	if err := e.predictions.SaveScores(ctx, tx, preds); err != nil {
		return nil, fmt.Errorf("save tipp scores: %w", err)
	}

	if fx.Phase == domain.PhaseGroup && !fx.StandingsApplied {
		applied, err := e.applyStandings(ctx, tx, fx)
		if err != nil {
			return nil, err
		}
		res.StandingsUpdate = applied
		fx.StandingsApplied = applied
	}

	if !res.Idempotent || res.StandingsUpdate {
		fx.ResultHash = hash
		if err := e.fixtures.Update(ctx, tx, fx); err != nil {
			return nil, fmt.Errorf("mark fixture applied: %w", err)
		}
	}

	if err := e.outbox.Insert(ctx, tx, domain.NewMatchScoredEvent(fx, res.TippsScored, res.StandingsUpdate)); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}
	res.Scored = true
	return res, nil
}

func (e *Engine) applyStandings(ctx context.Context, tx pgx.Tx, fx *domain.Fixture) (bool, error) {
	if !fx.Home.Resolved() || !fx.Visitor.Resolved() {
		return false, nil
	}
	locked, err := e.lockTeams(ctx, tx, *fx.Home.TeamID, *fx.Visitor.TeamID)
	if err != nil {
		return false, err
	}
	home, visitor := locked[*fx.Home.TeamID], locked[*fx.Visitor.TeamID]
	if !standings.Apply(home, visitor, *fx) {
		return false, nil
	}
	for _, t := range []*domain.Team{home, visitor} {
		if err := e.teams.UpdateTally(ctx, tx, t); err != nil {
			return false, fmt.Errorf("update tally: %w", err)
		}
	}
	return true, nil
}

// lockTeams locks teams in id order so concurrent finishes cannot deadlock.
func (e *Engine) lockTeams(ctx context.Context, tx pgx.Tx, ids ...uuid.UUID) (map[uuid.UUID]*domain.Team, error) {
	sorted := append([]uuid.UUID(nil), ids...)
	sortIDs(sorted)

	out := make(map[uuid.UUID]*domain.Team, len(sorted))
	for _, id := range sorted {
		if _, ok := out[id]; ok {
			continue
		}
		t, err := e.teams.LockForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lock team: %w", err)
		}
		if t == nil {
			return nil, domain.ErrNotFound("team", id.String())
		}
		out[id] = t
	}
	return out, nil
}

// ReopenMatch withdraws the result of a finished fixture. Tipp scores are
// cleared, group tallies are refolded from the remaining results, specials
// are re-resolved and the history of the withdrawn match-day is dropped.
func (e *Engine) ReopenMatch(ctx context.Context, tx pgx.Tx, fixtureID uuid.UUID) (*ReopenResult, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.ReopenMatch",
		trace.WithAttributes(attribute.String("fixture_id", fixtureID.String())))
	defer span.End()

	fx, err := e.LockFixture(ctx, tx, fixtureID)
	if err != nil {
		return nil, fmt.Errorf("reopen match: %w", err)
	}
	if !fx.IsFinished() {
		return nil, domain.ErrNotFinished(fx.ID.String())
	}

	wasApplied := fx.StandingsApplied
	fx.Status = domain.FixtureScheduled
	fx.GoalsHome, fx.GoalsVisitor = nil, nil
	fx.HalftimeHome, fx.HalftimeVisitor = nil, nil
	fx.PenaltyShootout = false
	fx.PenaltyWinnerID = nil
	fx.StandingsApplied = false
	fx.ResultHash = ""
	fx.Version++
	if err := e.fixtures.Update(ctx, tx, fx); err != nil {
		return nil, fmt.Errorf("reopen match update: %w", err)
	}

	res := &ReopenResult{Fixture: fx}
	if res.TippsCleared, err = e.predictions.ClearScores(ctx, tx, fx.ID); err != nil {
		return nil, fmt.Errorf("reopen match: %w", err)
	}

	if fx.Phase == domain.PhaseGroup && wasApplied {
		if res.TeamsRefolded, err = e.refoldGroup(ctx, tx, fx.TournamentID, fx.GroupLabel); err != nil {
			return nil, fmt.Errorf("reopen match: %w", err)
		}
	}

	if res.SpecsReopened, err = e.unresolveSpecials(ctx, tx, fx.TournamentID); err != nil {
		return nil, fmt.Errorf("reopen match: %w", err)
	}

	matchDay, err := e.fixtures.CountFinished(ctx, tx, fx.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("reopen match: %w", err)
	}
	if res.HistoryPruned, err = e.scores.PruneHistory(ctx, tx, fx.TournamentID, matchDay); err != nil {
		return nil, fmt.Errorf("reopen match: %w", err)
	}

	if err := e.outbox.Insert(ctx, tx, domain.NewMatchReopenedEvent(fx, int(res.TippsCleared))); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	if res.Specials, err = e.ResolveAndScoreSpecials(ctx, tx, fx.TournamentID); err != nil {
		return nil, fmt.Errorf("reopen match: %w", err)
	}

	e.logger.Info("match reopened",
		"fixture_id", fx.ID,
		"tipps_cleared", res.TippsCleared,
		"teams_refolded", res.TeamsRefolded,
		"specs_reopened", res.SpecsReopened,
	)
	return res, nil
}

// refoldGroup recomputes the tallies of one group from its applied fixtures.
func (e *Engine) refoldGroup(ctx context.Context, tx pgx.Tx, tournamentID uuid.UUID, label string) (int, error) {
	teams, err := e.teams.ListByTournament(ctx, tx, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("list teams: %w", err)
	}
	var ids []uuid.UUID
	for _, t := range teams {
		if t.GroupLabel == label {
			ids = append(ids, t.ID)
		}
	}
	locked, err := e.lockTeams(ctx, tx, ids...)
	if err != nil {
		return 0, err
	}
	group := make([]domain.Team, 0, len(ids))
	for _, id := range ids {
		group = append(group, *locked[id])
	}

	fixtures, err := e.fixtures.ListByTournament(ctx, tx, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("list fixtures: %w", err)
	}

	folded := standings.Fold(group, appliedFixtures(fixtures))
	changed := 0
	for i := range folded {
		if folded[i].Tally == group[i].Tally {
			continue
		}
		if err := e.teams.UpdateTally(ctx, tx, &folded[i]); err != nil {
			return 0, fmt.Errorf("update tally: %w", err)
		}
		changed++
	}
	return changed, nil
}

// appliedFixtures keeps the fixtures whose result is reflected in the tallies.
func appliedFixtures(fixtures []domain.Fixture) []domain.Fixture {
	var out []domain.Fixture
	for _, fx := range fixtures {
		if fx.StandingsApplied {
			out = append(out, fx)
		}
	}
	return out
}

// ResolveSlots replaces the placeholders of a scheduled knockout fixture with
// teams as earlier rounds complete.
func (e *Engine) ResolveSlots(ctx context.Context, tx pgx.Tx, params domain.ResolveSlotsParams) (*domain.Fixture, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.ResolveSlots",
		trace.WithAttributes(attribute.String("fixture_id", params.FixtureID.String())))
	defer span.End()

	if params.HomeTeamID == nil && params.VisitorTeamID == nil {
		return nil, domain.ErrValidation("at least one team is required")
	}

	fx, err := e.LockFixture(ctx, tx, params.FixtureID)
	if err != nil {
		return nil, fmt.Errorf("resolve slots: %w", err)
	}
	if !fx.Phase.IsKnockout() {
		return nil, domain.ErrValidation("group fixtures have fixed teams")
	}
	if fx.IsFinished() {
		return nil, domain.ErrConflict(fmt.Sprintf("fixture %s is finished; reopen it before changing teams", fx.ID))
	}

	for _, side := range []struct {
		slot *domain.Slot
		team *uuid.UUID
	}{{&fx.Home, params.HomeTeamID}, {&fx.Visitor, params.VisitorTeamID}} {
		if side.team == nil {
			continue
		}
		team, err := e.teams.FindByID(ctx, tx, *side.team)
		if err != nil {
			return nil, fmt.Errorf("resolve slots: %w", err)
		}
		if team == nil || team.TournamentID != fx.TournamentID {
			return nil, domain.ErrNotFound("team", side.team.String())
		}
		*side.slot = domain.TeamSlot(team.ID)
	}
	if fx.Home.Resolved() && fx.Visitor.Resolved() && *fx.Home.TeamID == *fx.Visitor.TeamID {
		return nil, domain.ErrValidation("a team cannot play itself")
	}

	fx.Version++
	if err := e.fixtures.Update(ctx, tx, fx); err != nil {
		return nil, fmt.Errorf("resolve slots update: %w", err)
	}
	if err := e.outbox.Insert(ctx, tx, domain.NewSlotsResolvedEvent(fx)); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}
	return fx, nil
}

func sortIDs(ids []uuid.UUID) {
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
}
