package engine

import (
	"context"
	"fmt"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/attaboy/tippspiel/internal/leaderboard"
	"github.com/attaboy/tippspiel/internal/standings"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// VerifyResult holds the outcome of an invariant check over one tournament.
type VerifyResult struct {
	TournamentID uuid.UUID
	MatchDay     int
	Invariants   []InvariantCheck
	AllPassed    bool
}

// InvariantCheck records a single invariant validation.
type InvariantCheck struct {
	Name   string
	Passed bool
	Detail string
}

// Verify reads the persisted state of a tournament and validates 5 invariants.
//
// Invariants:
//  1. Fixture results: goals are set exactly on finished fixtures
//  2. Standings parity: team tallies equal a fold over applied group fixtures
//  3. Snapshot totals: total points are match points plus special points
//  4. Competition ranks: ranks follow the 1,1,3 scheme over the sort order
//  5. Recompute parity: a fresh recompute yields the stored totals and ranks
func (e *Engine) Verify(ctx context.Context, tx pgx.Tx, tournamentID uuid.UUID) (*VerifyResult, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.Verify",
		trace.WithAttributes(attribute.String("tournament_id", tournamentID.String())))
	defer span.End()

	t, err := e.tournaments.FindByID(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	if t == nil {
		return nil, domain.ErrNotFound("tournament", tournamentID.String())
	}

	fixtures, err := e.fixtures.ListByTournament(ctx, tx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("verify fixtures: %w", err)
	}
	teams, err := e.teams.ListByTournament(ctx, tx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("verify teams: %w", err)
	}
	snapshot, err := e.scores.ListByTournament(ctx, tx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("verify snapshot: %w", err)
	}
	fresh, matchDay, err := e.dryRun(ctx, tx, t)
	if err != nil {
		return nil, fmt.Errorf("verify recompute: %w", err)
	}

	invariants := []InvariantCheck{
		checkFixtureResults(fixtures),
		checkStandings(teams, fixtures),
		checkTotals(snapshot),
		checkRanks(snapshot),
		checkRecompute(snapshot, fresh),
	}
	allPassed := true
	for _, inv := range invariants {
		if !inv.Passed {
			allPassed = false
		}
	}

	return &VerifyResult{
		TournamentID: t.ID,
		MatchDay:     matchDay,
		Invariants:   invariants,
		AllPassed:    allPassed,
	}, nil
}

// dryRun computes the leaderboard without writing it.
func (e *Engine) dryRun(ctx context.Context, tx pgx.Tx, t *domain.Tournament) ([]domain.UserScore, int, error) {
	participants, err := e.tournaments.ListParticipants(ctx, tx, t.ID)
	if err != nil {
		return nil, 0, err
	}
	users := make([]uuid.UUID, len(participants))
	for i, p := range participants {
		users[i] = p.UserID
	}
	tipps, err := e.predictions.ListScores(ctx, tx, t.ID)
	if err != nil {
		return nil, 0, err
	}
	specials, err := e.specials.ListScores(ctx, tx, t.ID)
	if err != nil {
		return nil, 0, err
	}
	matchDay, err := e.fixtures.CountFinished(ctx, tx, t.ID)
	if err != nil {
		return nil, 0, err
	}
	res := leaderboard.Compute(leaderboard.Input{
		TournamentID: t.ID,
		Users:        users,
		Tipps:        tipps,
		Specials:     specials,
		MatchDay:     matchDay,
		At:           e.now(),
	})
	return res.Scores, matchDay, nil
}

func checkFixtureResults(fixtures []domain.Fixture) InvariantCheck {
	for _, fx := range fixtures {
		if err := fx.Validate(); err != nil {
			return InvariantCheck{
				Name:   "fixture_results",
				Passed: false,
				Detail: fmt.Sprintf("fixture %s: %v", fx.ID, err),
			}
		}
	}
	return InvariantCheck{
		Name:   "fixture_results",
		Passed: true,
		Detail: fmt.Sprintf("%d fixtures valid", len(fixtures)),
	}
}

func checkStandings(teams []domain.Team, fixtures []domain.Fixture) InvariantCheck {
	diff := standings.Diff(teams, standings.Fold(teams, appliedFixtures(fixtures)))
	for id, d := range diff {
		return InvariantCheck{
			Name:   "standings_parity",
			Passed: false,
			Detail: fmt.Sprintf("%d teams differ, e.g. %s stored %+v want %+v", len(diff), id, d[0], d[1]),
		}
	}
	return InvariantCheck{
		Name:   "standings_parity",
		Passed: true,
		Detail: fmt.Sprintf("%d team tallies match", len(teams)),
	}
}

func checkTotals(snapshot []domain.UserScore) InvariantCheck {
	for _, s := range snapshot {
		if s.TotalPoints != s.MatchPoints+s.SpecialPoints {
			return InvariantCheck{
				Name:   "snapshot_totals",
				Passed: false,
				Detail: fmt.Sprintf("user %s: total %d != %d + %d", s.UserID, s.TotalPoints, s.MatchPoints, s.SpecialPoints),
			}
		}
	}
	return InvariantCheck{
		Name:   "snapshot_totals",
		Passed: true,
		Detail: fmt.Sprintf("%d rows", len(snapshot)),
	}
}

// checkRanks expects the snapshot ordered by rank.
func checkRanks(snapshot []domain.UserScore) InvariantCheck {
	for i, s := range snapshot {
		want := i + 1
		if i > 0 && leaderboard.Tied(snapshot[i-1], s) {
			want = snapshot[i-1].Rank
		}
		if i > 0 && leaderboard.Ahead(s, snapshot[i-1]) {
			return InvariantCheck{
				Name:   "competition_ranks",
				Passed: false,
				Detail: fmt.Sprintf("user %s ranked %d is ahead of the row above", s.UserID, s.Rank),
			}
		}
		if s.Rank != want {
			return InvariantCheck{
				Name:   "competition_ranks",
				Passed: false,
				Detail: fmt.Sprintf("user %s: rank %d, want %d", s.UserID, s.Rank, want),
			}
		}
	}
	return InvariantCheck{
		Name:   "competition_ranks",
		Passed: true,
		Detail: fmt.Sprintf("%d rows", len(snapshot)),
	}
}

func checkRecompute(snapshot, fresh []domain.UserScore) InvariantCheck {
	stored := make(map[uuid.UUID]domain.UserScore, len(snapshot))
	for _, s := range snapshot {
		stored[s.UserID] = s
	}
	if len(stored) != len(fresh) {
		return InvariantCheck{
			Name:   "recompute_parity",
			Passed: false,
			Detail: fmt.Sprintf("snapshot has %d rows, recompute %d", len(stored), len(fresh)),
		}
	}
	for _, f := range fresh {
		s, ok := stored[f.UserID]
		if !ok || s.TotalPoints != f.TotalPoints || s.Rank != f.Rank {
			return InvariantCheck{
				Name:   "recompute_parity",
				Passed: false,
				Detail: fmt.Sprintf("user %s: stored %d points rank %d, recompute %d points rank %d",
					f.UserID, s.TotalPoints, s.Rank, f.TotalPoints, f.Rank),
			}
		}
	}
	return InvariantCheck{
		Name:   "recompute_parity",
		Passed: true,
		Detail: fmt.Sprintf("%d rows", len(fresh)),
	}
}
