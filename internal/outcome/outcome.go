// Package outcome derives the actual results that special predictions are
// scored against. Every function is a pure read over fixtures and teams.
package outcome

import (
	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/attaboy/tippspiel/internal/standings"
	"github.com/google/uuid"
)

// knockoutWalk is the order in which a team's deepest round is searched.
var knockoutWalk = []domain.Phase{
	domain.PhaseFinal,
	domain.PhaseSemiFinal,
	domain.PhaseQuarterFinal,
	domain.PhaseRoundOf16,
}

// GroupWinner returns the top team of a group table, or nil for an empty group.
func GroupWinner(teams []domain.Team, label string) *uuid.UUID {
	table := standings.GroupTable(teams, label)
	if len(table) == 0 {
		return nil
	}
	id := table[0].ID
	return &id
}

// GroupComplete reports whether every GROUP fixture with the label is finished.
// A group without fixtures is not complete.
func GroupComplete(fixtures []domain.Fixture, label string) bool {
	n := 0
	for _, fx := range fixtures {
		if fx.Phase != domain.PhaseGroup || fx.GroupLabel != label {
			continue
		}
		if !fx.HasResult() {
			return false
		}
		n++
	}
	return n > 0
}

// GroupStageComplete reports whether every group fixture of the tournament is finished.
func GroupStageComplete(fixtures []domain.Fixture) bool {
	n := 0
	for _, fx := range fixtures {
		if fx.Phase != domain.PhaseGroup {
			continue
		}
		if !fx.HasResult() {
			return false
		}
		n++
	}
	return n > 0
}

// Final returns the FINAL fixture if it is finished.
func Final(fixtures []domain.Fixture) (domain.Fixture, bool) {
	for _, fx := range fixtures {
		if fx.Phase == domain.PhaseFinal && fx.HasResult() {
			return fx, true
		}
	}
	return domain.Fixture{}, false
}

// Champion returns the winner of the finished FINAL, or nil while undecided.
func Champion(fixtures []domain.Fixture) *uuid.UUID {
	fx, ok := Final(fixtures)
	if !ok {
		return nil
	}
	return Winner(fx)
}

// Winner returns who advanced from a finished knockout fixture.
func Winner(fx domain.Fixture) *uuid.UUID {
	if !fx.Phase.IsKnockout() {
		return nil
	}
	return fx.Winner()
}

// TotalGoals sums the goals teamID scored across all finished fixtures.
// Shoot-out goals are never stored and so never count.
func TotalGoals(fixtures []domain.Fixture, teamID uuid.UUID) int {
	total := 0
	for _, fx := range fixtures {
		if goals, ok := fx.GoalsFor(teamID); ok {
			total += goals
		}
	}
	return total
}

// FinalRanking returns how far teamID got. Losing a semi-final and the
// third-place match are both reported as SEMI_FINAL.
func FinalRanking(fixtures []domain.Fixture, teamID uuid.UUID) domain.RankingBucket {
	for _, phase := range knockoutWalk {
		for _, fx := range fixtures {
			if fx.Phase != phase || !fx.HasResult() || !fx.Involves(teamID) {
				continue
			}
			switch phase {
			case domain.PhaseFinal:
				if w := Winner(fx); w != nil && *w == teamID {
					return domain.BucketChampion
				}
				return domain.BucketRunnerUp
			case domain.PhaseSemiFinal:
				return domain.BucketSemiFinal
			case domain.PhaseQuarterFinal:
				return domain.BucketQuarterFinal
			default:
				return domain.BucketRoundOf16
			}
		}
	}
	return domain.BucketGroupStage
}

// Eliminated reports whether teamID can play no further fixture: it lost a
// finished knockout match other than the third-place play-off, or the group
// stage is over and the team is in no knockout fixture.
func Eliminated(fixtures []domain.Fixture, teamID uuid.UUID) bool {
	inKnockout := false
	for _, fx := range fixtures {
		if !fx.Phase.IsKnockout() || !fx.Involves(teamID) {
			continue
		}
		inKnockout = true
		if !fx.HasResult() || fx.Phase == domain.PhaseSemiFinal || fx.Phase == domain.PhaseThirdPlace {
			continue
		}
		if w := Winner(fx); w != nil && *w != teamID {
			return true
		}
	}
	if inKnockout {
		return thirdPlaceDone(fixtures, teamID)
	}
	return GroupStageComplete(fixtures) && knockoutSeeded(fixtures)
}

// thirdPlaceDone covers semi-final losers, whose last match is the play-off.
func thirdPlaceDone(fixtures []domain.Fixture, teamID uuid.UUID) bool {
	for _, fx := range fixtures {
		if fx.Phase == domain.PhaseThirdPlace && fx.Involves(teamID) && fx.HasResult() {
			return true
		}
	}
	return false
}

// knockoutSeeded reports whether the first knockout round has no open slot left.
func knockoutSeeded(fixtures []domain.Fixture) bool {
	first := domain.Phase("")
	for _, p := range []domain.Phase{domain.PhaseRoundOf16, domain.PhaseQuarterFinal, domain.PhaseSemiFinal, domain.PhaseFinal} {
		for _, fx := range fixtures {
			if fx.Phase == p {
				first = p
				break
			}
		}
		if first != "" {
			break
		}
	}
	if first == "" {
		return true
	}
	for _, fx := range fixtures {
		if fx.Phase == first && (!fx.Home.Resolved() || !fx.Visitor.Resolved()) {
			return false
		}
	}
	return true
}

// Resolve computes the actual outcome of spec once it is knowable. It returns
// ok=false while the outcome can still change.
func Resolve(spec domain.SpecialSpec, fixtures []domain.Fixture, teams []domain.Team) (*domain.Outcome, bool) {
	_, decided := Final(fixtures)

	switch spec.Kind {
	case domain.SpecialWinner:
		if spec.ScopeGroup != "" {
			if !GroupComplete(fixtures, spec.ScopeGroup) {
				return nil, false
			}
			id := GroupWinner(teams, spec.ScopeGroup)
			if id == nil {
				return nil, false
			}
			o := domain.WinnerOutcome(*id)
			return &o, true
		}
		id := Champion(fixtures)
		if id == nil {
			return nil, false
		}
		o := domain.WinnerOutcome(*id)
		return &o, true

	case domain.SpecialTotalGoals:
		if spec.ScopeTeamID == nil {
			return nil, false
		}
		if !decided && !Eliminated(fixtures, *spec.ScopeTeamID) {
			return nil, false
		}
		o := domain.GoalsOutcome(TotalGoals(fixtures, *spec.ScopeTeamID))
		return &o, true

	case domain.SpecialFinalRanking:
		if spec.ScopeTeamID == nil {
			return nil, false
		}
		if !decided && !Eliminated(fixtures, *spec.ScopeTeamID) {
			return nil, false
		}
		o := domain.RankingOutcome(FinalRanking(fixtures, *spec.ScopeTeamID))
		return &o, true
	}
	return nil, false
}
