// Package standings maintains group tables from finished group fixtures.
package standings

import (
	"sort"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/google/uuid"
)

// Points awarded per group result.
const (
	WinPoints  = 3
	DrawPoints = 1
	LossPoints = 0
)

// Apply adds fx's result to both teams' tallies. It returns false and leaves
// the teams untouched unless fx is a finished GROUP fixture whose slots are
// resolved to exactly home and visitor. Apply never subtracts; callers must
// invoke it once per finish event and refold on reopen.
func Apply(home, visitor *domain.Team, fx domain.Fixture) bool {
	if fx.Phase != domain.PhaseGroup || !fx.HasResult() {
		return false
	}
	if home == nil || visitor == nil || !fx.Home.Is(home.ID) || !fx.Visitor.Is(visitor.ID) {
		return false
	}
	gh, gv := *fx.GoalsHome, *fx.GoalsVisitor
	record(&home.Tally, gh, gv)
	record(&visitor.Tally, gv, gh)
	return true
}

func record(t *domain.Tally, scored, conceded int) {
	t.GoalsFor += scored
	t.GoalsAgainst += conceded
	switch {
	case scored > conceded:
		t.Wins++
		t.Points += WinPoints
	case scored == conceded:
		t.Draws++
		t.Points += DrawPoints
	default:
		t.Losses++
		t.Points += LossPoints
	}
}

// Fold resets every tally and re-applies all finished group fixtures. The
// result is what the tallies must equal at any time.
func Fold(teams []domain.Team, fixtures []domain.Fixture) []domain.Team {
	out := make([]domain.Team, len(teams))
	index := make(map[uuid.UUID]int, len(teams))
	for i, t := range teams {
		t.Tally = domain.Tally{}
		out[i] = t
		index[t.ID] = i
	}
	for _, fx := range fixtures {
		if fx.Phase != domain.PhaseGroup || !fx.HasResult() {
			continue
		}
		if !fx.Home.Resolved() || !fx.Visitor.Resolved() {
			continue
		}
		hi, okH := index[*fx.Home.TeamID]
		vi, okV := index[*fx.Visitor.TeamID]
		if !okH || !okV {
			continue
		}
		Apply(&out[hi], &out[vi], fx)
	}
	return out
}

// Less orders two rows by points, goal difference, then goals scored.
func Less(a, b domain.Tally) bool {
	if a.Points != b.Points {
		return a.Points > b.Points
	}
	if a.GoalDifference() != b.GoalDifference() {
		return a.GoalDifference() > b.GoalDifference()
	}
	return a.GoalsFor > b.GoalsFor
}

// Sort orders teams in place. Teams level on every criterion keep their input order.
func Sort(teams []domain.Team) {
	sort.SliceStable(teams, func(i, j int) bool {
		return Less(teams[i].Tally, teams[j].Tally)
	})
}

// GroupTable returns the sorted rows of one group.
func GroupTable(teams []domain.Team, label string) []domain.Team {
	var rows []domain.Team
	for _, t := range teams {
		if t.GroupLabel == label {
			rows = append(rows, t)
		}
	}
	Sort(rows)
	return rows
}

// Groups returns the distinct group labels in ascending order.
func Groups(teams []domain.Team) []string {
	seen := make(map[string]struct{})
	var labels []string
	for _, t := range teams {
		if t.GroupLabel == "" {
			continue
		}
		if _, ok := seen[t.GroupLabel]; ok {
			continue
		}
		seen[t.GroupLabel] = struct{}{}
		labels = append(labels, t.GroupLabel)
	}
	sort.Strings(labels)
	return labels
}

// Diff reports the teams whose stored tally differs from want, keyed by team id.
func Diff(stored, want []domain.Team) map[uuid.UUID][2]domain.Tally {
	expected := make(map[uuid.UUID]domain.Tally, len(want))
	for _, t := range want {
		expected[t.ID] = t.Tally
	}
	out := make(map[uuid.UUID][2]domain.Tally)
	for _, t := range stored {
		if w, ok := expected[t.ID]; ok && w != t.Tally {
			out[t.ID] = [2]domain.Tally{t.Tally, w}
		}
	}
	return out
}
