package standings

import (
	"testing"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func team(label, code string) domain.Team {
	return domain.Team{ID: uuid.New(), NationCode: code, GroupLabel: label}
}

func groupResult(home, visitor domain.Team, gh, gv int) domain.Fixture {
	return domain.Fixture{
		ID:           uuid.New(),
		Phase:        domain.PhaseGroup,
		GroupLabel:   home.GroupLabel,
		Home:         domain.TeamSlot(home.ID),
		Visitor:      domain.TeamSlot(visitor.ID),
		Status:       domain.FixtureFinished,
		GoalsHome:    intp(gh),
		GoalsVisitor: intp(gv),
	}
}

func TestApply(t *testing.T) {
	ger, jpn := team("E", "GER"), team("E", "JPN")

	t.Run("home win", func(t *testing.T) {
		h, v := ger, jpn
		require.True(t, Apply(&h, &v, groupResult(h, v, 3, 1)))
		assert.Equal(t, domain.Tally{Points: 3, Wins: 1, GoalsFor: 3, GoalsAgainst: 1}, h.Tally)
		assert.Equal(t, domain.Tally{Points: 0, Losses: 1, GoalsFor: 1, GoalsAgainst: 3}, v.Tally)
	})

	t.Run("draw", func(t *testing.T) {
		h, v := ger, jpn
		require.True(t, Apply(&h, &v, groupResult(h, v, 2, 2)))
		assert.Equal(t, domain.Tally{Points: 1, Draws: 1, GoalsFor: 2, GoalsAgainst: 2}, h.Tally)
		assert.Equal(t, h.Tally, v.Tally)
	})

	t.Run("knockout is ignored", func(t *testing.T) {
		h, v := ger, jpn
		fx := groupResult(h, v, 1, 0)
		fx.Phase = domain.PhaseRoundOf16
		fx.GroupLabel = ""
		assert.False(t, Apply(&h, &v, fx))
		assert.Zero(t, h.Tally)
	})

	t.Run("unfinished is ignored", func(t *testing.T) {
		h, v := ger, jpn
		fx := groupResult(h, v, 1, 0)
		fx.Status = domain.FixtureScheduled
		fx.GoalsHome, fx.GoalsVisitor = nil, nil
		assert.False(t, Apply(&h, &v, fx))
	})

	t.Run("unresolved slot is ignored", func(t *testing.T) {
		h, v := ger, jpn
		fx := groupResult(h, v, 1, 0)
		fx.Visitor = domain.PlaceholderSlot("TBD")
		assert.False(t, Apply(&h, &v, fx))
		assert.Zero(t, h.Tally)
	})

	t.Run("teams swapped are rejected", func(t *testing.T) {
		h, v := ger, jpn
		assert.False(t, Apply(&v, &h, groupResult(h, v, 1, 0)))
	})
}

func TestFold_MatchesTallyDefinition(t *testing.T) {
	a, b, c, d := team("A", "QAT"), team("A", "ECU"), team("A", "SEN"), team("A", "NED")
	teams := []domain.Team{a, b, c, d}
	results := [][4]int{
		// home, visitor, goals home, goals visitor
		{0, 1, 0, 2},
		{2, 3, 0, 2},
		{0, 2, 1, 3},
		{3, 1, 1, 1},
		{3, 0, 2, 0},
		{1, 2, 1, 2},
	}
	var fixtures []domain.Fixture
	for _, r := range results {
		fixtures = append(fixtures, groupResult(teams[r[0]], teams[r[1]], r[2], r[3]))
	}
	fixtures = append(fixtures, domain.Fixture{ID: uuid.New(), Phase: domain.PhaseGroup, GroupLabel: "A", Home: domain.TeamSlot(a.ID), Visitor: domain.TeamSlot(b.ID), Status: domain.FixtureScheduled})

	folded := Fold(teams, fixtures)

	for i, tm := range folded {
		var w, dr, l, gf, ga int
		for _, r := range results {
			var scored, conceded int
			switch i {
			case r[0]:
				scored, conceded = r[2], r[3]
			case r[1]:
				scored, conceded = r[3], r[2]
			default:
				continue
			}
			gf += scored
			ga += conceded
			switch {
			case scored > conceded:
				w++
			case scored == conceded:
				dr++
			default:
				l++
			}
		}
		assert.Equal(t, 3*w+dr, tm.Points, tm.NationCode)
		assert.Equal(t, w, tm.Wins)
		assert.Equal(t, dr, tm.Draws)
		assert.Equal(t, l, tm.Losses)
		assert.Equal(t, gf, tm.GoalsFor)
		assert.Equal(t, ga, tm.GoalsAgainst)
		assert.Equal(t, 3, tm.Played())
	}

	table := GroupTable(folded, "A")
	got := make([]string, len(table))
	for i, tm := range table {
		got[i] = tm.NationCode
	}
	if diff := cmp.Diff([]string{"NED", "SEN", "ECU", "QAT"}, got); diff != "" {
		t.Errorf("group table mismatch (-want +got):\n%s", diff)
	}
}

func TestFold_ResetsStaleTallies(t *testing.T) {
	a, b := team("B", "ENG"), team("B", "IRN")
	a.Tally = domain.Tally{Points: 9, Wins: 3}
	fx := groupResult(a, b, 6, 2)

	folded := Fold([]domain.Team{a, b}, []domain.Fixture{fx})

	assert.Equal(t, 3, folded[0].Points)
	assert.Equal(t, 1, folded[0].Wins)
	assert.Equal(t, 9, a.Points, "input is not mutated")
}

func TestSort_TieBreakers(t *testing.T) {
	mk := func(code string, pts, gf, ga int) domain.Team {
		tm := team("C", code)
		tm.Tally = domain.Tally{Points: pts, GoalsFor: gf, GoalsAgainst: ga}
		return tm
	}
	teams := []domain.Team{
		mk("MEX", 4, 2, 3),
		mk("POL", 4, 2, 2),
		mk("KSA", 3, 3, 5),
		mk("ARG", 6, 5, 2),
		mk("AAA", 4, 2, 2),
	}

	Sort(teams)

	got := make([]string, len(teams))
	for i, tm := range teams {
		got[i] = tm.NationCode
	}
	if diff := cmp.Diff([]string{"ARG", "POL", "AAA", "MEX", "KSA"}, got); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestGroups(t *testing.T) {
	teams := []domain.Team{team("B", "USA"), team("A", "QAT"), team("B", "WAL"), team("H", "POR")}
	assert.Equal(t, []string{"A", "B", "H"}, Groups(teams))
	assert.Len(t, GroupTable(teams, "B"), 2)
	assert.Empty(t, GroupTable(teams, "Z"))
}

func TestDiff(t *testing.T) {
	a, b := team("D", "FRA"), team("D", "DEN")
	fx := groupResult(a, b, 2, 1)
	want := Fold([]domain.Team{a, b}, []domain.Fixture{fx})

	assert.Len(t, Diff([]domain.Team{a, b}, want), 2)
	assert.Empty(t, Diff(want, want))
}
