package settlement

import (
	"time"

	"github.com/attaboy/tippspiel/internal/domain"
)

// PointTable lists the points awarded for each individually correct aspect
// of a tipp. Points are cumulative.
type PointTable struct {
	Tendency     int
	Difference   int
	GoalsHome    int
	GoalsVisitor int
	Advancer     int
}

// Max returns the best score reachable under the table.
func (t PointTable) Max() int {
	return t.Tendency + t.Difference + t.GoalsHome + t.GoalsVisitor + t.Advancer
}

var (
	// GroupPoints applies to GROUP fixtures (max 10).
	GroupPoints = PointTable{Tendency: 5, Difference: 3, GoalsHome: 1, GoalsVisitor: 1}
	// KnockoutPoints applies to every other phase (max 20).
	KnockoutPoints = PointTable{Tendency: 3, Difference: 3, GoalsHome: 2, GoalsVisitor: 2, Advancer: 10}
)

// PointsFor returns the table for a phase.
func PointsFor(p domain.Phase) PointTable {
	if p.IsKnockout() {
		return KnockoutPoints
	}
	return GroupPoints
}

// ScoreTipp evaluates one prediction against the fixture's result. It returns
// ok=false without a result when the fixture has no final score yet.
func ScoreTipp(fx domain.Fixture, p domain.Prediction) (domain.TippResult, bool) {
	if !fx.HasResult() {
		return domain.TippResult{}, false
	}
	gh, gv := *fx.GoalsHome, *fx.GoalsVisitor

	flags := domain.TippFlags{
		HomeExact:     p.GoalsHome == gh,
		VisitorExact:  p.GoalsVisitor == gv,
		DiffExact:     p.GoalsHome-p.GoalsVisitor == gh-gv,
		TendencyExact: sign(p.GoalsHome-p.GoalsVisitor) == sign(gh-gv),
	}
	table := PointsFor(fx.Phase)
	result := domain.TippResult{Flags: flags}

	if flags.TendencyExact {
		result.Score += table.Tendency
	}
	if flags.DiffExact {
		result.Score += table.Difference
	}
	if flags.HomeExact {
		result.Score += table.GoalsHome
	}
	if flags.VisitorExact {
		result.Score += table.GoalsVisitor
	}

	if fx.Phase.IsKnockout() {
		actual := domain.Advancer(fx.Home, fx.Visitor, gh, gv, fx.PenaltyWinnerID)
		predicted := domain.Advancer(fx.Home, fx.Visitor, p.GoalsHome, p.GoalsVisitor, p.PenaltyWinnerID)
		if actual != nil && predicted != nil && *actual == *predicted {
			result.AdvancerExact = true
			result.Score += table.Advancer
		}
	}

	return result, true
}

// ApplyTipp scores p against fx and stores flags and score on the prediction.
// It reports whether the prediction changed.
func ApplyTipp(fx domain.Fixture, p *domain.Prediction, now time.Time) bool {
	result, ok := ScoreTipp(fx, *p)
	if !ok {
		return false
	}
	p.Apply(result, now)
	return true
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
