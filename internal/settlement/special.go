package settlement

import (
	"time"

	"github.com/attaboy/tippspiel/internal/domain"
)

// ScoreSpecial awards the special's full value when the prediction equals
// the resolved outcome and 0 otherwise. ok=false while the special is
// unresolved or when the prediction is of a different kind.
func ScoreSpecial(spec domain.SpecialSpec, pred domain.SpecialPrediction) (int, bool) {
	if !spec.Resolved() || pred.Predicted.Kind != spec.Kind {
		return 0, false
	}
	if pred.Predicted.Equal(*spec.Actual) {
		return spec.Value, true
	}
	return 0, true
}

// ApplySpecial scores pred and stores the result. It reports whether the
// prediction was scored.
func ApplySpecial(spec domain.SpecialSpec, pred *domain.SpecialPrediction, now time.Time) bool {
	score, ok := ScoreSpecial(spec, *pred)
	if !ok {
		return false
	}
	pred.Score = score
	pred.ScoredAt = &now
	return true
}
