package report

import (
	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/attaboy/tippspiel/internal/leaderboard"
	"github.com/google/uuid"
)

// GroupLeaderboard ranks the members of a tipp group among themselves with
// the tournament's tie-breaks. RankDelta is reset since groups keep no history.
func GroupLeaderboard(scores []domain.UserScore, memberIDs []uuid.UUID) []domain.UserScore {
	members := make(map[uuid.UUID]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		members[id] = struct{}{}
	}
	var rows []domain.UserScore
	for _, s := range scores {
		if _, ok := members[s.UserID]; ok {
			rows = append(rows, s)
		}
	}
	return leaderboard.Rank(rows, nil)
}
