// Package leaderboard aggregates scored predictions into ranked user totals
// and per-match-day history.
package leaderboard

import (
	"bytes"
	"sort"
	"time"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AveragePlaces is the number of decimals kept for average points.
const AveragePlaces = 2

// Aggregate computes the unranked score row of every user in the population.
// Users without predictions still get a zero row. Tipps of unfinished fixtures
// count towards TippCount only; special scores count once their spec is resolved.
func Aggregate(tournamentID uuid.UUID, users []uuid.UUID, tipps []domain.TippScore, specials []domain.SpecialScore, champions map[uuid.UUID]uuid.UUID) []domain.UserScore {
	rows := make(map[uuid.UUID]*domain.UserScore, len(users))
	out := make([]domain.UserScore, len(users))
	for i, id := range users {
		out[i] = domain.UserScore{UserID: id, TournamentID: tournamentID}
		rows[id] = &out[i]
	}

	for _, t := range tipps {
		row, ok := rows[t.UserID]
		if !ok {
			continue
		}
		row.TippCount++
		if t.Finished {
			row.MatchPoints += t.Score
		}
	}
	for _, s := range specials {
		row, ok := rows[s.UserID]
		if !ok || !s.Resolved {
			continue
		}
		row.SpecialPoints += s.Score
	}

	for i := range out {
		row := &out[i]
		row.TotalPoints = row.MatchPoints + row.SpecialPoints
		row.Average = Average(row.TotalPoints, row.TippCount)
		if team, ok := champions[row.UserID]; ok {
			row.ChampionTeamID = &team
		}
	}
	return out
}

// Average returns total/count rounded half away from zero, or 0 for no predictions.
func Average(total, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(total)).
		Div(decimal.NewFromInt(int64(count))).
		Round(AveragePlaces)
}

// Tied reports whether two rows share the full ranking tuple.
func Tied(a, b domain.UserScore) bool {
	return a.TotalPoints == b.TotalPoints &&
		a.MatchPoints == b.MatchPoints &&
		a.Average.Equal(b.Average)
}

// Ahead reports whether a ranks strictly before b.
func Ahead(a, b domain.UserScore) bool {
	if a.TotalPoints != b.TotalPoints {
		return a.TotalPoints > b.TotalPoints
	}
	if a.MatchPoints != b.MatchPoints {
		return a.MatchPoints > b.MatchPoints
	}
	return a.Average.GreaterThan(b.Average)
}

// Rank sorts a copy of scores and assigns standard competition ranks
// ("1,1,3"). Users tied on the ranking tuple are listed by id so the
// output order is stable; the id never affects the rank number. RankDelta
// is computed against baseline, see Delta.
func Rank(scores []domain.UserScore, baseline map[uuid.UUID]int) []domain.UserScore {
	out := make([]domain.UserScore, len(scores))
	copy(out, scores)

	sort.SliceStable(out, func(i, j int) bool {
		if Ahead(out[i], out[j]) {
			return true
		}
		if Ahead(out[j], out[i]) {
			return false
		}
		return bytes.Compare(out[i].UserID[:], out[j].UserID[:]) < 0
	})

	for i := range out {
		if i > 0 && Tied(out[i], out[i-1]) {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
		out[i].RankDelta = Delta(baseline[out[i].UserID], out[i].Rank)
	}
	return out
}

// Delta is previous minus current rank; positive means the user climbed.
// A previous rank of 0 means the user was never ranked and yields 0.
func Delta(previous, current int) int {
	if previous == 0 {
		return 0
	}
	return previous - current
}

// Baseline picks the rank each user is compared against on matchDay: the
// rank of the user's latest history entry before matchDay. Users without
// earlier history are absent and get a delta of 0, same as in History.
func Baseline(matchDay int, prior map[uuid.UUID]domain.HistoryEntry) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(prior))
	for id, h := range prior {
		if h.MatchDay < matchDay {
			out[id] = h.Rank
		}
	}
	return out
}

// History builds the match-day entries for ranked scores. Each entry's delta
// is measured against the user's latest entry before matchDay only.
func History(ranked []domain.UserScore, matchDay int, prior map[uuid.UUID]domain.HistoryEntry, at time.Time) []domain.HistoryEntry {
	out := make([]domain.HistoryEntry, 0, len(ranked))
	for _, s := range ranked {
		delta := 0
		if h, ok := prior[s.UserID]; ok && h.MatchDay < matchDay {
			delta = Delta(h.Rank, s.Rank)
		}
		out = append(out, domain.HistoryEntry{
			UserID:       s.UserID,
			TournamentID: s.TournamentID,
			MatchDay:     matchDay,
			Points:       s.TotalPoints,
			Rank:         s.Rank,
			RankDelta:    delta,
			RecordedAt:   at,
		})
	}
	return out
}

// Latest keeps, per user, the newest entry strictly before matchDay.
func Latest(entries []domain.HistoryEntry, matchDay int) map[uuid.UUID]domain.HistoryEntry {
	out := make(map[uuid.UUID]domain.HistoryEntry)
	for _, e := range entries {
		if e.MatchDay >= matchDay {
			continue
		}
		if cur, ok := out[e.UserID]; !ok || e.MatchDay > cur.MatchDay {
			out[e.UserID] = e
		}
	}
	return out
}

// Compute runs the full recompute for one tournament state.
func Compute(in Input) Result {
	scores := Aggregate(in.TournamentID, in.Users, in.Tipps, in.Specials, in.Champions)
	prior := Latest(in.History, in.MatchDay)
	ranked := Rank(scores, Baseline(in.MatchDay, prior))
	for i := range ranked {
		ranked[i].UpdatedAt = in.At
	}
	return Result{
		MatchDay: in.MatchDay,
		Scores:   ranked,
		History:  History(ranked, in.MatchDay, prior, in.At),
	}
}

// Input is everything Compute reads.
type Input struct {
	TournamentID uuid.UUID
	Users        []uuid.UUID
	Tipps        []domain.TippScore
	Specials     []domain.SpecialScore
	Champions    map[uuid.UUID]uuid.UUID
	History      []domain.HistoryEntry
	MatchDay     int
	At           time.Time
}

// Result is a ranked leaderboard plus the history rows to upsert.
type Result struct {
	MatchDay int
	Scores   []domain.UserScore
	History  []domain.HistoryEntry
}
