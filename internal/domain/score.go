package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserScore is the current leaderboard row of a user within a tournament.
// It is fully recomputed whenever any underlying score changes.
type UserScore struct {
	UserID         uuid.UUID       `json:"user_id"`
	TournamentID   uuid.UUID       `json:"tournament_id"`
	TotalPoints    int             `json:"total_points"`
	MatchPoints    int             `json:"match_points"`
	SpecialPoints  int             `json:"special_points"`
	Rank           int             `json:"rank"`
	RankDelta      int             `json:"rank_delta"`
	TippCount      int             `json:"tipp_count"`
	Average        decimal.Decimal `json:"average"`
	ChampionTeamID *uuid.UUID      `json:"champion_team_id,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// HistoryEntry is the per-match-day record of a user's rank and points.
// MatchDay equals the number of finished fixtures at recording time.
type HistoryEntry struct {
	UserID       uuid.UUID `json:"user_id"`
	TournamentID uuid.UUID `json:"tournament_id"`
	MatchDay     int       `json:"match_day"`
	Points       int       `json:"points"`
	Rank         int       `json:"rank"`
	RankDelta    int       `json:"rank_delta"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// TippScore is the projection of a prediction the leaderboard aggregates.
type TippScore struct {
	UserID   uuid.UUID
	Score    int
	Finished bool
}

// SpecialScore is the projection of a special prediction the leaderboard aggregates.
type SpecialScore struct {
	UserID   uuid.UUID
	Score    int
	Resolved bool
}
