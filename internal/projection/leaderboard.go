package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/google/uuid"
)

// LeaderboardProjection is the cached read model of a tournament ranking.
type LeaderboardProjection struct {
	TournamentID string             `json:"tournament_id"`
	MatchDay     int                `json:"match_day"`
	Rows         []domain.UserScore `json:"rows"`
	UpdatedAt    string             `json:"updated_at"`
}

// DefaultLeaderboardTTL applies when the caller passes no TTL.
const DefaultLeaderboardTTL = 10 * time.Minute

func leaderboardKey(tournamentID string) string {
	return fmt.Sprintf("projection:leaderboard:%s", tournamentID)
}

// UpdateLeaderboard caches a tournament's ranked rows.
func UpdateLeaderboard(ctx context.Context, store Store, tournamentID uuid.UUID, matchDay int, rows []domain.UserScore, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultLeaderboardTTL
	}
	p := LeaderboardProjection{
		TournamentID: tournamentID.String(),
		MatchDay:     matchDay,
		Rows:         rows,
		UpdatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	return SetJSON(ctx, store, leaderboardKey(p.TournamentID), p, ttl)
}

// GetLeaderboard retrieves a cached leaderboard. A miss wraps ErrNotFound.
func GetLeaderboard(ctx context.Context, store Store, tournamentID uuid.UUID) (*LeaderboardProjection, error) {
	var p LeaderboardProjection
	if err := GetJSON(ctx, store, leaderboardKey(tournamentID.String()), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// InvalidateLeaderboard removes a tournament's cached leaderboard.
func InvalidateLeaderboard(ctx context.Context, store Store, tournamentID uuid.UUID) error {
	return store.Delete(ctx, leaderboardKey(tournamentID.String()))
}
