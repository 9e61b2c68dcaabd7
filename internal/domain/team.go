package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tally is a team's group-table record. It is a fold over the team's
// finished group fixtures and is never edited independently.
type Tally struct {
	Points       int `json:"points"`
	Wins         int `json:"wins"`
	Draws        int `json:"draws"`
	Losses       int `json:"losses"`
	GoalsFor     int `json:"goals_for"`
	GoalsAgainst int `json:"goals_against"`
}

// Played returns the number of counted matches.
func (t Tally) Played() int { return t.Wins + t.Draws + t.Losses }

// GoalDifference returns goals for minus goals against.
func (t Tally) GoalDifference() int { return t.GoalsFor - t.GoalsAgainst }

// Team is a tournament entrant.
type Team struct {
	ID           uuid.UUID `json:"id"`
	TournamentID uuid.UUID `json:"tournament_id"`
	NationCode   string    `json:"nation_code"`
	GroupLabel   string    `json:"group_label"`
	Tally
	UpdatedAt time.Time `json:"updated_at"`
}

// Tournament is the scope every engine call is bound to.
type Tournament struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	Active           bool      `json:"active"`
	Complete         bool      `json:"complete"`
	ChampionSpecName string    `json:"champion_spec_name"`
	CreatedAt        time.Time `json:"created_at"`
}

// DefaultChampionSpecName names the special whose prediction is shown as a
// user's champion pick on the leaderboard.
const DefaultChampionSpecName = "WINNER_WORLDCUP"

// TippGroup is a private ranking circle within a tournament.
type TippGroup struct {
	ID           uuid.UUID   `json:"id"`
	TournamentID uuid.UUID   `json:"tournament_id"`
	Name         string      `json:"name"`
	MemberIDs    []uuid.UUID `json:"member_ids"`
}

// Participant is a user taking part in a tournament. Participants are the
// population every leaderboard recompute ranks.
type Participant struct {
	TournamentID uuid.UUID `json:"tournament_id"`
	UserID       uuid.UUID `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	JoinedAt     time.Time `json:"joined_at"`
}
