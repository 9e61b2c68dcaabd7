package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Phase is the tournament stage a fixture belongs to.
type Phase string

const (
	PhaseGroup        Phase = "GROUP"
	PhaseRoundOf16    Phase = "ROUND_OF_16"
	PhaseQuarterFinal Phase = "QUARTER_FINAL"
	PhaseSemiFinal    Phase = "SEMI_FINAL"
	PhaseThirdPlace   Phase = "THIRD_PLACE"
	PhaseFinal        Phase = "FINAL"
)

// IsKnockout reports whether a winner must be determined in this phase.
func (p Phase) IsKnockout() bool { return p != PhaseGroup }

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseGroup, PhaseRoundOf16, PhaseQuarterFinal, PhaseSemiFinal, PhaseThirdPlace, PhaseFinal:
		return true
	}
	return false
}

// FixtureStatus tracks the guarded SCHEDULED -> FINISHED lifecycle.
type FixtureStatus string

const (
	FixtureScheduled FixtureStatus = "SCHEDULED"
	FixtureFinished  FixtureStatus = "FINISHED"
)

// Slot is one participant position of a fixture: a resolved team or a
// textual placeholder such as "Winner Group A".
type Slot struct {
	TeamID      *uuid.UUID `json:"team_id,omitempty"`
	Placeholder string     `json:"placeholder,omitempty"`
}

// TeamSlot returns a slot resolved to the given team.
func TeamSlot(id uuid.UUID) Slot { return Slot{TeamID: &id} }

// PlaceholderSlot returns an unresolved slot.
func PlaceholderSlot(label string) Slot { return Slot{Placeholder: label} }

// Resolved reports whether the slot references a concrete team.
func (s Slot) Resolved() bool { return s.TeamID != nil }

// Is reports whether the slot is resolved to teamID.
func (s Slot) Is(teamID uuid.UUID) bool { return s.TeamID != nil && *s.TeamID == teamID }

// Validate enforces that exactly one of team and placeholder is populated.
func (s Slot) Validate() error {
	hasTeam := s.TeamID != nil
	hasPlaceholder := strings.TrimSpace(s.Placeholder) != ""
	if hasTeam == hasPlaceholder {
		return fmt.Errorf("slot must have exactly one of team or placeholder")
	}
	return nil
}

// Fixture represents one game (a fixtures row).
type Fixture struct {
	ID               uuid.UUID     `json:"id"`
	TournamentID     uuid.UUID     `json:"tournament_id"`
	Phase            Phase         `json:"phase"`
	GroupLabel       string        `json:"group_label,omitempty"`
	KickoffAt        time.Time     `json:"kickoff_at"`
	Home             Slot          `json:"home"`
	Visitor          Slot          `json:"visitor"`
	Status           FixtureStatus `json:"status"`
	GoalsHome        *int          `json:"goals_home,omitempty"`
	GoalsVisitor     *int          `json:"goals_visitor,omitempty"`
	HalftimeHome     *int          `json:"halftime_home,omitempty"`
	HalftimeVisitor  *int          `json:"halftime_visitor,omitempty"`
	PenaltyShootout  bool          `json:"penalty_shootout"`
	PenaltyWinnerID  *uuid.UUID    `json:"penalty_winner_id,omitempty"`
	StandingsApplied bool          `json:"standings_applied"`
	ResultHash       string        `json:"result_hash,omitempty"`
	Version          int           `json:"version"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// IsFinished reports whether the fixture is in the FINISHED state.
func (f Fixture) IsFinished() bool { return f.Status == FixtureFinished }

// HasResult reports whether the fixture is finished with both goal counts set.
func (f Fixture) HasResult() bool {
	return f.IsFinished() && f.GoalsHome != nil && f.GoalsVisitor != nil
}

// IsDraw reports a finished fixture with equal regulation goals.
func (f Fixture) IsDraw() bool {
	return f.HasResult() && *f.GoalsHome == *f.GoalsVisitor
}

// Involves reports whether teamID is a resolved participant.
func (f Fixture) Involves(teamID uuid.UUID) bool {
	return f.Home.Is(teamID) || f.Visitor.Is(teamID)
}

// Winner returns the team that advances from a finished fixture, or nil when
// it cannot be determined (group draw, missing penalty winner, unresolved slot).
func (f Fixture) Winner() *uuid.UUID {
	if !f.HasResult() {
		return nil
	}
	return Advancer(f.Home, f.Visitor, *f.GoalsHome, *f.GoalsVisitor, f.PenaltyWinnerID)
}

// GoalsFor returns the goals teamID scored in this fixture and whether the team took part.
func (f Fixture) GoalsFor(teamID uuid.UUID) (int, bool) {
	if !f.HasResult() {
		return 0, false
	}
	switch {
	case f.Home.Is(teamID):
		return *f.GoalsHome, true
	case f.Visitor.Is(teamID):
		return *f.GoalsVisitor, true
	}
	return 0, false
}

// Advancer derives the side that goes through: more goals wins; on equal goals
// the penalty winner advances. Returns nil when nobody can be derived.
func Advancer(home, visitor Slot, goalsHome, goalsVisitor int, penaltyWinner *uuid.UUID) *uuid.UUID {
	switch {
	case goalsHome > goalsVisitor:
		return home.TeamID
	case goalsVisitor > goalsHome:
		return visitor.TeamID
	case penaltyWinner != nil:
		id := *penaltyWinner
		return &id
	}
	return nil
}

// Validate checks the fixture's structural and result invariants.
func (f Fixture) Validate() error {
	if !f.Phase.Valid() {
		return fmt.Errorf("invalid phase: %q", f.Phase)
	}
	if (f.Phase == PhaseGroup) != (f.GroupLabel != "") {
		return fmt.Errorf("group label is required for group fixtures only")
	}
	if err := f.Home.Validate(); err != nil {
		return fmt.Errorf("home %w", err)
	}
	if err := f.Visitor.Validate(); err != nil {
		return fmt.Errorf("visitor %w", err)
	}

	hasGoals := f.GoalsHome != nil && f.GoalsVisitor != nil
	if f.IsFinished() != hasGoals {
		return fmt.Errorf("goals must be set if and only if the fixture is finished")
	}
	if (f.GoalsHome == nil) != (f.GoalsVisitor == nil) {
		return fmt.Errorf("goals must be set for both sides")
	}

	if f.PenaltyShootout != (f.PenaltyWinnerID != nil) {
		return fmt.Errorf("penalty shootout requires a penalty winner and vice versa")
	}
	if f.PenaltyWinnerID != nil {
		if !f.Phase.IsKnockout() {
			return fmt.Errorf("penalty winner is only allowed in knockout fixtures")
		}
		if !f.IsDraw() {
			return fmt.Errorf("penalty winner requires equal goals")
		}
		if !f.Involves(*f.PenaltyWinnerID) {
			return fmt.Errorf("penalty winner must be a participant")
		}
	}
	return nil
}

// Fingerprint is a stable hash of everything that influences scoring. A
// fixture whose result was applied keeps its fingerprint until reopened.
func (f Fixture) Fingerprint() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s|%s|%s|", f.ID, f.Phase, f.GroupLabel)
	fmt.Fprintf(&sb, "%s|%s|", slotKey(f.Home), slotKey(f.Visitor))
	fmt.Fprintf(&sb, "%s|%s|", intKey(f.GoalsHome), intKey(f.GoalsVisitor))
	if f.PenaltyWinnerID != nil {
		sb.WriteString(f.PenaltyWinnerID.String())
	}
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

func slotKey(s Slot) string {
	if s.TeamID != nil {
		return s.TeamID.String()
	}
	return "?" + s.Placeholder
}

func intKey(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

// FinishMatchParams holds the result recorded when a fixture finishes.
type FinishMatchParams struct {
	FixtureID       uuid.UUID
	GoalsHome       int
	GoalsVisitor    int
	HalftimeHome    *int
	HalftimeVisitor *int
	PenaltyWinnerID *uuid.UUID
}

// ResolveSlotsParams replaces knockout placeholders with concrete teams.
// A nil team leaves that slot untouched.
type ResolveSlotsParams struct {
	FixtureID     uuid.UUID
	HomeTeamID    *uuid.UUID
	VisitorTeamID *uuid.UUID
}
