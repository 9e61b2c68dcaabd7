package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SpecialKind selects the shape of a bonus prediction.
type SpecialKind string

const (
	SpecialWinner       SpecialKind = "WINNER"
	SpecialFinalRanking SpecialKind = "FINAL_RANKING"
	SpecialTotalGoals   SpecialKind = "TOTAL_GOALS"
)

// Valid reports whether k is a known kind.
func (k SpecialKind) Valid() bool {
	switch k {
	case SpecialWinner, SpecialFinalRanking, SpecialTotalGoals:
		return true
	}
	return false
}

// RankingBucket is how far a team got in the tournament.
type RankingBucket string

const (
	BucketChampion     RankingBucket = "CHAMPION"
	BucketRunnerUp     RankingBucket = "RUNNER_UP"
	BucketSemiFinal    RankingBucket = "SEMI_FINAL"
	BucketQuarterFinal RankingBucket = "QUARTER_FINAL"
	BucketRoundOf16    RankingBucket = "ROUND_OF_16"
	BucketGroupStage   RankingBucket = "GROUP_STAGE"
)

// Valid reports whether b is a known bucket.
func (b RankingBucket) Valid() bool {
	switch b {
	case BucketChampion, BucketRunnerUp, BucketSemiFinal, BucketQuarterFinal, BucketRoundOf16, BucketGroupStage:
		return true
	}
	return false
}

// Outcome is a tagged union keyed by Kind. Exactly one payload is set:
// WINNER carries TeamID, TOTAL_GOALS carries Goals, FINAL_RANKING carries Bucket.
// Build values with WinnerOutcome, GoalsOutcome and RankingOutcome.
type Outcome struct {
	Kind   SpecialKind    `json:"kind"`
	TeamID *uuid.UUID     `json:"team_id,omitempty"`
	Goals  *int           `json:"goals,omitempty"`
	Bucket *RankingBucket `json:"bucket,omitempty"`
}

// WinnerOutcome returns a WINNER outcome for teamID.
func WinnerOutcome(teamID uuid.UUID) Outcome {
	return Outcome{Kind: SpecialWinner, TeamID: &teamID}
}

// GoalsOutcome returns a TOTAL_GOALS outcome.
func GoalsOutcome(goals int) Outcome {
	return Outcome{Kind: SpecialTotalGoals, Goals: &goals}
}

// RankingOutcome returns a FINAL_RANKING outcome.
func RankingOutcome(b RankingBucket) Outcome {
	return Outcome{Kind: SpecialFinalRanking, Bucket: &b}
}

// Validate enforces that exactly the payload matching Kind is populated.
func (o Outcome) Validate() error {
	set := 0
	for _, ok := range []bool{o.TeamID != nil, o.Goals != nil, o.Bucket != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("outcome must carry exactly one value, got %d", set)
	}
	switch o.Kind {
	case SpecialWinner:
		if o.TeamID == nil {
			return fmt.Errorf("WINNER outcome requires a team")
		}
	case SpecialTotalGoals:
		if o.Goals == nil || *o.Goals < 0 {
			return fmt.Errorf("TOTAL_GOALS outcome requires a non-negative goal count")
		}
	case SpecialFinalRanking:
		if o.Bucket == nil || !o.Bucket.Valid() {
			return fmt.Errorf("FINAL_RANKING outcome requires a valid bucket")
		}
	default:
		return fmt.Errorf("invalid outcome kind: %q", o.Kind)
	}
	return nil
}

// Equal compares kind and payload.
func (o Outcome) Equal(other Outcome) bool {
	if o.Kind != other.Kind {
		return false
	}
	switch o.Kind {
	case SpecialWinner:
		return o.TeamID != nil && other.TeamID != nil && *o.TeamID == *other.TeamID
	case SpecialTotalGoals:
		return o.Goals != nil && other.Goals != nil && *o.Goals == *other.Goals
	case SpecialFinalRanking:
		return o.Bucket != nil && other.Bucket != nil && *o.Bucket == *other.Bucket
	}
	return false
}

// String renders the payload for logs and exports.
func (o Outcome) String() string {
	switch {
	case o.TeamID != nil:
		return o.TeamID.String()
	case o.Goals != nil:
		return fmt.Sprintf("%d", *o.Goals)
	case o.Bucket != nil:
		return string(*o.Bucket)
	}
	return ""
}

// MarshalOutcome encodes an optional outcome for a jsonb column.
func MarshalOutcome(o *Outcome) ([]byte, error) {
	if o == nil {
		return nil, nil
	}
	return json.Marshal(o)
}

// UnmarshalOutcome decodes a jsonb column, validating the union.
func UnmarshalOutcome(data []byte) (*Outcome, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var o Outcome
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("decode outcome: %w", err)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

// SpecialSpec defines a bonus prediction for a tournament.
type SpecialSpec struct {
	ID           uuid.UUID   `json:"id"`
	TournamentID uuid.UUID   `json:"tournament_id"`
	Name         string      `json:"name"`
	Kind         SpecialKind `json:"kind"`
	Value        int         `json:"value"`
	ScopeTeamID  *uuid.UUID  `json:"scope_team_id,omitempty"`
	ScopeGroup   string      `json:"scope_group,omitempty"`
	Actual       *Outcome    `json:"actual,omitempty"`
	ResolvedAt   *time.Time  `json:"resolved_at,omitempty"`
}

// Resolved reports whether the actual outcome is known.
func (s SpecialSpec) Resolved() bool { return s.Actual != nil }

// IsTournamentWinner reports the unscoped WINNER spec (the champion pick).
func (s SpecialSpec) IsTournamentWinner() bool {
	return s.Kind == SpecialWinner && s.ScopeTeamID == nil && s.ScopeGroup == ""
}

// Validate checks that the scope fits the kind.
func (s SpecialSpec) Validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("invalid special kind: %q", s.Kind)
	}
	if s.Value < 0 {
		return fmt.Errorf("special value must not be negative")
	}
	if s.ScopeTeamID != nil && s.ScopeGroup != "" {
		return fmt.Errorf("special scope is either a team or a group")
	}
	switch s.Kind {
	case SpecialWinner:
		if s.ScopeTeamID != nil {
			return fmt.Errorf("WINNER spec may only be scoped to a group")
		}
	case SpecialTotalGoals, SpecialFinalRanking:
		if s.ScopeTeamID == nil {
			return fmt.Errorf("%s spec requires a team scope", s.Kind)
		}
	}
	if s.Actual != nil {
		if err := s.Actual.Validate(); err != nil {
			return err
		}
		if s.Actual.Kind != s.Kind {
			return fmt.Errorf("actual outcome kind %s does not match spec kind %s", s.Actual.Kind, s.Kind)
		}
	}
	return nil
}

// SpecialPrediction is a user's bonus forecast.
type SpecialPrediction struct {
	UserID    uuid.UUID  `json:"user_id"`
	SpecID    uuid.UUID  `json:"spec_id"`
	Predicted Outcome    `json:"predicted"`
	Score     int        `json:"score"`
	ScoredAt  *time.Time `json:"scored_at,omitempty"`
}
