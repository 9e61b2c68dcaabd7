package domain

import (
	"time"

	"github.com/google/uuid"
)

// TippFlags are the four correctness flags kept for explainability.
type TippFlags struct {
	HomeExact     bool `json:"is_goals_home_correct"`
	VisitorExact  bool `json:"is_goals_visitor_correct"`
	DiffExact     bool `json:"is_difference_correct"`
	TendencyExact bool `json:"is_tendency_correct"`
}

// Exact reports a perfectly predicted scoreline.
func (f TippFlags) Exact() bool { return f.HomeExact && f.VisitorExact }

// TippResult is the outcome of scoring one prediction against one result.
type TippResult struct {
	Flags         TippFlags `json:"flags"`
	AdvancerExact bool      `json:"advancer_exact"`
	Score         int       `json:"score"`
}

// Prediction is a user's forecast for one fixture (a tipps row).
type Prediction struct {
	UserID          uuid.UUID  `json:"user_id"`
	FixtureID       uuid.UUID  `json:"fixture_id"`
	GoalsHome       int        `json:"goals_home"`
	GoalsVisitor    int        `json:"goals_visitor"`
	PenaltyWinnerID *uuid.UUID `json:"penalty_winner_id,omitempty"`
	Score           int        `json:"score"`
	TippFlags
	ScoredAt  *time.Time `json:"scored_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Scored reports whether the prediction has been evaluated against a result.
func (p Prediction) Scored() bool { return p.ScoredAt != nil }

// PredictsDraw reports an equal predicted scoreline.
func (p Prediction) PredictsDraw() bool { return p.GoalsHome == p.GoalsVisitor }

// Apply stores a scoring result on the prediction.
func (p *Prediction) Apply(r TippResult, at time.Time) {
	p.TippFlags = r.Flags
	p.Score = r.Score
	p.ScoredAt = &at
}
