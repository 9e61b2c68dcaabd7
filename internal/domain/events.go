package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MatchScoredPayload is published after a finished fixture has been scored.
type MatchScoredPayload struct {
	FixtureID       uuid.UUID `json:"fixture_id"`
	TournamentID    uuid.UUID `json:"tournament_id"`
	Phase           Phase     `json:"phase"`
	GoalsHome       int       `json:"goals_home"`
	GoalsVisitor    int       `json:"goals_visitor"`
	TippsScored     int       `json:"tipps_scored"`
	StandingsUpdate bool      `json:"standings_update"`
}

// NewMatchFinishedEvent creates the fixture lifecycle event for a recorded result.
func NewMatchFinishedEvent(fx *Fixture) OutboxDraft {
	payload, _ := json.Marshal(fx)
	return fixtureEvent(fx, EventMatchFinished, payload)
}

// NewMatchScoredEvent creates the event emitted after tipp scoring and standings.
func NewMatchScoredEvent(fx *Fixture, tippsScored int, standingsUpdate bool) OutboxDraft {
	p := MatchScoredPayload{
		FixtureID:       fx.ID,
		TournamentID:    fx.TournamentID,
		Phase:           fx.Phase,
		TippsScored:     tippsScored,
		StandingsUpdate: standingsUpdate,
	}
	if fx.GoalsHome != nil && fx.GoalsVisitor != nil {
		p.GoalsHome = *fx.GoalsHome
		p.GoalsVisitor = *fx.GoalsVisitor
	}
	payload, _ := json.Marshal(p)
	return fixtureEvent(fx, EventMatchScored, payload)
}

// NewMatchReopenedEvent creates the event emitted when a result is withdrawn.
func NewMatchReopenedEvent(fx *Fixture, tippsCleared int) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"fixture_id":    fx.ID.String(),
		"tournament_id": fx.TournamentID.String(),
		"tipps_cleared": tippsCleared,
	})
	return fixtureEvent(fx, EventMatchReopened, payload)
}

// NewSlotsResolvedEvent creates the event emitted when placeholders become teams.
func NewSlotsResolvedEvent(fx *Fixture) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"fixture_id": fx.ID.String(),
		"home":       fx.Home,
		"visitor":    fx.Visitor,
	})
	return fixtureEvent(fx, EventSlotsResolved, payload)
}

func fixtureEvent(fx *Fixture, evtType EventType, payload []byte) OutboxDraft {
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateFixture,
		AggregateID:   fx.ID.String(),
		EventType:     evtType,
		PartitionKey:  fx.TournamentID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewSpecialsResolvedEvent creates the event emitted after special predictions are scored.
func NewSpecialsResolvedEvent(tournamentID uuid.UUID, resolved, scored int) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"tournament_id":      tournamentID.String(),
		"specs_resolved":     resolved,
		"predictions_scored": scored,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateTournament,
		AggregateID:   tournamentID.String(),
		EventType:     EventSpecialsResolved,
		PartitionKey:  tournamentID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewLeaderboardRecomputedEvent creates the event carrying the top of a fresh leaderboard.
func NewLeaderboardRecomputedEvent(tournamentID uuid.UUID, matchDay int, scores []UserScore) OutboxDraft {
	top := scores
	if len(top) > 10 {
		top = top[:10]
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"tournament_id": tournamentID.String(),
		"match_day":     matchDay,
		"participants":  len(scores),
		"top":           top,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateLeaderboard,
		AggregateID:   tournamentID.String(),
		EventType:     EventLeaderboardRecomputed,
		PartitionKey:  tournamentID.String(),
		Headers:       json.RawMessage(`{}`),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
