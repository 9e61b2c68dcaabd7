package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventMatchFinished         EventType = "tipp.match.finished"
	EventMatchScored           EventType = "tipp.match.scored"
	EventMatchReopened         EventType = "tipp.match.reopened"
	EventSlotsResolved         EventType = "tipp.match.slots_resolved"
	EventSpecialsResolved      EventType = "tipp.specials.resolved"
	EventLeaderboardRecomputed EventType = "tipp.leaderboard.recomputed"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateFixture     AggregateType = "fixture"
	AggregateTournament  AggregateType = "tournament"
	AggregateLeaderboard AggregateType = "leaderboard"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}

// OutboxRow is an outbox event with its sequence id, as read by the relay.
type OutboxRow struct {
	SeqID int64
	OutboxDraft
}
