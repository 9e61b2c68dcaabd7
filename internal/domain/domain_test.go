package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func finished(phase Phase, home, visitor uuid.UUID, gh, gv int) Fixture {
	f := Fixture{
		ID:           uuid.New(),
		TournamentID: uuid.New(),
		Phase:        phase,
		Home:         TeamSlot(home),
		Visitor:      TeamSlot(visitor),
		Status:       FixtureFinished,
		GoalsHome:    intp(gh),
		GoalsVisitor: intp(gv),
	}
	if phase == PhaseGroup {
		f.GroupLabel = "A"
	}
	return f
}

// --- Validator Tests ---

func TestValidateGoals(t *testing.T) {
	tests := []struct {
		name    string
		goals   int
		wantErr bool
	}{
		{"zero", 0, false},
		{"typical", 3, false},
		{"upper bound", MaxGoals, false},
		{"negative", -1, true},
		{"too many", MaxGoals + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGoals("goals_home", tt.goals)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "goals_home must be between")
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateNationCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"valid GER", "GER", false},
		{"valid BRA", "BRA", false},
		{"lowercase", "ger", true},
		{"too short", "GE", true},
		{"too long", "GERM", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNationCode(tt.code)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateGroupLabelAndSlug(t *testing.T) {
	require.NoError(t, ValidateGroupLabel("A"))
	require.Error(t, ValidateGroupLabel("AB"))
	require.Error(t, ValidateGroupLabel("a"))

	require.NoError(t, ValidateSlug("world-cup-2026"))
	require.Error(t, ValidateSlug("World Cup"))
	require.Error(t, ValidateSlug("-cup"))
}

func TestValidateFinish(t *testing.T) {
	home, visitor := uuid.New(), uuid.New()
	group := Fixture{Phase: PhaseGroup, GroupLabel: "A", Home: TeamSlot(home), Visitor: TeamSlot(visitor)}
	ko := Fixture{Phase: PhaseQuarterFinal, Home: TeamSlot(home), Visitor: TeamSlot(visitor)}
	open := Fixture{Phase: PhaseSemiFinal, Home: PlaceholderSlot("Winner QF1"), Visitor: TeamSlot(visitor)}
	stranger := uuid.New()

	tests := []struct {
		name   string
		fx     Fixture
		params FinishMatchParams
		errMsg string
	}{
		{"group result", group, FinishMatchParams{GoalsHome: 2, GoalsVisitor: 1}, ""},
		{"knockout draw with penalties", ko, FinishMatchParams{GoalsHome: 1, GoalsVisitor: 1, PenaltyWinnerID: &visitor}, ""},
		{"halftime ok", group, FinishMatchParams{GoalsHome: 2, GoalsVisitor: 1, HalftimeHome: intp(1), HalftimeVisitor: intp(0)}, ""},
		{"negative goals", group, FinishMatchParams{GoalsHome: -1}, "goals_home"},
		{"halftime one side", group, FinishMatchParams{GoalsHome: 1, HalftimeHome: intp(0)}, "halftime goals must be set for both"},
		{"halftime exceeds", group, FinishMatchParams{GoalsHome: 1, HalftimeHome: intp(2), HalftimeVisitor: intp(0)}, "exceed"},
		{"penalties in group", group, FinishMatchParams{GoalsHome: 1, GoalsVisitor: 1, PenaltyWinnerID: &home}, "knockout fixtures"},
		{"penalties without draw", ko, FinishMatchParams{GoalsHome: 2, GoalsVisitor: 1, PenaltyWinnerID: &home}, "equal goals"},
		{"penalty winner not playing", ko, FinishMatchParams{GoalsHome: 0, GoalsVisitor: 0, PenaltyWinnerID: &stranger}, "participant"},
		{"unresolved knockout", open, FinishMatchParams{GoalsHome: 1, GoalsVisitor: 0}, "needs both teams"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFinish(tt.fx, tt.params)
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidatePrediction(t *testing.T) {
	home, visitor := uuid.New(), uuid.New()
	fx := Fixture{ID: uuid.New(), Phase: PhaseRoundOf16, Home: TeamSlot(home), Visitor: TeamSlot(visitor)}

	t.Run("valid draw with pick", func(t *testing.T) {
		p := Prediction{FixtureID: fx.ID, GoalsHome: 1, GoalsVisitor: 1, PenaltyWinnerID: &home}
		require.NoError(t, ValidatePrediction(fx, p))
	})

	t.Run("pick without draw", func(t *testing.T) {
		p := Prediction{FixtureID: fx.ID, GoalsHome: 2, GoalsVisitor: 1, PenaltyWinnerID: &home}
		err := ValidatePrediction(fx, p)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "predicted draw")
	})

	t.Run("wrong fixture", func(t *testing.T) {
		p := Prediction{FixtureID: uuid.New()}
		require.Error(t, ValidatePrediction(fx, p))
	})
}

func TestValidateSpecialPrediction(t *testing.T) {
	spec := SpecialSpec{ID: uuid.New(), Kind: SpecialTotalGoals}

	require.NoError(t, ValidateSpecialPrediction(spec, SpecialPrediction{SpecID: spec.ID, Predicted: GoalsOutcome(7)}))

	err := ValidateSpecialPrediction(spec, SpecialPrediction{SpecID: spec.ID, Predicted: RankingOutcome(BucketChampion)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

// --- Fixture Tests ---

func TestFixture_Validate(t *testing.T) {
	home, visitor := uuid.New(), uuid.New()

	t.Run("finished group fixture", func(t *testing.T) {
		require.NoError(t, finished(PhaseGroup, home, visitor, 1, 0).Validate())
	})

	t.Run("scheduled with goals", func(t *testing.T) {
		f := finished(PhaseGroup, home, visitor, 1, 0)
		f.Status = FixtureScheduled
		err := f.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "if and only if")
	})

	t.Run("finished without goals", func(t *testing.T) {
		f := finished(PhaseGroup, home, visitor, 1, 0)
		f.GoalsHome, f.GoalsVisitor = nil, nil
		require.Error(t, f.Validate())
	})

	t.Run("knockout without group label", func(t *testing.T) {
		f := finished(PhaseFinal, home, visitor, 1, 0)
		require.NoError(t, f.Validate())
		f.GroupLabel = "A"
		require.Error(t, f.Validate())
	})

	t.Run("slot with both team and placeholder", func(t *testing.T) {
		f := finished(PhaseFinal, home, visitor, 1, 0)
		f.Home.Placeholder = "Winner SF1"
		err := f.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "home slot")
	})

	t.Run("penalty winner rules", func(t *testing.T) {
		f := finished(PhaseFinal, home, visitor, 2, 2)
		f.PenaltyShootout = true
		f.PenaltyWinnerID = &visitor
		require.NoError(t, f.Validate())

		f.GoalsHome = intp(3)
		err := f.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "equal goals")

		g := finished(PhaseGroup, home, visitor, 2, 2)
		g.PenaltyShootout = true
		g.PenaltyWinnerID = &home
		require.Error(t, g.Validate())
	})
}

func TestFixture_Winner(t *testing.T) {
	home, visitor := uuid.New(), uuid.New()

	tests := []struct {
		name    string
		fx      Fixture
		penalty *uuid.UUID
		want    *uuid.UUID
	}{
		{"home wins", finished(PhaseFinal, home, visitor, 2, 1), nil, &home},
		{"visitor wins", finished(PhaseFinal, home, visitor, 0, 1), nil, &visitor},
		{"draw decided on penalties", finished(PhaseFinal, home, visitor, 1, 1), &visitor, &visitor},
		{"draw without penalties", finished(PhaseFinal, home, visitor, 1, 1), nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fx.PenaltyWinnerID = tt.penalty
			assert.Equal(t, tt.want, tt.fx.Winner())
		})
	}

	t.Run("scheduled fixture has no winner", func(t *testing.T) {
		f := Fixture{Phase: PhaseFinal, Home: TeamSlot(home), Visitor: TeamSlot(visitor), Status: FixtureScheduled}
		assert.Nil(t, f.Winner())
	})
}

func TestFixture_GoalsFor(t *testing.T) {
	home, visitor := uuid.New(), uuid.New()
	f := finished(PhaseGroup, home, visitor, 3, 2)

	goals, ok := f.GoalsFor(home)
	assert.True(t, ok)
	assert.Equal(t, 3, goals)

	goals, ok = f.GoalsFor(visitor)
	assert.True(t, ok)
	assert.Equal(t, 2, goals)

	_, ok = f.GoalsFor(uuid.New())
	assert.False(t, ok)
}

func TestFixture_Fingerprint(t *testing.T) {
	home, visitor := uuid.New(), uuid.New()
	f := finished(PhaseGroup, home, visitor, 1, 0)
	same := f
	same.Version = 7
	same.StandingsApplied = true

	assert.Equal(t, f.Fingerprint(), same.Fingerprint())
	assert.Len(t, f.Fingerprint(), 64)

	changed := f
	changed.GoalsVisitor = intp(1)
	assert.NotEqual(t, f.Fingerprint(), changed.Fingerprint())
}

// --- Outcome Tests ---

func TestOutcome_Validate(t *testing.T) {
	team := uuid.New()
	bad := BucketChampion + "X"

	tests := []struct {
		name    string
		o       Outcome
		wantErr bool
	}{
		{"winner", WinnerOutcome(team), false},
		{"goals", GoalsOutcome(12), false},
		{"ranking", RankingOutcome(BucketQuarterFinal), false},
		{"no payload", Outcome{Kind: SpecialWinner}, true},
		{"two payloads", Outcome{Kind: SpecialWinner, TeamID: &team, Goals: intp(1)}, true},
		{"payload mismatches kind", Outcome{Kind: SpecialTotalGoals, TeamID: &team}, true},
		{"negative goals", GoalsOutcome(-1), true},
		{"unknown bucket", Outcome{Kind: SpecialFinalRanking, Bucket: &bad}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.o.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestOutcome_Equal(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	assert.True(t, WinnerOutcome(a).Equal(WinnerOutcome(a)))
	assert.False(t, WinnerOutcome(a).Equal(WinnerOutcome(b)))
	assert.True(t, GoalsOutcome(3).Equal(GoalsOutcome(3)))
	assert.False(t, GoalsOutcome(3).Equal(GoalsOutcome(4)))
	assert.True(t, RankingOutcome(BucketSemiFinal).Equal(RankingOutcome(BucketSemiFinal)))
	assert.False(t, RankingOutcome(BucketSemiFinal).Equal(RankingOutcome(BucketChampion)))
	assert.False(t, GoalsOutcome(3).Equal(RankingOutcome(BucketChampion)))
}

func TestOutcome_JSONColumn(t *testing.T) {
	t.Run("nil outcome is a null column", func(t *testing.T) {
		data, err := MarshalOutcome(nil)
		require.NoError(t, err)
		assert.Nil(t, data)

		o, err := UnmarshalOutcome(nil)
		require.NoError(t, err)
		assert.Nil(t, o)
	})

	t.Run("invalid union is rejected", func(t *testing.T) {
		_, err := UnmarshalOutcome([]byte(`{"kind":"WINNER","goals":3}`))
		require.Error(t, err)
	})

	t.Run("bucket survives the column", func(t *testing.T) {
		data, err := MarshalOutcome(ptr(RankingOutcome(BucketRoundOf16)))
		require.NoError(t, err)
		o, err := UnmarshalOutcome(data)
		require.NoError(t, err)
		require.NotNil(t, o)
		assert.Equal(t, BucketRoundOf16, *o.Bucket)
	})
}

func ptr[T any](v T) *T { return &v }

func TestSpecialSpec_Validate(t *testing.T) {
	team := uuid.New()

	tests := []struct {
		name    string
		spec    SpecialSpec
		wantErr bool
	}{
		{"tournament winner", SpecialSpec{Kind: SpecialWinner, Value: 20}, false},
		{"group winner", SpecialSpec{Kind: SpecialWinner, ScopeGroup: "B", Value: 5}, false},
		{"team goals", SpecialSpec{Kind: SpecialTotalGoals, ScopeTeamID: &team, Value: 5}, false},
		{"goals without team", SpecialSpec{Kind: SpecialTotalGoals, Value: 5}, true},
		{"winner scoped to team", SpecialSpec{Kind: SpecialWinner, ScopeTeamID: &team}, true},
		{"negative value", SpecialSpec{Kind: SpecialWinner, Value: -1}, true},
		{"actual of other kind", SpecialSpec{Kind: SpecialWinner, Actual: ptr(GoalsOutcome(1))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}

	assert.True(t, SpecialSpec{Kind: SpecialWinner}.IsTournamentWinner())
	assert.False(t, SpecialSpec{Kind: SpecialWinner, ScopeGroup: "A"}.IsTournamentWinner())
}

// --- AppError Tests ---

func TestAppError_Error(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := ErrNotFound("fixture", "abc-123")
		assert.Equal(t, "NOT_FOUND: fixture abc-123 not found", err.Error())
	})

	t.Run("with cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := ErrInternal("database error", cause)
		assert.Contains(t, err.Error(), "INTERNAL_ERROR")
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := ErrInternal("wrapped", cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestErrorFactories(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"ErrNotFound", ErrNotFound("fixture", "123"), "NOT_FOUND", 404},
		{"ErrConflict", ErrConflict("already finished"), "CONFLICT", 409},
		{"ErrValidation", ErrValidation("bad input"), "VALIDATION_ERROR", 400},
		{"ErrNotFinished", ErrNotFinished("123"), "NOT_FINISHED", 409},
		{"ErrInternal", ErrInternal("oops", nil), "INTERNAL_ERROR", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantStatus, tt.err.Status)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("finish: %w", ErrConflict("already finished"))
	assert.True(t, HasCode(err, "CONFLICT"))
	assert.False(t, HasCode(err, "NOT_FOUND"))
	assert.False(t, HasCode(errors.New("plain"), "CONFLICT"))
}

// --- Event Factory Tests ---

func TestNewMatchScoredEvent(t *testing.T) {
	f := finished(PhaseGroup, uuid.New(), uuid.New(), 2, 1)

	event := NewMatchScoredEvent(&f, 14, true)

	assert.NotEqual(t, uuid.Nil, event.EventID)
	assert.Equal(t, AggregateFixture, event.AggregateType)
	assert.Equal(t, f.ID.String(), event.AggregateID)
	assert.Equal(t, EventMatchScored, event.EventType)
	assert.Equal(t, f.TournamentID.String(), event.PartitionKey)
	assert.False(t, event.OccurredAt.IsZero())

	var payload MatchScoredPayload
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, 14, payload.TippsScored)
	assert.Equal(t, 2, payload.GoalsHome)
	assert.True(t, payload.StandingsUpdate)
}

func TestNewLeaderboardRecomputedEvent(t *testing.T) {
	tournamentID := uuid.New()
	scores := make([]UserScore, 12)
	for i := range scores {
		scores[i] = UserScore{UserID: uuid.New(), Rank: i + 1}
	}

	event := NewLeaderboardRecomputedEvent(tournamentID, 3, scores)

	assert.Equal(t, AggregateLeaderboard, event.AggregateType)
	assert.Equal(t, EventLeaderboardRecomputed, event.EventType)

	var payload struct {
		MatchDay     int         `json:"match_day"`
		Participants int         `json:"participants"`
		Top          []UserScore `json:"top"`
	}
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, 3, payload.MatchDay)
	assert.Equal(t, 12, payload.Participants)
	assert.Len(t, payload.Top, 10)
}

func TestNewSpecialsResolvedEvent(t *testing.T) {
	tournamentID := uuid.New()
	event := NewSpecialsResolvedEvent(tournamentID, 2, 9)

	assert.Equal(t, AggregateTournament, event.AggregateType)
	assert.Equal(t, EventSpecialsResolved, event.EventType)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, float64(9), payload["predictions_scored"])
}

// --- Prediction Tests ---

func TestPrediction_Apply(t *testing.T) {
	p := Prediction{GoalsHome: 1, GoalsVisitor: 1}
	assert.True(t, p.PredictsDraw())
	assert.False(t, p.Scored())

	r := TippResult{Flags: TippFlags{HomeExact: true, VisitorExact: true, DiffExact: true, TendencyExact: true}, Score: 10}
	p.Apply(r, time.Now())
	assert.True(t, p.Scored())
	assert.True(t, p.Exact())
	assert.Equal(t, 10, p.Score)
}
