package projection

import (
	"context"
	"testing"
	"time"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_SetAndGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	err := store.Set(ctx, "k1", []byte("hello"), 0)
	require.NoError(t, err)

	val, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), val)
}

func TestInMemoryStore_KeyNotFound(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.Error(t, err)
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	_ = store.Set(ctx, "k1", []byte("data"), 0)
	_ = store.Delete(ctx, "k1")

	_, err := store.Get(ctx, "k1")
	assert.Error(t, err)
}

func TestInMemoryStore_TTLExpiry(t *testing.T) {
	store := NewInMemoryStore()
	clock := time.Date(2026, 6, 14, 18, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k1", []byte("data"), time.Minute))

	clock = clock.Add(59 * time.Second)
	_, err := store.Get(ctx, "k1")
	require.NoError(t, err)

	clock = clock.Add(time.Second)
	_, err = store.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_GetReturnsCopy(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, store.Set(ctx, "k1", value, 0))
	value[0] = 'x'

	got, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	got[1] = 'y'

	again, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestInMemoryStore_MissWrapsErrNotFound(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeaderboardProjection_RoundTrip(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	tournamentID := uuid.New()

	rows := []domain.UserScore{
		{UserID: uuid.New(), TournamentID: tournamentID, TotalPoints: 18, Rank: 1, Average: decimal.RequireFromString("9")},
		{UserID: uuid.New(), TournamentID: tournamentID, TotalPoints: 15, Rank: 2, RankDelta: -1, Average: decimal.RequireFromString("7.5")},
	}

	err := UpdateLeaderboard(ctx, store, tournamentID, 2, rows, 0)
	require.NoError(t, err)

	got, err := GetLeaderboard(ctx, store, tournamentID)
	require.NoError(t, err)
	assert.Equal(t, tournamentID.String(), got.TournamentID)
	assert.Equal(t, 2, got.MatchDay)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, rows[1].UserID, got.Rows[1].UserID)
	assert.Equal(t, -1, got.Rows[1].RankDelta)
	assert.True(t, rows[1].Average.Equal(got.Rows[1].Average))
	assert.NotEmpty(t, got.UpdatedAt)
}

func TestLeaderboardProjection_Invalidate(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	tournamentID := uuid.New()

	_ = UpdateLeaderboard(ctx, store, tournamentID, 1, nil, time.Minute)
	_ = InvalidateLeaderboard(ctx, store, tournamentID)

	_, err := GetLeaderboard(ctx, store, tournamentID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeaderboardProjection_KeyedByTournament(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	require.NoError(t, UpdateLeaderboard(ctx, store, a, 3, []domain.UserScore{{UserID: uuid.New(), Rank: 1}}, 0))

	_, err := GetLeaderboard(ctx, store, b)
	assert.ErrorIs(t, err, ErrNotFound)
}
