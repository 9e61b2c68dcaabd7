package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*CircuitBreaker, *clock) {
	c := &clock{t: time.Date(2026, 7, 19, 20, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(threshold, 5*time.Second)
	cb.now = c.now
	return cb, c
}

func TestCircuitBreaker_ClosedByDefault(t *testing.T) {
	cb, _ := newTestBreaker(3)
	assert.NoError(t, cb.Allow("tippspiel.fixture"))
	assert.Equal(t, CircuitClosed, cb.State("tippspiel.fixture"))
}

func TestCircuitBreaker_OpensOnThreshold(t *testing.T) {
	cb, _ := newTestBreaker(2)

	cb.RecordFailure("tippspiel.fixture")
	require.NoError(t, cb.Allow("tippspiel.fixture"))
	cb.RecordFailure("tippspiel.fixture")

	err := cb.Allow("tippspiel.fixture")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, CircuitOpen, cb.State("tippspiel.fixture"))

	// other topics are unaffected
	assert.NoError(t, cb.Allow("tippspiel.leaderboard"))
}

func TestCircuitBreaker_SuccessResets(t *testing.T) {
	cb, _ := newTestBreaker(2)

	cb.RecordFailure("tippspiel.fixture")
	cb.RecordSuccess("tippspiel.fixture")
	cb.RecordFailure("tippspiel.fixture")

	assert.NoError(t, cb.Allow("tippspiel.fixture"))
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	cb, clk := newTestBreaker(1)
	cb.RecordFailure("tippspiel.fixture")
	require.ErrorIs(t, cb.Allow("tippspiel.fixture"), ErrCircuitOpen)

	clk.advance(6 * time.Second)
	require.NoError(t, cb.Allow("tippspiel.fixture"))
	assert.Equal(t, CircuitHalfOpen, cb.State("tippspiel.fixture"))
	assert.ErrorIs(t, cb.Allow("tippspiel.fixture"), ErrCircuitOpen, "only one probe at a time")

	t.Run("failed probe reopens", func(t *testing.T) {
		cb.RecordFailure("tippspiel.fixture")
		assert.Equal(t, CircuitOpen, cb.State("tippspiel.fixture"))
		assert.ErrorIs(t, cb.Allow("tippspiel.fixture"), ErrCircuitOpen)
	})

	t.Run("successful probe closes", func(t *testing.T) {
		clk.advance(6 * time.Second)
		require.NoError(t, cb.Allow("tippspiel.fixture"))
		cb.RecordSuccess("tippspiel.fixture")
		assert.Equal(t, CircuitClosed, cb.State("tippspiel.fixture"))
	})
}

type flakyPublisher struct {
	err   error
	calls int
}

func (p *flakyPublisher) Publish(context.Context, string, []byte, []byte) error {
	p.calls++
	return p.err
}

func TestCircuitPublisher(t *testing.T) {
	cb, clk := newTestBreaker(2)
	next := &flakyPublisher{err: errors.New("leader not available")}
	pub := NewCircuitPublisher(next, cb)
	ctx := context.Background()

	assert.Error(t, pub.Publish(ctx, "tippspiel.fixture", nil, nil))
	assert.Error(t, pub.Publish(ctx, "tippspiel.fixture", nil, nil))
	assert.Equal(t, 2, next.calls)

	err := pub.Publish(ctx, "tippspiel.fixture", nil, nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 2, next.calls, "open circuit must not reach the broker")

	next.err = nil
	clk.advance(6 * time.Second)
	require.NoError(t, pub.Publish(ctx, "tippspiel.fixture", nil, nil))
	assert.Equal(t, CircuitClosed, cb.State("tippspiel.fixture"))
}

func TestCircuitPublisher_CancelledContextIsNotAFailure(t *testing.T) {
	cb, _ := newTestBreaker(1)
	pub := NewCircuitPublisher(&flakyPublisher{err: context.Canceled}, cb)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, pub.Publish(ctx, "tippspiel.fixture", nil, nil))
	assert.Equal(t, CircuitClosed, cb.State("tippspiel.fixture"))
}
