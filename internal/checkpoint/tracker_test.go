package checkpoint

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/testutil"
)

func newTestTracker(t *testing.T, clock *testutil.ManualClock) *Tracker {
	t.Helper()
	return NewTracker(filepath.Join(t.TempDir(), "checkpoint.json"),
		WithClock(clock.Now),
		WithIDGenerator(testutil.NewSequentialIDs("ck").Next))
}

func TestCreateAndValidity(t *testing.T) {
	clock := testutil.NewManualClock(time.Time{})
	tr := newTestTracker(t, clock)

	assert.False(t, tr.IsValid())

	ck, err := tr.Create([]string{"repo/*"}, "before refactor", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "ck-000001", ck.ID)
	assert.Equal(t, ir.CheckpointActive, ck.Status)
	require.NotNil(t, ck.ExpiresAt)
	assert.Equal(t, clock.Now().Add(10*time.Minute), *ck.ExpiresAt)

	assert.True(t, tr.IsValid())
}

func TestCreateSupersedesActive(t *testing.T) {
	clock := testutil.NewManualClock(time.Time{})
	tr := newTestTracker(t, clock)

	first, err := tr.Create(nil, "first", NoTTL)
	require.NoError(t, err)
	second, err := tr.Create(nil, "second", NoTTL)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	active, ok := tr.Active()
	require.True(t, ok)
	assert.Equal(t, second.ID, active.ID)

	history := tr.History()
	require.Len(t, history, 1)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, ir.CheckpointSuperseded, history[0].Status)
}

func TestConsumeLifecycle(t *testing.T) {
	clock := testutil.NewManualClock(time.Time{})
	tr := newTestTracker(t, clock)

	ck, err := tr.Create(nil, "apply", NoTTL)
	require.NoError(t, err)

	id, ok := tr.Consume()
	require.True(t, ok)
	assert.Equal(t, ck.ID, id)
	assert.False(t, tr.IsValid())

	_, ok = tr.Consume()
	assert.False(t, ok)

	history := tr.History()
	require.Len(t, history, 1)
	assert.Equal(t, ir.CheckpointConsumed, history[0].Status)
	require.NotNil(t, history[0].ConsumedAt)
}

func TestZeroTTLExpiresImmediately(t *testing.T) {
	clock := testutil.NewManualClock(time.Time{})
	tr := newTestTracker(t, clock)

	_, err := tr.Create(nil, "instant", 0)
	require.NoError(t, err)
	clock.Advance(time.Second)

	id, ok := tr.ValidateAndReserve()
	assert.False(t, ok)
	assert.Empty(t, id)

	assert.Equal(t, 1, tr.ClearExpired())
	_, active := tr.Active()
	assert.False(t, active)
	assert.Empty(t, tr.History())
}

func TestLazyExpiry(t *testing.T) {
	clock := testutil.NewManualClock(time.Time{})
	tr := newTestTracker(t, clock)

	_, err := tr.Create(nil, "short", time.Minute)
	require.NoError(t, err)
	assert.True(t, tr.IsValid())

	clock.Advance(2 * time.Minute)
	assert.False(t, tr.IsValid())

	history := tr.History()
	require.Len(t, history, 1)
	assert.Equal(t, ir.CheckpointExpired, history[0].Status)
}

func TestValidateAndReserveExactlyOneWinner(t *testing.T) {
	clock := testutil.NewManualClock(time.Time{})
	tr := newTestTracker(t, clock)
	_, err := tr.Create(nil, "contended", NoTTL)
	require.NoError(t, err)

	const callers = 32
	wins := make(chan string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if id, ok := tr.ValidateAndReserve(); ok {
				wins <- id
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []string
	for id := range wins {
		winners = append(winners, id)
	}
	require.Len(t, winners, 1)

	// Only the reservation holder's consume succeeds, and only once.
	id, ok := tr.Consume()
	require.True(t, ok)
	assert.Equal(t, winners[0], id)
	_, ok = tr.Consume()
	assert.False(t, ok)
}

func TestReservedBlocksValidity(t *testing.T) {
	clock := testutil.NewManualClock(time.Time{})
	tr := newTestTracker(t, clock)
	_, err := tr.Create(nil, "held", NoTTL)
	require.NoError(t, err)

	_, ok := tr.ValidateAndReserve()
	require.True(t, ok)

	assert.False(t, tr.IsValid())
	_, ok = tr.ValidateAndReserve()
	assert.False(t, ok)

	// A fresh checkpoint clears the reservation.
	_, err = tr.Create(nil, "fresh", NoTTL)
	require.NoError(t, err)
	assert.True(t, tr.IsValid())
}

func TestInvalidateAll(t *testing.T) {
	clock := testutil.NewManualClock(time.Time{})
	tr := newTestTracker(t, clock)

	assert.Equal(t, 0, tr.InvalidateAll())

	_, err := tr.Create(nil, "doomed", NoTTL)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.InvalidateAll())
	assert.False(t, tr.IsValid())

	history := tr.History()
	require.Len(t, history, 1)
	assert.Equal(t, ir.CheckpointInvalidated, history[0].Status)
}

func TestMatchesScope(t *testing.T) {
	clock := testutil.NewManualClock(time.Time{})
	tr := newTestTracker(t, clock)

	assert.False(t, tr.MatchesScope("anything"))

	_, err := tr.Create([]string{"repo/src/*", "docs/readme"}, "scoped", NoTTL)
	require.NoError(t, err)
	assert.True(t, tr.MatchesScope("repo/src/main"))
	assert.True(t, tr.MatchesScope("docs/readme"))
	assert.False(t, tr.MatchesScope("repo/vendor/lib"))

	_, err = tr.Create([]string{"*"}, "wildcard", NoTTL)
	require.NoError(t, err)
	assert.True(t, tr.MatchesScope("repo/vendor/lib"))

	_, err = tr.Create(nil, "unscoped", NoTTL)
	require.NoError(t, err)
	assert.True(t, tr.MatchesScope("anything"))
}

func TestHistoryBounded(t *testing.T) {
	clock := testutil.NewManualClock(time.Time{})
	tr := NewTracker("",
		WithClock(clock.Now),
		WithIDGenerator(testutil.NewSequentialIDs("ck").Next),
		WithHistoryLimit(3))

	for i := 0; i < 5; i++ {
		_, err := tr.Create(nil, "round", NoTTL)
		require.NoError(t, err)
	}

	history := tr.History()
	require.Len(t, history, 3)
	// Oldest evicted first: rounds 1 and 2 are gone.
	assert.Equal(t, "ck-000002", history[0].ID)
	assert.Equal(t, "ck-000004", history[2].ID)
}
