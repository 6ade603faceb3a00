package ir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	expires := created.Add(15 * time.Minute)
	consumed := created.Add(5 * time.Minute)

	cp := Checkpoint{
		ID:         "b6f3c1d2-0000-4000-8000-000000000001",
		Scope:      []string{"src/**", "docs/*.md"},
		Reason:     "bulk rename",
		Status:     CheckpointConsumed,
		CreatedAt:  created,
		ExpiresAt:  &expires,
		ConsumedAt: &consumed,
	}

	data, err := json.Marshal(cp)
	require.NoError(t, err)

	var got Checkpoint
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, cp, got)
}

func TestCheckpointRoundTripNullExpiry(t *testing.T) {
	cp := Checkpoint{
		ID:        "b6f3c1d2-0000-4000-8000-000000000002",
		Scope:     []string{"*"},
		Reason:    "manual hold",
		Status:    CheckpointActive,
		CreatedAt: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		ExpiresAt: nil,
	}

	data, err := json.Marshal(cp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"expires_at":null`)

	var got Checkpoint
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Nil(t, got.ExpiresAt)
	assert.Nil(t, got.ConsumedAt)
	assert.Equal(t, cp, got)
}

func TestCheckpointTimestampsAreISO8601(t *testing.T) {
	cp := Checkpoint{
		ID:        "b6f3c1d2-0000-4000-8000-000000000003",
		Scope:     []string{"*"},
		Status:    CheckpointActive,
		CreatedAt: time.Date(2025, 3, 14, 9, 26, 53, 123000000, time.UTC),
	}

	data, err := json.Marshal(cp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"created_at":"2025-03-14T09:26:53.123Z"`)
}

func TestCheckpointRejectsMalformedTimestamp(t *testing.T) {
	var cp Checkpoint
	err := json.Unmarshal([]byte(`{"id":"x","scope":["*"],"status":"active","created_at":"yesterday","expires_at":null}`), &cp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ISO-8601")
}

func TestCheckpointTerminal(t *testing.T) {
	assert.False(t, Checkpoint{Status: CheckpointActive}.Terminal())
	for _, st := range []CheckpointStatus{CheckpointConsumed, CheckpointExpired, CheckpointInvalidated, CheckpointSuperseded} {
		assert.True(t, Checkpoint{Status: st}.Terminal(), string(st))
	}
}
