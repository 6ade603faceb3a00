package ir

import (
	"encoding/json"
	"fmt"
	"time"
)

// CheckpointStatus is the lifecycle state of a checkpoint.
// Active is the only mutable state; the rest are terminal history entries.
type CheckpointStatus string

const (
	CheckpointActive      CheckpointStatus = "active"
	CheckpointConsumed    CheckpointStatus = "consumed"
	CheckpointExpired     CheckpointStatus = "expired"
	CheckpointInvalidated CheckpointStatus = "invalidated"
	// CheckpointSuperseded marks an Active checkpoint demoted because a
	// newer one was created. Only the newest is ever authoritative.
	CheckpointSuperseded CheckpointStatus = "superseded"
)

// Checkpoint is the lifecycle metadata of one safety token. How the
// checkpoint is physically realized (snapshot, copy, version control) is
// out of scope; only this record is.
type Checkpoint struct {
	ID         string           `json:"id"`
	Scope      []string         `json:"scope"` // glob set; ["*"] covers everything
	Reason     string           `json:"reason"`
	Status     CheckpointStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	ExpiresAt  *time.Time       `json:"expires_at"`
	ConsumedAt *time.Time       `json:"consumed_at,omitempty"`
}

// checkpointJSON is the wire form. Timestamps serialize as ISO-8601
// (RFC 3339); a null expiry must survive a round trip as nil, not zero.
type checkpointJSON struct {
	ID         string           `json:"id"`
	Scope      []string         `json:"scope"`
	Reason     string           `json:"reason"`
	Status     CheckpointStatus `json:"status"`
	CreatedAt  string           `json:"created_at"`
	ExpiresAt  *string          `json:"expires_at"`
	ConsumedAt *string          `json:"consumed_at,omitempty"`
}

// MarshalJSON implements json.Marshaler with ISO-8601 timestamps.
func (c Checkpoint) MarshalJSON() ([]byte, error) {
	w := checkpointJSON{
		ID:        c.ID,
		Scope:     c.Scope,
		Reason:    c.Reason,
		Status:    c.Status,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if c.ExpiresAt != nil {
		s := c.ExpiresAt.UTC().Format(time.RFC3339Nano)
		w.ExpiresAt = &s
	}
	if c.ConsumedAt != nil {
		s := c.ConsumedAt.UTC().Format(time.RFC3339Nano)
		w.ConsumedAt = &s
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Checkpoint) UnmarshalJSON(data []byte) error {
	var w checkpointJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	created, err := parseISOTime(w.CreatedAt)
	if err != nil {
		return fmt.Errorf("checkpoint %s: created_at: %w", w.ID, err)
	}

	c.ID = w.ID
	c.Scope = w.Scope
	c.Reason = w.Reason
	c.Status = w.Status
	c.CreatedAt = created
	c.ExpiresAt = nil
	c.ConsumedAt = nil

	if w.ExpiresAt != nil {
		t, err := parseISOTime(*w.ExpiresAt)
		if err != nil {
			return fmt.Errorf("checkpoint %s: expires_at: %w", w.ID, err)
		}
		c.ExpiresAt = &t
	}
	if w.ConsumedAt != nil {
		t, err := parseISOTime(*w.ConsumedAt)
		if err != nil {
			return fmt.Errorf("checkpoint %s: consumed_at: %w", w.ID, err)
		}
		c.ConsumedAt = &t
	}
	return nil
}

func parseISOTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("not an ISO-8601 timestamp: %q", s)
	}
	return t.UTC(), nil
}

// Terminal reports whether the checkpoint is in an immutable history state.
func (c Checkpoint) Terminal() bool {
	return c.Status != CheckpointActive
}
