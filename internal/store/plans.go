package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/warden/internal/ir"
	"github.com/roach88/warden/internal/resolver"
)

// PutPlan caches a synthesized plan under its deterministic key.
// Re-inserting an existing key is a no-op; the payload is identical by
// construction.
func (s *Store) PutPlan(ctx context.Context, plan *resolver.Plan, now time.Time) error {
	key, err := ir.PlanKey(plan.OntologyVersion, plan.Targets)
	if err != nil {
		return fmt.Errorf("put plan: %w", err)
	}
	targets, err := json.Marshal(plan.Targets)
	if err != nil {
		return fmt.Errorf("put plan: %w", err)
	}
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("put plan: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO plans (key, ontology_version, targets, plan, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`, key, plan.OntologyVersion, string(targets), string(payload),
		now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put plan: %w", err)
	}
	return nil
}

// GetPlan looks up a cached plan for an ontology version and target set.
// The target order does not matter; the key is order-insensitive.
func (s *Store) GetPlan(ctx context.Context, ontologyVersion string, targets []string) (*resolver.Plan, bool, error) {
	key, err := ir.PlanKey(ontologyVersion, targets)
	if err != nil {
		return nil, false, fmt.Errorf("get plan: %w", err)
	}

	var payload string
	err = s.db.QueryRowContext(ctx,
		`SELECT plan FROM plans WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get plan: %w", err)
	}

	var plan resolver.Plan
	if err := json.Unmarshal([]byte(payload), &plan); err != nil {
		return nil, false, fmt.Errorf("get plan: decode: %w", err)
	}
	return &plan, true, nil
}
