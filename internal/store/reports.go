package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/warden/internal/ir"
)

// ReportRecord is one stored validation report.
type ReportRecord struct {
	Key             string
	OntologyVersion string
	Workflow        string
	Passed          bool
	Report          []byte // JSON payload as written by the CLI
	CreatedAt       time.Time
}

// PutReport appends a validation report to the history. Unlike plans,
// reports are not deduplicated; the same workflow validated twice leaves
// two rows.
func (s *Store) PutReport(ctx context.Context, ontologyVersion, workflow string, sequence []string, passed bool, report []byte, now time.Time) error {
	key, err := ir.ReportKey(ontologyVersion, workflow, sequence)
	if err != nil {
		return fmt.Errorf("put report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (key, ontology_version, workflow, passed, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, key, ontologyVersion, workflow, boolInt(passed), string(report),
		now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put report: %w", err)
	}
	return nil
}

// Reports returns the stored reports for a workflow, newest first,
// capped at limit. A non-positive limit returns everything.
func (s *Store) Reports(ctx context.Context, workflow string, limit int) ([]ReportRecord, error) {
	query := `
		SELECT key, ontology_version, workflow, passed, report, created_at
		FROM reports WHERE workflow = ?
		ORDER BY created_at DESC, id DESC
	`
	args := []any{workflow}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []ReportRecord
	for rows.Next() {
		var rec ReportRecord
		var passed int
		var created, payload string
		if err := rows.Scan(&rec.Key, &rec.OntologyVersion, &rec.Workflow,
			&passed, &payload, &created); err != nil {
			return nil, fmt.Errorf("list reports: scan: %w", err)
		}
		rec.Passed = passed != 0
		rec.Report = []byte(payload)
		rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("list reports: created_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
