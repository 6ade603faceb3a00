package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Domain prefixes for content-addressed identity. The version suffix
// enables future algorithm migration without colliding with old keys.
const (
	DomainPlan   = "warden/plan/v1"
	DomainReport = "warden/report/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PlanKey computes the content-addressed cache key for a resolution
// request: the ontology version plus the sorted target capability set.
// Identical inputs always hash identically, which together with the
// resolver's determinism guarantee makes cached plans safe to reuse.
func PlanKey(ontologyVersion string, targets []string) (string, error) {
	sorted := make([]string, len(targets))
	copy(sorted, targets)
	sort.Strings(sorted)

	obj := map[string]any{
		"ontology_version": ontologyVersion,
		"targets":          sorted,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("PlanKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPlan, canonical), nil
}

// ReportKey computes the content-addressed key for a validation report:
// ontology version, workflow name, and the ordered capability sequence.
func ReportKey(ontologyVersion, workflow string, capabilities []string) (string, error) {
	caps := make([]any, len(capabilities))
	for i, c := range capabilities {
		caps[i] = c
	}
	obj := map[string]any{
		"ontology_version": ontologyVersion,
		"workflow":         workflow,
		"capabilities":     caps,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ReportKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainReport, canonical), nil
}

// MustPlanKey is like PlanKey but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustPlanKey(ontologyVersion string, targets []string) string {
	key, err := PlanKey(ontologyVersion, targets)
	if err != nil {
		panic(err)
	}
	return key
}
