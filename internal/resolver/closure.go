package resolver

import (
	"sort"

	"github.com/roach88/warden/internal/diag"
	"github.com/roach88/warden/internal/ontology"
)

// Well-known safety capabilities the resolver may inject.
const (
	CheckpointCapability = "checkpoint"
	AuditCapability      = "audit"
)

// Resolver computes closures and orders over one loaded ontology.
type Resolver struct {
	graph *ontology.Graph
}

func New(graph *ontology.Graph) *Resolver {
	return &Resolver{graph: graph}
}

// closure follows requires edges from the targets to a fixed point.
// soft_requires is advisory and is never followed here. Unknown targets
// are reported and skipped; unknown ids cannot appear deeper because the
// graph rejects edges with unknown endpoints at load.
func (r *Resolver) closure(targets []string, diags *diag.List) map[string]bool {
	members := make(map[string]bool, len(targets))
	queue := make([]string, 0, len(targets))
	for _, id := range targets {
		if _, ok := r.graph.Node(id); !ok {
			diags.Add(diag.Newf(diag.CodeUnknownCapability, diag.Location{},
				"capability %q is not in the ontology", id))
			continue
		}
		if !members[id] {
			members[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dep := range r.graph.Requires(id) {
			if !members[dep] {
				members[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return members
}

// injectSafety adds checkpoint when any member requires one and audit when
// any member mutates. Both insertions are idempotent and silently skipped
// when the ontology does not model the capability.
func (r *Resolver) injectSafety(members map[string]bool) {
	needsCheckpoint := false
	needsAudit := false
	for id := range members {
		node, _ := r.graph.Node(id)
		if node.RequiresCheckpoint {
			needsCheckpoint = true
			needsAudit = true
		}
		if node.Mutating {
			needsAudit = true
		}
	}
	if needsCheckpoint {
		if _, ok := r.graph.Node(CheckpointCapability); ok {
			members[CheckpointCapability] = true
		}
	}
	if needsAudit {
		if _, ok := r.graph.Node(AuditCapability); ok {
			members[AuditCapability] = true
		}
	}
}

// checkConflicts reports every conflicts_with pair inside the member set,
// each pair once with both members named.
func (r *Resolver) checkConflicts(members map[string]bool, diags *diag.List) {
	ids := sortedMembers(members)
	seen := make(map[[2]string]bool)
	for _, id := range ids {
		for _, other := range r.graph.ConflictsWith(id) {
			if !members[other] {
				continue
			}
			pair := [2]string{id, other}
			if pair[0] > pair[1] {
				pair[0], pair[1] = pair[1], pair[0]
			}
			if seen[pair] {
				continue
			}
			seen[pair] = true
			diags.Add(diag.Newf(diag.CodeConstraintViolated, diag.Location{},
				"capabilities %q and %q conflict and cannot share a workflow",
				pair[0], pair[1]))
		}
	}
}

func sortedMembers(members map[string]bool) []string {
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
