package resolver

import (
	"sort"

	"github.com/roach88/warden/internal/diag"
)

// Plan is a synthesized, safety-complete execution order.
type Plan struct {
	OntologyVersion string   `json:"ontology_version"`
	Targets         []string `json:"targets"` // requested set, sorted
	Order           []string `json:"order"`
	Injected        []string `json:"injected,omitempty"` // members added beyond the targets, sorted
	// CycleAnomaly marks that the restricted edge set contained a cycle
	// and part of the order fell back to layer order.
	CycleAnomaly bool `json:"cycle_anomaly,omitempty"`
}

// Synthesize expands targets to a safety-complete plan. Diagnostics carry
// unknown targets and conflict pairs; the plan is still produced from the
// known members so callers can show what the order would have been.
func (r *Resolver) Synthesize(targets []string) (*Plan, *diag.List) {
	diags := &diag.List{}
	members := r.closure(targets, diags)
	r.injectSafety(members)
	r.checkConflicts(members, diags)

	order, cyclic := r.order(members)
	order = r.placeCheckpoint(order)

	requested := make(map[string]bool, len(targets))
	sortedTargets := append([]string(nil), targets...)
	sort.Strings(sortedTargets)
	for _, id := range sortedTargets {
		requested[id] = true
	}
	var injected []string
	for _, id := range sortedMembers(members) {
		if !requested[id] {
			injected = append(injected, id)
		}
	}

	return &Plan{
		OntologyVersion: r.graph.Version(),
		Targets:         sortedTargets,
		Order:           order,
		Injected:        injected,
		CycleAnomaly:    cyclic,
	}, diags
}

// order runs Kahn's algorithm over the member set. Edges are restricted
// to requires (dependency before dependent) and precedes; ties among
// ready nodes break by ascending layer index, then id. A residual cycle
// never fails the sort: the remainder is appended in layer order and
// flagged.
func (r *Resolver) order(members map[string]bool) ([]string, bool) {
	ids := sortedMembers(members)

	indegree := make(map[string]int, len(ids))
	successors := make(map[string][]string, len(ids))
	addEdge := func(from, to string) {
		successors[from] = append(successors[from], to)
		indegree[to]++
	}
	for _, id := range ids {
		for _, dep := range r.graph.Requires(id) {
			if members[dep] {
				addEdge(dep, id)
			}
		}
		for _, succ := range r.graph.Precedes(id) {
			if members[succ] {
				addEdge(id, succ)
			}
		}
	}

	ready := make([]string, 0, len(ids))
	for _, id := range ids {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(ids))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return r.before(ready[i], ready[j]) })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, succ := range successors[next] {
			indegree[succ]--
			if indegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}

	if len(order) == len(ids) {
		return order, false
	}

	placed := make(map[string]bool, len(order))
	for _, id := range order {
		placed[id] = true
	}
	var rest []string
	for _, id := range ids {
		if !placed[id] {
			rest = append(rest, id)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return r.before(rest[i], rest[j]) })
	return append(order, rest...), true
}

// before is the deterministic tie-break: ascending layer index, then id.
func (r *Resolver) before(a, b string) bool {
	na, _ := r.graph.Node(a)
	nb, _ := r.graph.Node(b)
	if na.LayerIndex != nb.LayerIndex {
		return na.LayerIndex < nb.LayerIndex
	}
	return a < b
}

// placeCheckpoint moves the checkpoint member to immediately before the
// earliest checkpoint-requiring member. The generic sort only sees
// requires and precedes edges, which order checkpoint before its
// dependents but may leave unrelated steps between them.
func (r *Resolver) placeCheckpoint(order []string) []string {
	ckIdx := -1
	firstNeed := -1
	for i, id := range order {
		if id == CheckpointCapability {
			ckIdx = i
			continue
		}
		node, _ := r.graph.Node(id)
		if node.RequiresCheckpoint && firstNeed < 0 {
			firstNeed = i
		}
	}
	if ckIdx < 0 || firstNeed < 0 || ckIdx == firstNeed-1 {
		return order
	}

	out := make([]string, 0, len(order))
	for i, id := range order {
		if i == ckIdx {
			continue
		}
		if i == firstNeed {
			out = append(out, CheckpointCapability)
		}
		out = append(out, id)
	}
	return out
}
