package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/warden/internal/binding"
	"github.com/roach88/warden/internal/catalog"
	"github.com/roach88/warden/internal/checkpoint"
	"github.com/roach88/warden/internal/coercion"
	"github.com/roach88/warden/internal/gate"
	"github.com/roach88/warden/internal/ontology"
	"github.com/roach88/warden/internal/resolver"
	"github.com/roach88/warden/internal/testutil"
)

// runtime bundles the live components a scenario executes against.
type runtime struct {
	graph    *ontology.Graph
	catalog  *catalog.Catalog
	resolver *resolver.Resolver
	checker  *binding.Checker
	tracker  *checkpoint.Tracker
	gate     *gate.Gate
	clock    *testutil.ManualClock
}

// Run executes a scenario against the real resolver, gate, and tracker.
// The tracker uses a manual clock and sequential ids, so equal scenarios
// always produce equal traces. Execution continues past expect failures
// so one broken step reports every downstream consequence; a returned
// error means the scenario could not be executed at all.
func Run(scenario *Scenario) (*Result, error) {
	rt, cleanup, err := newRuntime(scenario)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	result := NewResult()
	for i, step := range scenario.Flow {
		detail, err := rt.execute(step)
		if err != nil {
			return nil, fmt.Errorf("flow[%d] %s: %w", i, step.Op, err)
		}
		result.AddTrace(step.Op, detail)
		if step.Expect != nil {
			if mismatch := matchSubset(step.Expect, detail); mismatch != "" {
				result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Op, mismatch))
			}
		}
	}

	result.State = rt.finalState()
	for i, a := range scenario.Assertions {
		if msg := checkAssertion(&a, result); msg != "" {
			result.AddError(fmt.Sprintf("assertions[%d] %s: %s", i, a.Type, msg))
		}
	}
	return result, nil
}

func newRuntime(scenario *Scenario) (*runtime, func(), error) {
	graph, err := ontology.Load(scenario.Ontology)
	if err != nil {
		return nil, nil, fmt.Errorf("loading ontology: %w", err)
	}

	var cat *catalog.Catalog
	if scenario.Catalog != "" {
		loaded, diags, err := catalog.Load(scenario.Catalog)
		if err != nil {
			return nil, nil, fmt.Errorf("loading catalog: %w", err)
		}
		if !diags.Empty() {
			return nil, nil, fmt.Errorf("catalog has %d load diagnostics", diags.Len())
		}
		cat = loaded
	}

	stateDir, err := os.MkdirTemp("", "warden-harness-*")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { os.RemoveAll(stateDir) }

	clock := testutil.NewManualClock(time.Time{})
	ids := testutil.NewSequentialIDs("ck")
	tracker := checkpoint.NewTracker(
		filepath.Join(stateDir, "checkpoint.json"),
		checkpoint.WithClock(clock.Now),
		checkpoint.WithIDGenerator(ids.Next),
	)

	return &runtime{
		graph:    graph,
		catalog:  cat,
		resolver: resolver.New(graph),
		checker:  binding.NewChecker(graph, coercion.Empty()),
		tracker:  tracker,
		gate:     gate.New(graph, tracker),
		clock:    clock,
	}, cleanup, nil
}

func (rt *runtime) execute(step FlowStep) (map[string]any, error) {
	switch step.Op {
	case "validate":
		return rt.runValidate(step)
	case "plan":
		return rt.runPlan(step)
	case "checkpoint_create":
		return rt.runCreate(step)
	case "gate":
		return rt.runGate(step)
	case "consume":
		detail := map[string]any{"consumed": false}
		if id, ok := rt.tracker.Consume(); ok {
			detail["consumed"] = true
			detail["id"] = id
		}
		return detail, nil
	case "sweep":
		return map[string]any{"swept": rt.tracker.ClearExpired()}, nil
	case "invalidate":
		return map[string]any{"invalidated": rt.tracker.InvalidateAll()}, nil
	case "advance":
		rt.clock.Advance(time.Duration(step.Minutes) * time.Minute)
		return map[string]any{"minutes": step.Minutes}, nil
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

func (rt *runtime) runValidate(step FlowStep) (map[string]any, error) {
	wf, ok := rt.catalog.Workflow(step.Workflow)
	if !ok {
		return nil, fmt.Errorf("workflow %q not in catalog", step.Workflow)
	}
	res, diags := rt.resolver.ValidateWorkflow(&wf, rt.checker)
	detail := map[string]any{
		"workflow": step.Workflow,
		"passed":   diags.Empty(),
		"sequence": toAnyList(res.Sequence),
	}
	if len(res.Injected) > 0 {
		detail["injected"] = toAnyList(res.Injected)
	}
	if !diags.Empty() {
		codes := make([]any, 0, diags.Len())
		for _, d := range diags.Items() {
			codes = append(codes, d.Code)
		}
		detail["codes"] = codes
	}
	return detail, nil
}

func (rt *runtime) runPlan(step FlowStep) (map[string]any, error) {
	plan, diags := rt.resolver.Synthesize(step.Targets)
	detail := map[string]any{
		"targets": toAnyList(step.Targets),
		"passed":  diags.Empty(),
	}
	if plan != nil {
		detail["order"] = toAnyList(plan.Order)
		if len(plan.Injected) > 0 {
			detail["injected"] = toAnyList(plan.Injected)
		}
		if plan.CycleAnomaly {
			detail["cycle_anomaly"] = true
		}
	}
	if !diags.Empty() {
		codes := make([]any, 0, diags.Len())
		for _, d := range diags.Items() {
			codes = append(codes, d.Code)
		}
		detail["codes"] = codes
	}
	return detail, nil
}

func (rt *runtime) runCreate(step FlowStep) (map[string]any, error) {
	ttl := checkpoint.NoTTL
	if step.TTLMinutes != nil {
		ttl = time.Duration(*step.TTLMinutes) * time.Minute
	}
	ck, err := rt.tracker.Create(step.Scope, step.Reason, ttl)
	if err != nil {
		return nil, fmt.Errorf("creating checkpoint: %w", err)
	}
	detail := map[string]any{"id": ck.ID}
	if len(ck.Scope) > 0 {
		detail["scope"] = toAnyList(ck.Scope)
	}
	if ck.Reason != "" {
		detail["reason"] = ck.Reason
	}
	if ck.ExpiresAt != nil {
		detail["expires_at"] = ck.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return detail, nil
}

func (rt *runtime) runGate(step FlowStep) (map[string]any, error) {
	decision := rt.gate.Check(step.Capability, step.Target)
	detail := map[string]any{
		"capability": step.Capability,
		"allowed":    decision.Allowed,
	}
	if step.Target != "" {
		detail["target"] = step.Target
	}
	if decision.Code != "" {
		detail["code"] = decision.Code
	}
	if decision.CheckpointID != "" {
		detail["checkpoint_id"] = decision.CheckpointID
	}
	return detail, nil
}

// finalState snapshots the tracker for checkpoint_state assertions and
// golden comparison.
func (rt *runtime) finalState() map[string]any {
	state := map[string]any{"has_active": false}
	if active, ok := rt.tracker.Active(); ok {
		state["has_active"] = true
		state["active_id"] = active.ID
		state["active_status"] = string(active.Status)
	}
	history := rt.tracker.History()
	state["history_count"] = len(history)
	entries := make([]any, 0, len(history))
	for _, ck := range history {
		entries = append(entries, map[string]any{
			"id":     ck.ID,
			"status": string(ck.Status),
		})
	}
	if len(entries) > 0 {
		state["history"] = entries
	}
	return state
}

func toAnyList(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
