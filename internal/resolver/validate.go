package resolver

import (
	"github.com/roach88/warden/internal/binding"
	"github.com/roach88/warden/internal/diag"
	"github.com/roach88/warden/internal/ir"
)

// ValidationResult is the outcome of checking one fixed workflow.
type ValidationResult struct {
	Workflow string `json:"workflow"`
	// Sequence is the declared capability order with safety injections
	// applied. It is produced even when diagnostics were raised.
	Sequence    []string             `json:"sequence"`
	Injected    []string             `json:"injected,omitempty"`
	Suggestions []binding.Suggestion `json:"suggestions,omitempty"`
}

var riskRank = map[ir.RiskLevel]int{
	ir.RiskLow:    0,
	ir.RiskMedium: 1,
	ir.RiskHigh:   2,
}

// ValidateWorkflow checks a fixed step sequence against ontology ground
// truth: every capability known, every hard prerequisite satisfied by an
// earlier step, no conflicting pair, no declared flag understating what
// the ontology records. Safety steps the sequence lacks are injected
// from ground truth, never trusted from step declarations. Binding
// checks run through checker when one is supplied.
func (r *Resolver) ValidateWorkflow(wf *ir.WorkflowDefinition, checker *binding.Checker) (*ValidationResult, *diag.List) {
	diags := &diag.List{}
	result := &ValidationResult{Workflow: wf.Name}

	caps := make([]string, len(wf.Steps))
	known := make([]bool, len(wf.Steps))
	for i, step := range wf.Steps {
		caps[i] = step.Capability
		loc := diag.Location{Workflow: wf.Name, Step: step.StoreAs}
		node, ok := r.graph.Node(step.Capability)
		if !ok {
			diags.Add(diag.Newf(diag.CodeUnknownCapability, loc,
				"capability %q is not in the ontology", step.Capability))
			continue
		}
		known[i] = true
		r.checkDeclaredFlags(step, node, loc, diags)
	}

	r.checkPrerequisites(wf, caps, known, diags)
	r.checkSequenceConflicts(wf, caps, known, diags)
	r.checkCheckpointPosition(wf, caps, known, diags)

	if checker != nil {
		bindDiags, suggestions := checker.CheckWorkflow(wf)
		diags.Merge(bindDiags)
		result.Suggestions = suggestions
	}

	result.Sequence, result.Injected = r.injectSequence(caps, known)
	return result, diags
}

// checkDeclaredFlags flags declarations that understate ontology ground
// truth. Tightening is allowed; lowering is a constraint violation.
func (r *Resolver) checkDeclaredFlags(step ir.WorkflowStep, node ir.CapabilityNode, loc diag.Location, diags *diag.List) {
	if step.Mutating != nil && !*step.Mutating && node.Mutating {
		diags.Add(diag.Newf(diag.CodeConstraintViolated, loc,
			"step declares mutating=false but the ontology marks %q mutating", node.ID))
	}
	if step.RequiresCheckpoint != nil && !*step.RequiresCheckpoint && node.RequiresCheckpoint {
		diags.Add(diag.Newf(diag.CodeConstraintViolated, loc,
			"step declares requires_checkpoint=false but the ontology requires one for %q", node.ID))
	}
	if step.Risk != "" && riskRank[step.Risk] < riskRank[node.Risk] {
		diags.Add(diag.Newf(diag.CodeConstraintViolated, loc,
			"step declares risk %s but the ontology classifies %q as %s",
			step.Risk, node.ID, node.Risk))
	}
}

// checkPrerequisites verifies every hard requires dependency appears
// earlier in the sequence. The checkpoint prerequisite is exempt here;
// injectSequence supplies it from ground truth.
func (r *Resolver) checkPrerequisites(wf *ir.WorkflowDefinition, caps []string, known []bool, diags *diag.List) {
	for i, capID := range caps {
		if !known[i] {
			continue
		}
		for _, dep := range r.graph.Requires(capID) {
			if dep == CheckpointCapability {
				continue
			}
			satisfied := false
			for j := 0; j < i; j++ {
				if caps[j] == dep {
					satisfied = true
					break
				}
			}
			if !satisfied {
				diags.Add(diag.Newf(diag.CodeMissingPrerequisite,
					diag.Location{Workflow: wf.Name, Step: wf.Steps[i].StoreAs},
					"capability %q requires %q earlier in the workflow", capID, dep))
			}
		}
	}
}

func (r *Resolver) checkSequenceConflicts(wf *ir.WorkflowDefinition, caps []string, known []bool, diags *diag.List) {
	members := make(map[string]bool, len(caps))
	for i, capID := range caps {
		if known[i] {
			members[capID] = true
		}
	}
	scoped := &diag.List{}
	r.checkConflicts(members, scoped)
	for _, d := range scoped.Items() {
		d.Location.Workflow = wf.Name
		diags.Add(d)
	}
}

// checkCheckpointPosition flags a declared checkpoint step that comes
// after a step the ontology says needs one. Injection only fills gaps;
// it never reorders what the workflow wrote down.
func (r *Resolver) checkCheckpointPosition(wf *ir.WorkflowDefinition, caps []string, known []bool, diags *diag.List) {
	ckIdx := -1
	for i, capID := range caps {
		if capID == CheckpointCapability {
			ckIdx = i
			break
		}
	}
	if ckIdx < 0 {
		return
	}
	for i, capID := range caps {
		if i >= ckIdx || !known[i] {
			continue
		}
		node, _ := r.graph.Node(capID)
		if node.RequiresCheckpoint {
			diags.Add(diag.Newf(diag.CodeCheckpointRequired,
				diag.Location{Workflow: wf.Name, Step: wf.Steps[i].StoreAs},
				"capability %q runs before the checkpoint step", capID))
		}
	}
}

// injectSequence applies safety injection to a declared order: checkpoint
// immediately before the first step the ontology says requires one, audit
// appended when any step mutates. Existing safety steps are respected;
// injection is idempotent.
func (r *Resolver) injectSequence(caps []string, known []bool) (sequence, injected []string) {
	hasCheckpoint := false
	hasAudit := false
	needsAudit := false
	firstNeed := -1
	for i, capID := range caps {
		if capID == CheckpointCapability {
			hasCheckpoint = true
		}
		if capID == AuditCapability {
			hasAudit = true
		}
		if !known[i] {
			continue
		}
		node, _ := r.graph.Node(capID)
		if node.Mutating || node.RequiresCheckpoint {
			needsAudit = true
		}
		if node.RequiresCheckpoint && firstNeed < 0 {
			firstNeed = i
		}
	}

	sequence = make([]string, 0, len(caps)+2)
	for i, capID := range caps {
		if i == firstNeed && !hasCheckpoint {
			if _, ok := r.graph.Node(CheckpointCapability); ok {
				sequence = append(sequence, CheckpointCapability)
				injected = append(injected, CheckpointCapability)
			}
		}
		sequence = append(sequence, capID)
	}
	if needsAudit && !hasAudit {
		if _, ok := r.graph.Node(AuditCapability); ok {
			sequence = append(sequence, AuditCapability)
			injected = append(injected, AuditCapability)
		}
	}
	return sequence, injected
}
