// Package gate makes the execution-time permission decision: may this
// capability act on this target right now. Decisions are fail-closed;
// any internal error evaluating one is a denial, never an allow.
package gate

import (
	"fmt"

	"github.com/roach88/warden/internal/checkpoint"
	"github.com/roach88/warden/internal/diag"
	"github.com/roach88/warden/internal/ontology"
)

// Approver is consulted for capabilities the ontology marks as requiring
// approval. Returning an error denies.
type Approver func(capabilityID, target string) (bool, error)

// Decision is the outcome of one permission check. Code is set on denial
// and names the safety rule that blocked the action.
type Decision struct {
	Allowed      bool   `json:"allowed"`
	Code         string `json:"code,omitempty"`
	Reason       string `json:"reason,omitempty"`
	CheckpointID string `json:"checkpoint_id,omitempty"`
}

// Gate evaluates permission checks against ontology ground truth and the
// live checkpoint tracker. Safe for concurrent use; the tracker owns all
// shared state.
type Gate struct {
	graph    *ontology.Graph
	tracker  *checkpoint.Tracker
	approver Approver
}

func New(graph *ontology.Graph, tracker *checkpoint.Tracker) *Gate {
	return &Gate{graph: graph, tracker: tracker}
}

// WithApprover returns a gate that consults approver for approval-gated
// capabilities. Without one, every approval-gated capability is denied.
func (g *Gate) WithApprover(a Approver) *Gate {
	return &Gate{graph: g.graph, tracker: g.tracker, approver: a}
}

// Check decides whether capabilityID may act on target. Mutating and
// checkpoint-requiring capabilities need a valid Active checkpoint whose
// scope covers target; the checkpoint is reserved for the caller on
// allow, so two racing callers never both proceed under one token.
func (g *Gate) Check(capabilityID, target string) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			decision = deny(diag.CodeConstraintViolated,
				fmt.Sprintf("internal error evaluating permission: %v", r))
		}
	}()

	node, ok := g.graph.Node(capabilityID)
	if !ok {
		return deny(diag.CodeUnknownCapability,
			fmt.Sprintf("capability %q is not in the ontology", capabilityID))
	}

	if node.RequiresApproval {
		if g.approver == nil {
			return deny(diag.CodeApprovalRequired,
				fmt.Sprintf("capability %q requires approval and no approver is configured", capabilityID))
		}
		approved, err := g.approver(capabilityID, target)
		if err != nil {
			return deny(diag.CodeApprovalRequired,
				fmt.Sprintf("approval check failed: %v", err))
		}
		if !approved {
			return deny(diag.CodeApprovalRequired,
				fmt.Sprintf("approval denied for %q on %q", capabilityID, target))
		}
	}

	if !node.Mutating && !node.RequiresCheckpoint {
		return Decision{Allowed: true}
	}

	if !g.tracker.MatchesScope(target) {
		return deny(diag.CodeCheckpointRequired,
			fmt.Sprintf("no valid checkpoint covers %q", target))
	}
	id, ok := g.tracker.ValidateAndReserve()
	if !ok {
		return deny(diag.CodeCheckpointRequired,
			fmt.Sprintf("no valid checkpoint available for %q", capabilityID))
	}
	return Decision{Allowed: true, CheckpointID: id}
}

func deny(code, reason string) Decision {
	return Decision{Allowed: false, Code: code, Reason: reason}
}
