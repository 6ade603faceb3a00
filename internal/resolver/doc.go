// Package resolver turns capability sets and fixed workflows into
// deterministic, safety-complete execution orders.
//
// Synthesis expands a target set to its hard-dependency closure, injects
// the checkpoint and audit capabilities the closure's safety flags demand,
// rejects conflicting pairs, and orders the result with Kahn's algorithm
// under an explicit tie-break. Validation walks a fixed step sequence
// against the same ground truth, collecting every defect instead of
// stopping at the first.
//
// All entry points are pure functions over an immutable ontology graph;
// identical inputs always produce identical output order.
package resolver
