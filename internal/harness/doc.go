// Package harness runs declarative safety scenarios against the full
// validation and checkpoint stack.
//
// A scenario is a YAML file naming an ontology, optionally a workflow
// catalog, a flow of operations (validate, plan, gate checks, checkpoint
// lifecycle, clock advances), and assertions over the resulting trace.
// Scenarios execute against the real resolver, gate, and tracker with a
// manual clock and sequential checkpoint ids, so every run of the same
// scenario produces a byte-identical trace. Golden files pin those
// traces; regenerate with:
//
//	go test ./internal/harness -update
//
// The harness exists to state safety properties as executable documents:
// a mutation never proceeds without a covering checkpoint, a consumed
// checkpoint never authorizes a second mutation, expiry is enforced on
// access rather than by timers.
package harness
