// Package ontology loads and serves the capability graph.
//
// The graph is authoritative and immutable after load: nodes, typed edges,
// the ordered layer list, and shared schema fragments are parsed once from
// a YAML source document, shape-checked against an embedded CUE schema,
// and never mutated for the process's lifetime. Reload means a fresh
// instance.
//
// Load fails hard. An absent source, a symbolic link, an oversized
// document, or a reference to an undefined node or layer is an error,
// never a degraded graph.
//
// Query operations are read-only and O(1) or O(degree), safe for any
// number of concurrent callers. soft_requires is served by its own
// accessor and is never folded into the hard-dependency surface.
package ontology
