// Package binding implements the workflow binding type system.
//
// It resolves ${name} and ${name.path: type} expressions against producer
// output schemas pulled from the capability graph, infers structural types
// recursively, checks compatibility against consumer input schemas, and
// suggests registered coercions for mismatches. All checks are pure
// functions over immutable state; diagnostics are collected, never
// short-circuited.
//
// Schema fragments referenced by pointer are expanded with a visited set
// keyed by document+pointer identity (not structural value), a hard depth
// ceiling, and a total element ceiling. Cyclic and alias-bomb schemas
// therefore produce a bounded error instead of a hang or memory blowup.
package binding
