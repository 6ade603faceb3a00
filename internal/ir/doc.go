// Package ir provides the canonical intermediate representation for warden.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps IR the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - Graph entities (nodes, edges, layers) are immutable once loaded
//   - The type grammar is a sealed union with exhaustive type switches
//   - Step-declared safety flags are advisory, never authoritative
//   - All JSON tags use snake_case
package ir
