// Package checkpoint tracks the safety token a mutating capability must
// hold before it may proceed.
//
// A tracker holds at most one Active checkpoint; creating a new one
// supersedes the old, which moves into a bounded history along with every
// other terminal state (Consumed, Expired, Invalidated). Expiry is
// detected lazily on access, never by a background timer. Every mutation
// persists the full state with a write-to-temp-then-rename, and a state
// file that is oversized or fails to decode is treated as absent: no
// checkpoint, deny mutation, never trust a torn file.
package checkpoint
