// Package ir provides the shared intermediate representation for fetchplan.
//
// This package contains type definitions and small pure helpers only. All
// other internal packages import ir; ir imports nothing internal, so it stays
// the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Records are flat maps keyed by "Alias__column" until hydration nests them
//   - Catalog types (ResourceSpec, RelationSpec) are produced by the compiler
//     and never mutated afterwards
//   - Canonical JSON (RFC 8785 key order, NFC strings) is the only encoding
//     used for fingerprints and golden snapshots
package ir
