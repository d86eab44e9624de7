// Package ir provides the canonical record types shared by every signalstore package.
//
// This package contains the Action record, its metadata, the reserved lifecycle
// action namespace, and the canonical JSON encoding used to hash published state.
// All other internal packages import ir; ir imports nothing internal. This keeps
// ir the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Actions are values. Once stamped by the store (ID + Seq) they are never mutated.
//   - Ordering uses the logical Seq stamped at dispatch, never wall-clock time.
//   - Lifecycle actions (init, destroy, set-state, undo) live under the reserved
//     "@signalstore" namespace and are built only through the constructors here.
//   - Canonical JSON sorts object keys by UTF-16 code units and NFC-normalizes
//     strings so that equal states always hash to the same value.
package ir
