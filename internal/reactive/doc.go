// Package reactive implements the reactive cell used to publish store state.
//
// A Cell holds a settable value and notifies subscribers synchronously on
// every Set, even when the new value is identical to the old one. A Computed
// derives a read-only value from one or more inputs through a pure function.
//
// Computed values are pull-based: the derivation runs lazily on Get, and only
// when at least one input value is not Identical to the value seen at the
// previous evaluation. Because evaluation is driven by reads rather than by
// input notifications, several inputs changing in the same publication still
// produce exactly one evaluation.
//
// Subscribing to a Computed attaches it to its inputs. The subscriber is
// notified only when the derived value actually changed.
//
// All types are safe for concurrent use. Derivation functions must be pure
// and must not Set cells.
package reactive
