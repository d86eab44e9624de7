// Package effect runs asynchronous workflows that feed results back into a
// store through dispatch.
//
// An Effect executes its workflow once per Run, concurrently with other
// executions and with the store. Workflows never touch state directly: each
// state change re-enters through Dispatch or a FeatureStore update and is
// serialized by the store's action queue.
//
// Stop cancels the context handed to running workflows and rejects future
// Runs. It does not revert actions already dispatched; use the undo handle
// returned by an update for that (see Optimistic).
//
// Each execution is traced as an OpenTelemetry span named "effect.<name>".
package effect
