// Package engine implements the signalstore store engine.
//
// A Store is an explicitly constructed context object. It owns the action
// queue, the reducer registry, the middleware pipeline, and the reactive
// state container. There are no process-wide singletons: tests and
// applications create as many independent stores as they need.
//
// ARCHITECTURE:
//
// Run-to-completion dispatch:
// Every state mutation enters through Dispatch. Actions are appended to a
// FIFO queue and drained one at a time by whichever caller holds the drain
// lock. For each action the whole-state reducer runs through the middleware
// pipeline and the result is written to the state cell, which notifies its
// subscribers synchronously. Only then does the next action start.
//
// An action dispatched while a drain is in progress is queued and processed
// by the active drainer after the current action completes. A reentrant
// dispatch (from a subscriber or reducer hook on the draining goroutine)
// returns at once; a dispatch from another goroutine waits until its own
// action has been reduced and returns that action's error. Dispatch never
// interleaves two actions and never lets a subscriber observe a partially
// reduced state.
//
// Action processing flow:
//  1. Under the queue lock the action is stamped with a logical seq and ID
//     (Clock.Next) and enqueued, so seq order is queue order
//  2. The drainer dequeues it and applies the composed RootReducer
//  3. The next AppState is published to the state cell (every action yields
//     exactly one publication, even if nothing changed)
//  4. The action is published to OnAction listeners
//
// Pipeline:
// Meta-reducers from Config come first, followed by extensions sorted by
// SortOrder. The first entry is the outermost wrapper, so it observes the
// final post-state of every entry inside it. The pipeline is frozen when the
// store is initialized.
//
// Errors:
// A panic inside the reducer pipeline is recovered, the state stays at its
// pre-action value, and the failure is returned from Dispatch as a
// *ReducerError. Configuration mistakes return *ConfigError.
package engine
