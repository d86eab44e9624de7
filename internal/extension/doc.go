// Package extension provides the standard store extensions.
//
// Each extension contributes one middleware to the engine pipeline. The
// engine sorts them by SortOrder, lowest outermost:
//
//	Logger, DevTools, Metrics   engine.SortOrderDefault
//	Undo                        engine.SortOrderUndo
//	ImmutableState              engine.SortOrderImmutable
//
// so logging and mirroring observe the final state of every action, undo
// intercepts undo actions before they are logged, and immutability checks
// run closest to the reducers.
package extension
