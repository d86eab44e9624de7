// Package demo contains the sample features driven by the CLI and the
// scenario harness: a counter with undo, an optimistic todo list backed by
// an asynchronous API, and a products catalog built from classic reducers.
package demo
