// Package selector builds memoized derivations over store state.
//
// A selector maps a state value S to a result R. Selectors created with
// Create1..Create4 are memoized: the projector runs only when at least one
// input selector's result is not reactive.Identical to its result at the
// previous evaluation. When several inputs change for the same state, the
// projector still runs once.
//
// Selectors compose into a DAG. Because every Create function takes already
// constructed selectors as inputs, a selector can never reference itself or
// a selector built after it, so cycles cannot be expressed.
//
//	getTodos  := selector.Create1(getFeature, func(s TodosState) []Todo { return s.Todos })
//	getFilter := selector.Create1(getFeature, func(s TodosState) Filter { return s.Filter })
//	getShown  := selector.Create2(getTodos, getFilter, filterTodos)
//
// A memoized selector holds one cached input/output pair. Sharing a selector
// between unrelated state sources works but thrashes the cache.
package selector
