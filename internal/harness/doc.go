// Package harness runs YAML scenarios against the demo features and checks
// the resulting action trace and final state.
//
// # Scenario Format
//
//	name: counter_undo
//	description: "Three increments, then undo the last one"
//	initial:
//	  count: 1
//	  todos:
//	    - { id: "1", title: "Write tests" }
//	  products:
//	    - { id: 1, name: Keyboard, price: 50 }
//	steps:
//	  - op: increment
//	  - op: create_todo
//	    title: "Buy milk"
//	    fail: true
//	expect:
//	  count: 3
//	  todo_ids: ["1"]
//	assertions:
//	  - type: trace_count
//	    action: "@signalstore/counter/set-state/increment"
//	    count: 3
//	  - type: final_state
//	    feature: counter
//	    expect: { count: 3 }
//
// # Operations
//
//   - increment, decrement, undo: the counter feature; undo reverts the last counter update
//   - create_todo, update_todo, delete_todo, select_todo, filter_todos: the todos feature;
//     fail: true makes the backing API call fail and the step must report an error
//   - add_to_cart, remove_from_cart, search_products: classic actions on the products reducer
//
// # Determinism
//
// Every run uses a fresh store with testutil.ResettableClock and
// testutil.SequenceGenerator, so seq values and action types are identical
// across runs. Asynchronous todo effects are awaited before the next step.
// The trace of action types and the final state are compared against golden
// files in testdata/golden with goldie.
package harness
