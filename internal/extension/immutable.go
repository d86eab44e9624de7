package extension

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/signalstore/internal/engine"
	"github.com/roach88/signalstore/internal/ir"
	"github.com/roach88/signalstore/internal/reactive"
)

// ImmutabilityError reports a published feature slice that was modified in place.
type ImmutabilityError struct {
	FeatureKey string
	// ActionType is the action about to be reduced when the mutation was found.
	ActionType string
}

func (e *ImmutabilityError) Error() string {
	return fmt.Sprintf("state of feature %q was mutated after it was published (detected before %q)",
		e.FeatureKey, e.ActionType)
}

type fingerprint struct {
	value any
	// hash is empty when the slice cannot be encoded.
	hash string
}

// ImmutableStateExtension detects in-place mutation of published state.
//
// Every published AppState is fingerprinted: the map itself and each slice.
// Before the next reduction it checks that the AppState map, if it is still
// the same object, holds the same slices under the same keys, and re-hashes
// every slice that is still the same object. A difference means someone
// mutated published state, and the reduction panics with an
// *ImmutabilityError (surfaced by Dispatch as a ReducerError). The failing
// action is dropped and the mutated slice is not checked again.
// Slices that cannot be encoded as JSON are only checked by identity.
type ImmutableStateExtension struct {
	base

	mu     sync.Mutex
	root   engine.AppState
	prints map[string]fingerprint
}

// ImmutableState creates the immutability extension.
func ImmutableState() *ImmutableStateExtension {
	return &ImmutableStateExtension{
		base:   newBase(ImmutableStateID, engine.SortOrderImmutable),
		prints: map[string]fingerprint{},
	}
}

// Start fingerprints every AppState the store publishes, including states
// rewritten by outer middleware after this one returned.
func (e *ImmutableStateExtension) Start(s *engine.Store) error {
	e.record(s.State())
	s.Subscribe(e.record)
	return nil
}

// Middleware returns the tamper-detecting middleware.
func (e *ImmutableStateExtension) Middleware() engine.Middleware {
	return engine.MiddlewareFunc(func(state engine.AppState, a ir.Action, next engine.RootReducer) engine.AppState {
		if err := e.verify(state, a.Type); err != nil {
			panic(err)
		}
		return next(state, a)
	})
}

// Verify checks state against the fingerprints of the last published state.
func (e *ImmutableStateExtension) Verify(state engine.AppState) error {
	return e.verify(state, "")
}

func (e *ImmutableStateExtension) verify(state engine.AppState, actionType string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.root != nil && reactive.Identical(e.root, state) {
		if key, ok := e.rootChanged(state); ok {
			// Report once; the next published state is fingerprinted afresh.
			e.root = nil
			return &ImmutabilityError{FeatureKey: key, ActionType: actionType}
		}
	}

	for _, key := range sortedKeys(state) {
		fp, ok := e.prints[key]
		if !ok || fp.hash == "" || !reactive.Identical(fp.value, state[key]) {
			continue
		}
		hash, err := ir.StateHash(state[key])
		if err != nil {
			continue
		}
		if hash != fp.hash {
			// Report each mutation once.
			e.prints[key] = fingerprint{value: fp.value}
			return &ImmutabilityError{FeatureKey: key, ActionType: actionType}
		}
	}
	return nil
}

// rootChanged returns the first key added, removed or replaced in the
// published AppState map since it was fingerprinted.
func (e *ImmutableStateExtension) rootChanged(state engine.AppState) (string, bool) {
	for _, key := range sortedKeys(state) {
		fp, ok := e.prints[key]
		if !ok || !reactive.Identical(fp.value, state[key]) {
			return key, true
		}
	}
	for _, key := range sortedKeys(e.prints) {
		if _, ok := state[key]; !ok {
			return key, true
		}
	}
	return "", false
}

func (e *ImmutableStateExtension) record(state engine.AppState) {
	prints := make(map[string]fingerprint, len(state))
	for key, value := range state {
		fp := fingerprint{value: value}
		if hash, err := ir.StateHash(value); err == nil {
			fp.hash = hash
		}
		prints[key] = fp
	}

	e.mu.Lock()
	e.root = state
	e.prints = prints
	e.mu.Unlock()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
