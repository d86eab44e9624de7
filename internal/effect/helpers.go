package effect

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/signalstore/internal/ir"
)

// TapResponse routes the outcome of an asynchronous call to onSuccess or
// onError and returns err unchanged. Either callback may be nil.
func TapResponse[R any](result R, err error, onSuccess func(R), onError func(error)) error {
	if err != nil {
		if onError != nil {
			onError(err)
		}
		return err
	}
	if onSuccess != nil {
		onSuccess(result)
	}
	return nil
}

// Optimistic runs the speculative update protocol:
//
//  1. update applies the speculative change and returns its undo handle
//  2. call performs the asynchronous operation
//  3. on success confirm reconciles the result; on failure undo reverts
//     the speculative change and the call error is returned
//
// Concurrent optimistic updates of the same slice are not serialized
// against each other.
func Optimistic[R any](
	ctx context.Context,
	update func() (ir.Action, error),
	call func(ctx context.Context) (R, error),
	confirm func(R) error,
	undo func(handle ir.Action) error,
) (R, error) {
	var zero R

	handle, err := update()
	if err != nil {
		return zero, fmt.Errorf("speculative update: %w", err)
	}

	result, callErr := call(ctx)
	if callErr != nil {
		if uerr := undo(handle); uerr != nil {
			return zero, errors.Join(callErr, fmt.Errorf("undo %s: %w", handle.Type, uerr))
		}
		return zero, callErr
	}

	if confirm != nil {
		if err := confirm(result); err != nil {
			return result, fmt.Errorf("confirm: %w", err)
		}
	}
	return result, nil
}

// Dispatcher accepts actions; *engine.Store implements it.
type Dispatcher interface {
	Dispatch(a ir.Action) (ir.Action, error)
}

// Dispatching adapts a function producing an action into a Workflow that
// dispatches it. A zero action (empty Type) dispatches nothing.
func Dispatching[In any](d Dispatcher, fn func(ctx context.Context, in In) (ir.Action, error)) Workflow[In] {
	return func(ctx context.Context, in In) error {
		a, err := fn(ctx, in)
		if err != nil {
			return err
		}
		if a.Type == "" {
			return nil
		}
		_, err = d.Dispatch(a)
		return err
	}
}

// ActionSource publishes reduced actions; *engine.Store implements it.
type ActionSource interface {
	OnAction(fn func(ir.Action)) (unsubscribe func())
}

// FromActions runs e for every reduced action of src accepted by filter, or
// for every action when filter is nil. The returned function stops listening;
// executions already started keep running.
func FromActions(src ActionSource, e *Effect[ir.Action], filter func(ir.Action) bool) (stop func()) {
	return src.OnAction(func(a ir.Action) {
		if filter == nil || filter(a) {
			e.Run(a)
		}
	})
}
