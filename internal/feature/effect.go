package feature

import (
	"context"

	"github.com/roach88/signalstore/internal/effect"
	"github.com/roach88/signalstore/internal/ir"
)

// Owner is a façade whose destruction stops the effects bound to it.
type Owner interface {
	OnDestroy(fn func())
}

// Effect creates an effect that is stopped when owner is destroyed.
func Effect[In any](owner Owner, fn effect.Workflow[In], opts ...effect.Option) *effect.Effect[In] {
	e := effect.New(fn, opts...)
	owner.OnDestroy(e.Stop)
	return e
}

// Updatable is the update half of FeatureStore and ComponentStore.
type Updatable[T any] interface {
	UpdateFn(fn func(T) T, name ...string) (ir.Action, error)
	Undo(handle ir.Action) error
}

// Optimistic applies speculative to the slice of u, performs call, and
// either reconciles the slice with the result or undoes the speculative
// update when call fails.
func Optimistic[T, R any](
	ctx context.Context,
	u Updatable[T],
	name string,
	speculative func(T) T,
	call func(ctx context.Context) (R, error),
	reconcile func(T, R) T,
) (R, error) {
	return effect.Optimistic(ctx,
		func() (ir.Action, error) {
			return u.UpdateFn(speculative, name)
		},
		call,
		func(result R) error {
			_, err := u.UpdateFn(func(current T) T {
				return reconcile(current, result)
			}, name+"-confirmed")
			return err
		},
		u.Undo,
	)
}
