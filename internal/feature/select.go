package feature

import (
	"github.com/roach88/signalstore/internal/reactive"
	"github.com/roach88/signalstore/internal/selector"
)

// Select derives a value from the slice of src.
func Select[T, R any](src Source[T], fn func(T) R) *reactive.Computed[R] {
	return reactive.Map(src.Select(), fn)
}

// SelectWith derives a value through a selector, typically a memoized one
// built with selector.Create1..Create4.
func SelectWith[T, R any](src Source[T], sel selector.Selector[T, R]) *reactive.Computed[R] {
	return reactive.Map(src.Select(), sel.Select)
}
