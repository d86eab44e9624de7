package selector

// Create1 builds a memoized selector projecting the result of one input
// selector. projector runs only when the input result changes.
func Create1[S, A, R any](
	a Selector[S, A],
	projector func(A) R,
) *Memoized[S, R] {
	return newMemoized([]func(S) any{erase(a)}, func(v []any) R {
		return projector(arg[A](v[0]))
	})
}

// Create2 builds a memoized selector over two input selectors.
func Create2[S, A, B, R any](
	a Selector[S, A],
	b Selector[S, B],
	projector func(A, B) R,
) *Memoized[S, R] {
	return newMemoized([]func(S) any{erase(a), erase(b)}, func(v []any) R {
		return projector(arg[A](v[0]), arg[B](v[1]))
	})
}

// Create3 builds a memoized selector over three input selectors.
func Create3[S, A, B, C, R any](
	a Selector[S, A],
	b Selector[S, B],
	c Selector[S, C],
	projector func(A, B, C) R,
) *Memoized[S, R] {
	return newMemoized([]func(S) any{erase(a), erase(b), erase(c)}, func(v []any) R {
		return projector(arg[A](v[0]), arg[B](v[1]), arg[C](v[2]))
	})
}

// Create4 builds a memoized selector over four input selectors.
// projector runs only when at least one input result changes.
func Create4[S, A, B, C, D, R any](
	a Selector[S, A],
	b Selector[S, B],
	c Selector[S, C],
	d Selector[S, D],
	projector func(A, B, C, D) R,
) *Memoized[S, R] {
	return newMemoized([]func(S) any{erase(a), erase(b), erase(c), erase(d)}, func(v []any) R {
		return projector(arg[A](v[0]), arg[B](v[1]), arg[C](v[2]), arg[D](v[3]))
	})
}
