package optic

// Index focuses on the element at position i. Inject copies the slice so the
// original whole is never aliased.
func Index[T any](i int) Affine[[]T, T] {
	return Affine[[]T, T]{
		Extract: func(xs []T) (T, bool) {
			if i < 0 || i >= len(xs) {
				var zero T
				return zero, false
			}
			return xs[i], true
		},
		Inject: func(x T, xs []T) ([]T, bool) {
			if i < 0 || i >= len(xs) {
				return xs, false
			}
			out := make([]T, len(xs))
			copy(out, xs)
			out[i] = x
			return out, true
		},
	}
}

// Find focuses on the first element whose key equals k. Inject refuses a
// replacement carrying a different key.
func Find[T any, K comparable](key func(T) K, k K) Affine[[]T, T] {
	return Affine[[]T, T]{
		Extract: func(xs []T) (T, bool) {
			for _, x := range xs {
				if key(x) == k {
					return x, true
				}
			}
			var zero T
			return zero, false
		},
		Inject: func(x T, xs []T) ([]T, bool) {
			if key(x) != k {
				return xs, false
			}
			for i := range xs {
				if key(xs[i]) == k {
					out := make([]T, len(xs))
					copy(out, xs)
					out[i] = x
					return out, true
				}
			}
			return xs, false
		},
	}
}

// MapSlice applies f to every element.
func MapSlice[T, U any](xs []T, f func(T) U) []U {
	if xs == nil {
		return nil
	}
	out := make([]U, len(xs))
	for i, x := range xs {
		out[i] = f(x)
	}
	return out
}

// FilterSlice keeps the elements satisfying keep.
func FilterSlice[T any](xs []T, keep func(T) bool) []T {
	var out []T
	for _, x := range xs {
		if keep(x) {
			out = append(out, x)
		}
	}
	return out
}

// Traverse applies f to every element and succeeds only when every call does.
func Traverse[T, U any](xs []T, f func(T) Option[U]) Option[[]U] {
	out := make([]U, 0, len(xs))
	for _, x := range xs {
		u, ok := f(x).Get()
		if !ok {
			return None[[]U]()
		}
		out = append(out, u)
	}
	return Some(out)
}
