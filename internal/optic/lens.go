// Package optic provides composable accessors for reading and rewriting parts of
// immutable values.
//
// Three families are provided:
//
//   - Lens: a total accessor for a field that always exists.
//   - Prism: a partial accessor for one variant of a closed interface (sum type).
//   - Affine: an accessor that may fail in both directions, usually the
//     composition of a Lens and a Prism.
//
// Every optic is a plain value holding two functions, so optics can be declared
// as package-level variables and composed with the Compose* helpers.
package optic

// Lens focuses on a part that is always present inside a whole.
//
// A well-behaved lens satisfies:
//
//	Get(Set(p, w)) == p
//	Set(Get(w), w) == w
//	Set(p2, Set(p1, w)) == Set(p2, w)
type Lens[W, P any] struct {
	Get func(W) P
	Set func(P, W) W
}

// NewLens builds a lens from a getter and a setter.
func NewLens[W, P any](get func(W) P, set func(P, W) W) Lens[W, P] {
	return Lens[W, P]{Get: get, Set: set}
}

// Identity returns the lens that focuses on the whole value.
func Identity[A any]() Lens[A, A] {
	return Lens[A, A]{
		Get: func(a A) A { return a },
		Set: func(a A, _ A) A { return a },
	}
}

// Modify rewrites the focused part with f.
func (l Lens[W, P]) Modify(w W, f func(P) P) W {
	return l.Set(f(l.Get(w)), w)
}

// Affine widens the lens into an affine optic whose directions never fail.
func (l Lens[W, P]) Affine() Affine[W, P] {
	return Affine[W, P]{
		Extract: func(w W) (P, bool) { return l.Get(w), true },
		Inject:  func(p P, w W) (W, bool) { return l.Set(p, w), true },
	}
}
