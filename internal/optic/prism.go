package optic

// Prism focuses on one variant of a sum type.
//
// Extract reports false when the whole holds a different variant; it never
// panics. A well-behaved prism satisfies:
//
//	Extract(Embed(p)) == (p, true)
//	Extract(w) == (p, true)  implies  Embed(p) == w
type Prism[W, P any] struct {
	Extract func(W) (P, bool)
	Embed   func(P) W
}

// NewPrism builds a prism from its two directions.
func NewPrism[W, P any](extract func(W) (P, bool), embed func(P) W) Prism[W, P] {
	return Prism[W, P]{Extract: extract, Embed: embed}
}

// Case returns the prism selecting implementation P of the interface W.
//
// P must implement W. A nil W never matches.
func Case[W, P any]() Prism[W, P] {
	return Prism[W, P]{
		Extract: func(w W) (P, bool) {
			p, ok := any(w).(P)
			return p, ok
		},
		Embed: func(p P) W {
			return any(p).(W)
		},
	}
}

// Is reports whether w holds the focused variant.
func (p Prism[W, P]) Is(w W) bool {
	_, ok := p.Extract(w)
	return ok
}

// Modify rewrites the focused variant with f. A whole holding another
// variant is returned unchanged.
func (p Prism[W, P]) Modify(w W, f func(P) P) W {
	part, ok := p.Extract(w)
	if !ok {
		return w
	}
	return p.Embed(f(part))
}

// Affine widens the prism into an affine optic. Inject fails when the whole
// currently holds another variant.
func (p Prism[W, P]) Affine() Affine[W, P] {
	return Affine[W, P]{
		Extract: p.Extract,
		Inject: func(part P, w W) (W, bool) {
			if !p.Is(w) {
				return w, false
			}
			return p.Embed(part), true
		},
	}
}
