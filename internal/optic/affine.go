package optic

// Affine focuses on a part that may be absent, and whose write-back may be
// refused when the whole no longer has room for it.
//
// Laws, whenever the operations succeed:
//
//	Extract(Inject(p, w)) == (p, true)
//	Inject(Extract(w), w) == (w, true)
type Affine[W, P any] struct {
	Extract func(W) (P, bool)
	Inject  func(P, W) (W, bool)
}

// NewAffine builds an affine optic from its two directions.
func NewAffine[W, P any](extract func(W) (P, bool), inject func(P, W) (W, bool)) Affine[W, P] {
	return Affine[W, P]{Extract: extract, Inject: inject}
}

// Modify rewrites the focused part with f. It reports false, returning w
// unchanged, when the part is absent or cannot be written back.
func (a Affine[W, P]) Modify(w W, f func(P) P) (W, bool) {
	part, ok := a.Extract(w)
	if !ok {
		return w, false
	}
	return a.Inject(f(part), w)
}

// Preview returns the focused part as an Option.
func (a Affine[W, P]) Preview(w W) Option[P] {
	return OptionOf(a.Extract(w))
}
