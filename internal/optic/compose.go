package optic

// ComposeLens chains two lenses. Lens∘Lens is a Lens.
func ComposeLens[A, B, C any](ab Lens[A, B], bc Lens[B, C]) Lens[A, C] {
	return Lens[A, C]{
		Get: func(a A) C { return bc.Get(ab.Get(a)) },
		Set: func(c C, a A) A { return ab.Set(bc.Set(c, ab.Get(a)), a) },
	}
}

// ComposePrism chains two prisms. Prism∘Prism is a Prism.
func ComposePrism[A, B, C any](ab Prism[A, B], bc Prism[B, C]) Prism[A, C] {
	return Prism[A, C]{
		Extract: func(a A) (C, bool) {
			b, ok := ab.Extract(a)
			if !ok {
				var zero C
				return zero, false
			}
			return bc.Extract(b)
		},
		Embed: func(c C) A { return ab.Embed(bc.Embed(c)) },
	}
}

// LensPrism focuses a lens onto one variant of the field it reaches.
// Lens∘Prism is an Affine.
func LensPrism[A, B, C any](ab Lens[A, B], bc Prism[B, C]) Affine[A, C] {
	return Compose(ab.Affine(), bc.Affine())
}

// PrismLens reaches a field inside one variant. Prism∘Lens is an Affine.
func PrismLens[A, B, C any](ab Prism[A, B], bc Lens[B, C]) Affine[A, C] {
	return Affine[A, C]{
		Extract: func(a A) (C, bool) {
			b, ok := ab.Extract(a)
			if !ok {
				var zero C
				return zero, false
			}
			return bc.Get(b), true
		},
		Inject: func(c C, a A) (A, bool) {
			b, ok := ab.Extract(a)
			if !ok {
				return a, false
			}
			return ab.Embed(bc.Set(c, b)), true
		},
	}
}

// Compose chains two affine optics.
func Compose[A, B, C any](ab Affine[A, B], bc Affine[B, C]) Affine[A, C] {
	return Affine[A, C]{
		Extract: func(a A) (C, bool) {
			b, ok := ab.Extract(a)
			if !ok {
				var zero C
				return zero, false
			}
			return bc.Extract(b)
		},
		Inject: func(c C, a A) (A, bool) {
			b, ok := ab.Extract(a)
			if !ok {
				return a, false
			}
			b, ok = bc.Inject(c, b)
			if !ok {
				return a, false
			}
			return ab.Inject(b, a)
		},
	}
}

// AffineLens extends an affine optic with a lens on the part it reaches.
func AffineLens[A, B, C any](ab Affine[A, B], bc Lens[B, C]) Affine[A, C] {
	return Compose(ab, bc.Affine())
}

// AffinePrism extends an affine optic with a prism on the part it reaches.
func AffinePrism[A, B, C any](ab Affine[A, B], bc Prism[B, C]) Affine[A, C] {
	return Compose(ab, bc.Affine())
}
