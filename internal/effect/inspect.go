package effect

import "context"

// Step is one leaf of an effect tree, in declaration order.
type Step struct {
	Kind Kind
	ID   ID
}

// Steps flattens the effect tree into its leaves.
func (e Effect[A]) Steps() []Step {
	var steps []Step
	e.walk(func(leaf Effect[A]) {
		steps = append(steps, Step{Kind: leaf.kind, ID: leaf.id})
	})
	return steps
}

// Sent returns the actions of every Send leaf.
func (e Effect[A]) Sent() []A {
	var out []A
	e.walk(func(leaf Effect[A]) {
		if leaf.kind == KindSend {
			out = append(out, leaf.action)
		}
	})
	return out
}

// Has reports whether some leaf has the given kind and identity.
func (e Effect[A]) Has(kind Kind, id ID) bool {
	for _, s := range e.Steps() {
		if s.Kind == kind && s.ID == id {
			return true
		}
	}
	return false
}

func (e Effect[A]) walk(visit func(Effect[A])) {
	switch e.kind {
	case KindNone:
	case KindMerge, KindConcatenate:
		for _, c := range e.children {
			c.walk(visit)
		}
	default:
		visit(e)
	}
}

// Perform executes e synchronously in declaration order and returns the
// actions it produced. Streams are skipped and identities are ignored. It is
// meant for tests and tools that step a reducer by hand.
func Perform[A any](ctx context.Context, e Effect[A]) []A {
	var out []A
	e.walk(func(leaf Effect[A]) {
		switch leaf.kind {
		case KindSend:
			out = append(out, leaf.action)
		case KindRun:
			out = append(out, leaf.run(ctx))
		case KindFireAndForget:
			leaf.fire(ctx)
		}
	})
	return out
}
