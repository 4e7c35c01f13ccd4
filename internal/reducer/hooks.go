package reducer

import "github.com/BTreeMap/FieldOps/internal/effect"

// OnEntry fires then when pred turns from false to true across one transition.
func OnEntry[S, A, E any](r Reducer[S, A, E], pred func(S) bool, then func(S, E) effect.Effect[A]) Reducer[S, A, E] {
	return func(state *S, action A, env E) effect.Effect[A] {
		before := pred(*state)
		eff := r(state, action, env)
		if !before && pred(*state) {
			return effect.Merge(eff, then(*state, env))
		}
		return eff
	}
}

// OnExit fires then when pred turns from true to false across one transition.
// then receives the state as it was before the transition.
func OnExit[S, A, E any](r Reducer[S, A, E], pred func(S) bool, then func(S, E) effect.Effect[A]) Reducer[S, A, E] {
	return func(state *S, action A, env E) effect.Effect[A] {
		old := *state
		before := pred(old)
		eff := r(state, action, env)
		if before && !pred(*state) {
			return effect.Merge(eff, then(old, env))
		}
		return eff
	}
}

// OnChange fires then whenever the derived value differs before and after a
// transition.
func OnChange[S, A, E any, V comparable](r Reducer[S, A, E], derive func(S) V, then func(old, new V, env E) effect.Effect[A]) Reducer[S, A, E] {
	return func(state *S, action A, env E) effect.Effect[A] {
		before := derive(*state)
		eff := r(state, action, env)
		after := derive(*state)
		if before != after {
			return effect.Merge(eff, then(before, after, env))
		}
		return eff
	}
}
