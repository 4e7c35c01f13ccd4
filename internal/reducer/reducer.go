// Package reducer composes small state-transition functions into one.
//
// A Reducer mutates the state it is given in place and returns an Effect
// describing follow-up work. Feature reducers are written against a narrow
// (state, action, environment) triple and lifted into the application triple
// with Pullback.
package reducer

import (
	"log/slog"

	"github.com/BTreeMap/FieldOps/internal/effect"
	"github.com/BTreeMap/FieldOps/internal/optic"
)

// Reducer is a state-transition function.
type Reducer[S, A, E any] func(state *S, action A, env E) effect.Effect[A]

// Empty returns the reducer that changes nothing.
func Empty[S, A, E any]() Reducer[S, A, E] {
	return func(*S, A, E) effect.Effect[A] { return effect.None[A]() }
}

// Combine runs reducers in declared order against the same state and merges
// their effects. Each reducer sees the changes of the ones before it.
func Combine[S, A, E any](reducers ...Reducer[S, A, E]) Reducer[S, A, E] {
	return func(state *S, action A, env E) effect.Effect[A] {
		effects := make([]effect.Effect[A], 0, len(reducers))
		for _, r := range reducers {
			effects = append(effects, r(state, action, env))
		}
		return effect.Merge(effects...)
	}
}

// Pullback lifts a local reducer into a global one.
//
// The action is projected first; a global action the local reducer does not
// understand yields no effect. The state is projected next; if the global
// state does not currently hold the local part the reducer is skipped. After
// the local reducer runs, its state is written back. A refused write-back is
// dropped silently: the global state moved on and the local change no longer
// has a home. Local effects are mapped back through action.Embed.
func Pullback[LS, LA, LE, GS, GA, GE any](
	local Reducer[LS, LA, LE],
	state optic.Affine[GS, LS],
	action optic.Prism[GA, LA],
	env func(GE) LE,
) Reducer[GS, GA, GE] {
	return func(global *GS, ga GA, genv GE) effect.Effect[GA] {
		la, ok := action.Extract(ga)
		if !ok {
			return effect.None[GA]()
		}
		ls, ok := state.Extract(*global)
		if !ok {
			return effect.None[GA]()
		}
		eff := local(&ls, la, env(genv))
		next, ok := state.Inject(ls, *global)
		if !ok {
			slog.Debug("Reducer.Pullback: write-back refused, dropping local change")
		} else {
			*global = next
		}
		return effect.Map(eff, action.Embed)
	}
}

// PullbackLens is Pullback for a part that always exists.
func PullbackLens[LS, LA, LE, GS, GA, GE any](
	local Reducer[LS, LA, LE],
	state optic.Lens[GS, LS],
	action optic.Prism[GA, LA],
	env func(GE) LE,
) Reducer[GS, GA, GE] {
	return Pullback(local, state.Affine(), action, env)
}

// Same is the environment projection that passes the environment through.
func Same[E any](e E) E { return e }

// Actions is the action prism that passes every action through.
func Actions[A any]() optic.Prism[A, A] {
	return optic.NewPrism(
		func(a A) (A, bool) { return a, true },
		func(a A) A { return a },
	)
}
