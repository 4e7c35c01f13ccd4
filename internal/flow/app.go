// Package flow holds the FieldOps feature reducers and composes them into the
// single application reducer.
//
// Each screen is reduced by its own narrow reducer over its own Flow variant
// and action group, lifted into AppState with reducer.Pullback. Moves between
// screens, the launch sequence and device events need the whole AppState and
// are reduced at the root. The deep-link race is one reducer pulled back into
// every flow that carries a ProcessingDeepLink.
package flow

import (
	"context"
	"log/slog"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/effect"
	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/recovery"
	"github.com/BTreeMap/FieldOps/internal/reducer"
)

// AppReducer is the reducer over the whole application.
type AppReducer = reducer.Reducer[models.AppState, models.Action, capability.Env]

// Effect is the effect type of AppReducer.
type Effect = effect.Effect[models.Action]

// App returns the complete application reducer: every feature, the main
// session hooks and persistence.
func App() AppReducer {
	return recovery.Persisting(Session(Core()))
}

// Core combines the feature reducers without any cross-cutting hooks.
func Core() AppReducer {
	reducers := []AppReducer{
		AppReducer(lifecycle),
		AppReducer(device),
		AppReducer(transitions),
		reducer.Pullback(
			reducer.Reducer[models.SignUp, models.SignUpAction, capability.Env](signUp),
			models.AppSignUp, models.SignUpActions, reducer.Same[capability.Env]),
		reducer.Pullback(
			reducer.Reducer[models.SignIn, models.SignInAction, capability.Env](signIn),
			models.AppSignIn, models.SignInActions, reducer.Same[capability.Env]),
		reducer.Pullback(
			reducer.Reducer[models.DriverIDEntry, models.DriverIDAction, capability.Env](driverID),
			models.AppDriverIDEntry, models.DriverIDActions, reducer.Same[capability.Env]),
		reducer.Pullback(
			reducer.Reducer[models.Main, models.MainAction, capability.Env](mainFlow),
			models.AppMain, models.MainActions, reducer.Same[capability.Env]),
	}
	race := reducer.Reducer[models.ProcessingDeepLink, models.DeepLinkAction, capability.Env](deepLinkRace)
	for _, field := range models.AppFlowDeepLinks {
		reducers = append(reducers, reducer.Pullback(race, field, models.DeepLinkActions, reducer.Same[capability.Env]))
	}
	return reducer.Combine(reducers...)
}

// mainIdentity is who the main flow is working for, if it is active.
type mainIdentity struct {
	Key      models.PublishableKey
	DriverID models.DriverID
	Active   bool
}

func identityOf(s models.AppState) mainIdentity {
	m, ok := models.AppMain.Extract(s)
	if !ok {
		return mainIdentity{}
	}
	return mainIdentity{Key: m.Key, DriverID: m.DriverID, Active: true}
}

// Session starts and stops the per-driver work of the main flow whenever the
// driver it serves changes.
func Session(r AppReducer) AppReducer {
	return reducer.OnChange(r, identityOf, mainSession)
}

func mainSession(old, next mainIdentity, env capability.Env) Effect {
	var effects []Effect
	if old.Active {
		slog.Debug("Flow.mainSession: leaving driver session", "driver_id", old.DriverID)
		effects = append(effects, cancelAll(models.MainIDs...))
		if !next.Active {
			effects = append(effects, effect.FireAndForget[models.Action](func(ctx context.Context) {
				env.SDK.StopTracking(ctx)
				env.Diagnostics.UpdateUser(ctx, "")
			}))
		}
	}
	if next.Active {
		slog.Info("Flow.mainSession: starting driver session", "driver_id", next.DriverID)
		driverID := next.DriverID
		effects = append(effects, effect.FireAndForget[models.Action](func(ctx context.Context) {
			env.SDK.SetDriverID(ctx, driverID)
			env.SDK.StartTracking(ctx)
			env.Diagnostics.UpdateUser(ctx, string(driverID))
		}))
		for _, t := range models.RefreshTargets {
			effects = append(effects, effect.Send[models.Action](models.RefreshRequested{Target: t}))
		}
	}
	// Cancels are applied and sends collected in order, so a merge keeps the
	// refreshes synchronous.
	return effect.Merge(effects...)
}

func none() Effect { return effect.None[models.Action]() }

func cancelAll(ids ...models.CancelID) Effect {
	out := make([]effect.ID, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return effect.CancelAll[models.Action](out...)
}

// restart cancels whatever runs under id and then starts e under id.
func restart[A any](id models.CancelID, e effect.Effect[A]) effect.Effect[A] {
	return effect.Concatenate(effect.Cancel[A](id), e.Cancellable(id))
}
