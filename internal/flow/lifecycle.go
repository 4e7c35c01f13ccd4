package flow

import (
	"context"
	"log/slog"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/effect"
	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/optic"
	"github.com/BTreeMap/FieldOps/internal/recovery"
)

// lifecycle drives Created through the launch phases into Operational.
func lifecycle(s *models.AppState, a models.Action, env capability.Env) Effect {
	switch a := a.(type) {
	case models.OSFinishedLaunching:
		if _, ok := (*s).(models.Created); !ok {
			slog.Debug("Flow.lifecycle: already launched, ignoring", "state", models.StateName(*s))
			return none()
		}
		*s = models.Launching{Phase: models.RestoringState{}, Reachability: models.ReachabilityUnknown}
		return launchEffects(env)

	case models.TrackabilityChecked:
		return restoring(s, env, func(r *models.RestoringState) {
			r.Checked = true
			r.Trackability = a.Trackability
		})

	case models.StateRestored:
		return restoring(s, env, func(r *models.RestoringState) {
			r.Loaded = true
			r.Storage = a.Storage
		})

	case models.LaunchSDKActivated:
		l, ok := (*s).(models.Launching)
		if !ok {
			return none()
		}
		phase, ok := l.Phase.(models.LaunchingSDK)
		if !ok {
			return none()
		}
		l.Phase = models.Starting{Storage: optic.Some(phase.Storage), SDK: a.Status}
		*s = l
		return startingEffects(env)

	case models.StartupFinished:
		return finishStartup(s, env)

	case models.DeepLinkResolved:
		if l, ok := (*s).(models.Launching); ok {
			slog.Debug("Flow.lifecycle: holding deep link until launch completes")
			l.PendingDeepLink = optic.Some(a.Link)
			*s = l
		}
		return none()

	case models.DeepLinkOpened:
		if _, ok := (*s).(models.Launching); ok {
			return continueActivity(env, a.URL)
		}
	}
	return none()
}

func launchEffects(env capability.Env) Effect {
	return effect.Merge(
		effect.Stream(func(ctx context.Context, send func(models.Action)) {
			env.Network.Subscribe(ctx, func(r models.Reachability) {
				send(models.ReachabilityChanged{Reachability: r})
			})
		}).Cancellable(models.IDReachability),
		effect.Stream(func(ctx context.Context, send func(models.Action)) {
			env.DeepLinks.Subscribe(ctx, func(link models.DeepLink) {
				send(models.DeepLinkResolved{Link: link})
			})
		}).Cancellable(models.IDDeepLinks),
		effect.Run(func(ctx context.Context) models.Action {
			return models.TrackabilityChecked{Trackability: env.SDK.CheckTrackability(ctx)}
		}),
		effect.Run(func(ctx context.Context) models.Action {
			storage, err := env.Persistence.LoadState(ctx)
			if err != nil {
				slog.Warn("Flow.lifecycle: could not load saved state, starting fresh", "error", err)
				return models.StateRestored{Storage: optic.None[models.StorageState]()}
			}
			return models.StateRestored{Storage: storage}
		}),
	)
}

// restoring applies update to the restoring phase and leaves it once both the
// trackability check and the snapshot load have reported.
func restoring(s *models.AppState, env capability.Env, update func(*models.RestoringState)) Effect {
	l, ok := (*s).(models.Launching)
	if !ok {
		return none()
	}
	r, ok := l.Phase.(models.RestoringState)
	if !ok {
		return none()
	}
	update(&r)
	l.Phase = r
	*s = l
	if !r.Ready() {
		return none()
	}

	if !r.Trackability.Trackable {
		reason := r.Trackability.Reason
		if !reason.DeviceLevel() {
			reason = models.LockNoMotionServices
		}
		slog.Info("Flow.lifecycle: device cannot be tracked", "reason", reason)
		*s = models.Operational{
			Flow:         models.NoMotionServices{Reason: reason},
			SDK:          models.SDKStatus{Locked: true, Reason: reason},
			Reachability: l.Reachability,
		}
		return none()
	}

	if storage, ok := r.Storage.Get(); ok {
		if m, ok := storage.Flow.(models.MainStorage); ok && m.Key != "" {
			l.Phase = models.LaunchingSDK{Storage: storage}
			*s = l
			key := m.Key
			return effect.Run(func(ctx context.Context) models.Action {
				return models.LaunchSDKActivated{Status: env.SDK.Activate(ctx, key)}
			}).Cancellable(models.IDLaunchActivation)
		}
	}
	l.Phase = models.Starting{Storage: r.Storage, SDK: models.SDKStatus{Locked: true}}
	*s = l
	return startingEffects(env)
}

func startingEffects(env capability.Env) Effect {
	return effect.Merge(
		effect.Stream(func(ctx context.Context, send func(models.Action)) {
			env.SDK.SubscribeToStatusUpdates(ctx, func(st models.SDKStatus) {
				send(models.SDKStatusUpdated{Status: st})
			})
		}).Cancellable(models.IDSDKStatus),
		effect.Send[models.Action](models.StartupFinished{}),
	)
}

func finishStartup(s *models.AppState, env capability.Env) Effect {
	l, ok := (*s).(models.Launching)
	if !ok {
		return none()
	}
	st, ok := l.Phase.(models.Starting)
	if !ok {
		return none()
	}
	op := models.Operational{
		Flow:         recovery.Restore(st.Storage, st.SDK),
		SDK:          st.SDK,
		Reachability: l.Reachability,
	}
	if storage, ok := st.Storage.Get(); ok {
		op.LocationAlwaysRequested = storage.LocationAlwaysRequested
	}
	slog.Info("Flow.lifecycle: launch finished", "flow", models.FlowName(op.Flow))

	eff := none()
	if link, ok := l.PendingDeepLink.Get(); ok {
		if f, attached := withProcessing(op.Flow, models.WaitingForTimer{Link: link}); attached {
			op.Flow = f
			eff = restartTimer(env)
		}
	}
	*s = op
	return eff
}

func continueActivity(env capability.Env, url string) Effect {
	return effect.FireAndForget[models.Action](func(ctx context.Context) {
		env.DeepLinks.ContinueUserActivity(ctx, url)
	})
}
