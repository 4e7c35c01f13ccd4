package flow

import (
	"context"
	"log/slog"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/effect"
	"github.com/BTreeMap/FieldOps/internal/models"
)

type linkEffect = effect.Effect[models.DeepLinkAction]

// deepLinkRace settles an incoming deep link against the settle timer.
//
// A resolved link is held until the timer fires; only then is the SDK
// activated with it. A timer that fires with no link held ends the wait. A nil
// processing value means no link is being handled.
func deepLinkRace(p *models.ProcessingDeepLink, a models.DeepLinkAction, env capability.Env) linkEffect {
	switch a := a.(type) {
	case models.DeepLinkOpened:
		resolve := effect.FireAndForget[models.DeepLinkAction](func(ctx context.Context) {
			env.DeepLinks.ContinueUserActivity(ctx, a.URL)
		})
		if *p != nil {
			return resolve
		}
		*p = models.WaitingForDeepLink{}
		return effect.Merge(restartLinkTimer(env), resolve)

	case models.DeepLinkResolved:
		return resolved(p, a.Link, env)

	case models.DeepLinkTimerFired:
		switch cur := (*p).(type) {
		case nil:
			return effect.Cancel[models.DeepLinkAction](models.IDDeepLinkTimer)
		case models.WaitingForDeepLink:
			slog.Info("Flow.deepLinkRace: no link arrived in time, dropping wait")
			*p = nil
			return effect.Cancel[models.DeepLinkAction](models.IDDeepLinkTimer)
		case models.WaitingForTimer:
			*p = models.WaitingForSDKActivation{Link: cur.Link}
			return effect.Concatenate(
				effect.Cancel[models.DeepLinkAction](models.IDDeepLinkTimer),
				activate(cur.Link, env),
			)
		case models.WaitingForSDKActivation:
			return effect.Cancel[models.DeepLinkAction](models.IDDeepLinkTimer)
		}
	}
	return effect.None[models.DeepLinkAction]()
}

func resolved(p *models.ProcessingDeepLink, link models.DeepLink, env capability.Env) linkEffect {
	switch cur := (*p).(type) {
	case nil:
		*p = models.WaitingForTimer{Link: link}
		return restartLinkTimer(env)
	case models.WaitingForDeepLink, models.WaitingForTimer:
		// Later callbacks replace the candidate; the window keeps running.
		*p = models.WaitingForTimer{Link: link}
	case models.WaitingForSDKActivation:
		switch {
		case cur.Link == link:
			slog.Debug("Flow.deepLinkRace: duplicate link during activation")
		case cur.Link.Key == link.Key:
			*p = models.WaitingForSDKActivation{Link: link}
		default:
			slog.Info("Flow.deepLinkRace: link for another account, restarting wait")
			*p = models.WaitingForTimer{Link: link}
			return effect.Concatenate(
				effect.Cancel[models.DeepLinkAction](models.IDDeepLinkActivation),
				restartLinkTimer(env),
			)
		}
	}
	return effect.None[models.DeepLinkAction]()
}

func activate(link models.DeepLink, env capability.Env) linkEffect {
	return restart(models.IDDeepLinkActivation, effect.Run(func(ctx context.Context) models.DeepLinkAction {
		return models.DeepLinkActivated{Link: link, Status: env.SDK.Activate(ctx, link.Key)}
	}))
}

func restartLinkTimer(env capability.Env) linkEffect {
	return restart(models.IDDeepLinkTimer, effect.Stream(func(ctx context.Context, send func(models.DeepLinkAction)) {
		env.Clock.Every(ctx, env.Window(), func() { send(models.DeepLinkTimerFired{}) })
	}))
}

// restartTimer is restartLinkTimer for the root reducers.
func restartTimer(env capability.Env) Effect {
	return effect.Map(restartLinkTimer(env), func(a models.DeepLinkAction) models.Action { return a })
}
