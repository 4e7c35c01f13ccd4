package flow

import (
	"context"
	"log/slog"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/effect"
	"github.com/BTreeMap/FieldOps/internal/models"
)

// device reduces events coming from the phone itself: connectivity, SDK
// status, permission prompts, foregrounding and alert dismissal.
func device(s *models.AppState, a models.Action, env capability.Env) Effect {
	switch a := a.(type) {
	case models.ReachabilityChanged:
		if next, ok := models.AppReachability.Inject(a.Reachability, *s); ok {
			*s = next
		}

	case models.SDKStatusUpdated:
		return sdkStatus(s, a.Status)

	case models.RequestLocationPermission:
		return fire(func(ctx context.Context) { env.SDK.RequestLocationPermission(ctx) })

	case models.RequestMotionPermission:
		return fire(func(ctx context.Context) { env.SDK.RequestMotionPermission(ctx) })

	case models.RequestLocationAlways:
		op, ok := (*s).(models.Operational)
		if !ok {
			return none()
		}
		op.LocationAlwaysRequested = true
		*s = op
		return fire(func(ctx context.Context) { env.SDK.RequestLocationAlways(ctx) })

	case models.AppBecameActive:
		if _, ok := models.AppMain.Extract(*s); ok {
			return effect.Send[models.Action](models.RefreshRequested{Target: models.RefreshVisitsTarget})
		}

	case models.DismissAlert:
		if op, ok := (*s).(models.Operational); ok {
			op.Flow = clearAlert(op.Flow)
			*s = op
		}
	}
	return none()
}

func sdkStatus(s *models.AppState, status models.SDKStatus) Effect {
	switch st := (*s).(type) {
	case models.Launching:
		if phase, ok := st.Phase.(models.Starting); ok {
			phase.SDK = status
			st.Phase = phase
			*s = st
		}
	case models.Operational:
		st.SDK = status
		if _, ok := st.Flow.(models.Main); ok && status.Locked && status.Reason.DeviceLevel() {
			slog.Warn("Flow.device: tracking blocked on this device", "reason", status.Reason)
			st.Flow = models.NoMotionServices{Reason: status.Reason}
		}
		*s = st
	}
	return none()
}

func fire(work func(ctx context.Context)) Effect {
	return effect.FireAndForget[models.Action](work)
}
