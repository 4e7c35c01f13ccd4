package flow

import (
	"log/slog"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/optic"
	"github.com/BTreeMap/FieldOps/internal/recovery"
)

// authIDs are the operations owned by the sign-up, sign-in and driver id screens.
var authIDs = []models.CancelID{
	models.IDSigningIn, models.IDSigningUp, models.IDVerifying, models.IDResendingCode, models.IDDriverActivation,
}

// transitions moves between flows. It runs before the flow reducers so they
// only see actions meant for the flow that is current afterwards.
func transitions(s *models.AppState, a models.Action, env capability.Env) Effect {
	op, ok := (*s).(models.Operational)
	if !ok {
		return none()
	}
	next, eff, moved := transition(op, a)
	if moved {
		slog.Debug("Flow.transitions: flow changed",
			"action", models.ActionName(a), "from", models.FlowName(op.Flow), "to", models.FlowName(next.Flow))
		*s = next
	}
	return eff
}

func transition(op models.Operational, a models.Action) (models.Operational, Effect, bool) {
	switch a := a.(type) {
	case models.GoToSignUp:
		email, link, ok := authContext(op.Flow)
		if !ok {
			return op, none(), false
		}
		op.Flow = models.SignUp{Step: models.SignUpForm{Email: email}, DeepLink: link}
		return op, cancelAll(authIDs...), true

	case models.GoToSignIn:
		email, link, ok := authContext(op.Flow)
		if !ok {
			return op, none(), false
		}
		op.Flow = models.SignIn{Status: models.EditingCredentials{Email: email}, DeepLink: link}
		return op, cancelAll(authIDs...), true

	case models.SignedIn:
		f, ok := op.Flow.(models.SignIn)
		if ok {
			_, ok = f.Status.(models.SigningIn)
		}
		key, success := a.Result.Get()
		if !ok || !success {
			return op, none(), false
		}
		op.Flow = models.DriverIDEntry{Key: key, DeepLink: f.DeepLink}
		return op, none(), true

	case models.SignUpCompleted:
		f, ok := op.Flow.(models.SignUp)
		if ok {
			form, isForm := f.Step.(models.SignUpForm)
			ok = isForm && form.Submitting
		}
		outcome, success := a.Result.Get()
		if !ok || !success || outcome.NeedsVerification || outcome.Key == "" {
			return op, none(), false
		}
		op.Flow = models.DriverIDEntry{Key: outcome.Key, DeepLink: f.DeepLink}
		return op, none(), true

	case models.EmailVerified:
		f, ok := op.Flow.(models.SignUp)
		if ok {
			v, isVerification := f.Step.(models.SignUpVerification)
			ok = isVerification && v.Verifying
		}
		key, success := a.Result.Get()
		if !ok || !success {
			return op, none(), false
		}
		op.Flow = models.DriverIDEntry{Key: key, DeepLink: f.DeepLink}
		return op, none(), true

	case models.DriverActivated:
		f, ok := op.Flow.(models.DriverIDEntry)
		if !ok || !f.Activating {
			return op, none(), false
		}
		op.SDK = a.Status
		switch {
		case a.Status.Unlocked():
			m := models.NewMain(f.Key, a.DriverID)
			m.DeepLink = f.DeepLink
			op.Flow = m
		case a.Status.Reason.DeviceLevel():
			op.Flow = models.NoMotionServices{Reason: a.Status.Reason}
		default:
			op.Flow = models.SignIn{Status: models.EditingCredentials{}, Alert: optic.Some(recovery.BadKeyAlert)}
		}
		return op, none(), true

	case models.DeepLinkActivated:
		return linkActivated(op, a)

	case models.SignOut:
		m, ok := op.Flow.(models.Main)
		if !ok {
			return op, none(), false
		}
		var email models.Email
		if p, ok := m.Profile.Get(); ok {
			email = p.Email
		}
		op.Flow = models.SignIn{Status: models.EditingCredentials{Email: email}}
		return op, none(), true
	}
	return op, none(), false
}

// authContext is what a move between sign-up and sign-in carries over.
func authContext(f models.Flow) (models.Email, models.ProcessingDeepLink, bool) {
	switch f := f.(type) {
	case models.FirstRun:
		return "", f.DeepLink, true
	case models.SignUp:
		switch step := f.Step.(type) {
		case models.SignUpForm:
			return step.Email, f.DeepLink, true
		case models.SignUpVerification:
			return step.Email, f.DeepLink, true
		}
	case models.SignIn:
		switch st := f.Status.(type) {
		case models.EditingCredentials:
			return st.Email, f.DeepLink, true
		case models.SigningIn:
			return st.Email, f.DeepLink, true
		}
	}
	return "", nil, false
}

// linkActivated finishes the deep-link race once the SDK answered for the held link.
func linkActivated(op models.Operational, a models.DeepLinkActivated) (models.Operational, Effect, bool) {
	p, _ := processingOf(op.Flow)
	held, ok := p.(models.WaitingForSDKActivation)
	if !ok || held.Link.Key != a.Link.Key {
		slog.Debug("Flow.linkActivated: activation no longer wanted", "flow", models.FlowName(op.Flow))
		return op, none(), false
	}
	link := held.Link
	op.SDK = a.Status

	if a.Status.Locked {
		if a.Status.Reason.DeviceLevel() {
			op.Flow = models.NoMotionServices{Reason: a.Status.Reason}
			return op, cancelAll(authIDs...), true
		}
		slog.Warn("Flow.linkActivated: linked key rejected", "reason", a.Status.Reason)
		f, _ := withProcessing(op.Flow, nil)
		op.Flow = withAlert(f, recovery.BadKeyAlert)
		return op, none(), true
	}

	if m, ok := op.Flow.(models.Main); ok && m.Key == link.Key {
		switch {
		case link.DriverID == "" || link.DriverID == m.DriverID:
			m.DeepLink = nil
		default:
			m = switchDriver(m, link.DriverID)
		}
		op.Flow = m
		return op, none(), true
	}

	if link.DriverID == "" {
		op.Flow = models.DriverIDEntry{Key: link.Key}
	} else {
		op.Flow = models.NewMain(link.Key, link.DriverID)
	}
	return op, cancelAll(authIDs...), true
}

// switchDriver keeps the account-level parts of m and drops what belonged to
// the previous driver.
func switchDriver(m models.Main, driverID models.DriverID) models.Main {
	next := models.NewMain(m.Key, driverID)
	next.Tab = m.Tab
	next.Places = m.Places
	return next
}

func processingOf(f models.Flow) (models.ProcessingDeepLink, bool) {
	switch f := f.(type) {
	case models.FirstRun:
		return f.DeepLink, true
	case models.SignUp:
		return f.DeepLink, true
	case models.SignIn:
		return f.DeepLink, true
	case models.DriverIDEntry:
		return f.DeepLink, true
	case models.Main:
		return f.DeepLink, true
	}
	return nil, false
}

// withProcessing sets the deep-link field of f, reporting false when f has none.
func withProcessing(f models.Flow, p models.ProcessingDeepLink) (models.Flow, bool) {
	switch f := f.(type) {
	case models.FirstRun:
		f.DeepLink = p
		return f, true
	case models.SignUp:
		f.DeepLink = p
		return f, true
	case models.SignIn:
		f.DeepLink = p
		return f, true
	case models.DriverIDEntry:
		f.DeepLink = p
		return f, true
	case models.Main:
		f.DeepLink = p
		return f, true
	}
	return f, false
}

// withAlert shows alert on f. FirstRun has no alert, so a rejected link there
// lands on the sign-in screen.
func withAlert(f models.Flow, alert models.Alert) models.Flow {
	switch f := f.(type) {
	case models.FirstRun:
		return models.SignIn{Status: models.EditingCredentials{}, Alert: optic.Some(alert)}
	case models.SignUp:
		f.Alert = optic.Some(alert)
		return f
	case models.SignIn:
		f.Alert = optic.Some(alert)
		return f
	case models.DriverIDEntry:
		f.Alert = optic.Some(alert)
		return f
	case models.Main:
		f.Alert = optic.Some(alert)
		return f
	}
	return f
}

// clearAlert hides the alert of f, if any.
func clearAlert(f models.Flow) models.Flow {
	switch f := f.(type) {
	case models.SignUp:
		f.Alert = optic.None[models.Alert]()
		return f
	case models.SignIn:
		f.Alert = optic.None[models.Alert]()
		return f
	case models.DriverIDEntry:
		f.Alert = optic.None[models.Alert]()
		return f
	case models.Main:
		f.Alert = optic.None[models.Alert]()
		return f
	}
	return f
}
