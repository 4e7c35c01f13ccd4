// Package diagnostics reports what the FieldOps state machine does to an
// external diagnostics sink.
//
// Middleware wraps the application reducer. For every action it records a
// breadcrumb holding the encoded action and a line-oriented diff of the
// state, and it captures an incident for actions that carry a reportable
// failure.
package diagnostics

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/effect"
	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/reducer"
)

// BreadcrumbKind is the kind of the breadcrumbs written by Middleware.
const BreadcrumbKind = "action"

type appReducer = reducer.Reducer[models.AppState, models.Action, capability.Env]

// Middleware wraps r so every reduced action is reported to env.Diagnostics.
// Reporting runs as a fire-and-forget effect after the effects of r.
func Middleware(r appReducer) appReducer {
	return func(s *models.AppState, a models.Action, env capability.Env) effect.Effect[models.Action] {
		before := *s
		eff := r(s, a, env)
		if env.Diagnostics == nil {
			return eff
		}

		at := now(env)
		crumb := NewBreadcrumb(a, Diff(before, *s), at)
		incident, capture := IncidentFor(a, at)
		sink := env.Diagnostics
		return effect.Merge(eff, effect.FireAndForget[models.Action](func(ctx context.Context) {
			sink.AddBreadcrumb(ctx, crumb)
			if capture {
				sink.Capture(ctx, incident)
			}
		}))
	}
}

func now(env capability.Env) time.Time {
	if env.Clock == nil {
		return time.Now()
	}
	return env.Clock.Now()
}

// NewBreadcrumb describes one reduced action.
func NewBreadcrumb(a models.Action, changes []Change, at time.Time) capability.Breadcrumb {
	lines := make([]string, len(changes))
	for i, c := range changes {
		lines[i] = c.String()
	}
	return capability.Breadcrumb{
		ID:      uuid.NewString(),
		Kind:    BreadcrumbKind,
		Message: models.ActionName(a),
		Data: map[string]string{
			"action": EncodeAction(a),
			"diff":   strings.Join(lines, "\n"),
		},
		Time: at,
	}
}

// IncidentFor returns the incident to capture for a, if any.
func IncidentFor(a models.Action, at time.Time) (capability.Incident, bool) {
	f, ok := a.(models.Failing)
	if !ok {
		return capability.Incident{}, false
	}
	err, failed := f.Failed()
	if !failed || !Reportable(err) {
		return capability.Incident{}, false
	}
	name := models.ActionName(a)
	return capability.Incident{
		ID:      uuid.NewString(),
		Message: name + ": " + err.Error(),
		Error:   err,
		Action:  name,
		Time:    at,
	}, true
}

// Reportable reports whether err deserves an incident. Network, server and
// parsing failures do, except for connectivity noise. Domain failures are
// answers the user acts on, not faults.
func Reportable(err models.APIError) bool {
	switch err.Kind {
	case models.ErrorNetwork, models.ErrorServer, models.ErrorParsing:
		return !err.Transient()
	}
	return false
}
