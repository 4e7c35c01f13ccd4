package flow

import (
	"context"
	"log/slog"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/effect"
	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/optic"
)

type mainEffect = effect.Effect[models.MainAction]

func noMain() mainEffect { return effect.None[models.MainAction]() }

// mainFlow reduces the signed-in screens: the four data tabs, orders and places.
func mainFlow(m *models.Main, a models.MainAction, env capability.Env) mainEffect {
	switch a := a.(type) {
	case models.RefreshRequested:
		return refresh(m, a.Target, env)

	case models.VisitsUpdated:
		return refreshed(m, models.RefreshVisitsTarget, a.Result.Failure, env, func() {
			visits, _ := a.Result.Get()
			m.Visits = visits
			if id, ok := m.SelectedVisit.Get(); ok {
				if _, found := models.VisitByID(id).Extract(visits); !found {
					m.SelectedVisit = optic.None[string]()
				}
			}
		})
	case models.HistoryUpdated:
		return refreshed(m, models.RefreshHistoryTarget, a.Result.Failure, env, func() {
			h, _ := a.Result.Get()
			m.History = optic.Some(h)
		})
	case models.PlacesUpdated:
		return refreshed(m, models.RefreshPlacesTarget, a.Result.Failure, env, func() {
			m.Places, _ = a.Result.Get()
		})
	case models.ProfileUpdated:
		return refreshed(m, models.RefreshProfileTarget, a.Result.Failure, env, func() {
			p, _ := a.Result.Get()
			m.Profile = optic.Some(p)
		})

	case models.TokenRefreshed:
		return tokenRefreshed(m, a, env)

	case models.TabSelected:
		if !a.Tab.Valid() {
			return noMain()
		}
		m.Tab = a.Tab
		return refresh(m, models.RefreshTarget(a.Tab), env)

	case models.VisitSelected:
		if _, ok := models.VisitByID(a.VisitID).Extract(m.Visits); ok {
			m.SelectedVisit = optic.Some(a.VisitID)
		}
	case models.VisitDeselected:
		m.SelectedVisit = optic.None[string]()

	case models.CompleteOrder:
		return startOrder(m, a.VisitID, a.OrderID, models.OrderStatusCompleting, env,
			func(ctx context.Context, c capability.Credentials) models.MainAction {
				err := env.Remote.CompleteOrder(ctx, c, a.VisitID, a.OrderID)
				return models.OrderCompleted{VisitID: a.VisitID, OrderID: a.OrderID, Result: models.ResultOf(struct{}{}, err)}
			})
	case models.OrderCompleted:
		return finishOrder(m, a.VisitID, a.OrderID, a.Result, models.OrderStatusCompleting, models.OrderStatusCompleted, models.GeotagOrderCompleted, env)

	case models.CancelOrder:
		return startOrder(m, a.VisitID, a.OrderID, models.OrderStatusCancelling, env,
			func(ctx context.Context, c capability.Credentials) models.MainAction {
				err := env.Remote.CancelOrder(ctx, c, a.VisitID, a.OrderID)
				return models.OrderCancelled{VisitID: a.VisitID, OrderID: a.OrderID, Result: models.ResultOf(struct{}{}, err)}
			})
	case models.OrderCancelled:
		return finishOrder(m, a.VisitID, a.OrderID, a.Result, models.OrderStatusCancelling, models.OrderStatusCancelled, models.GeotagOrderCancelled, env)

	case models.CreatePlace:
		if m.CreatingPlace {
			return noMain()
		}
		m.CreatingPlace = true
		c, place := credentials(*m), a.Place
		return restart(models.IDCreatingPlace, effect.Run(func(ctx context.Context) models.MainAction {
			created, err := env.Remote.CreatePlace(ctx, c, place)
			return models.PlaceCreated{Result: models.ResultOf(created, err)}
		}))
	case models.PlaceCreated:
		m.CreatingPlace = false
		if err, failed := a.Result.Failure(); failed {
			m.Alert = optic.Some(models.AlertFor("Could not save the place", err))
			return noMain()
		}
		place, _ := a.Result.Get()
		m.Places = append(append([]models.Place(nil), m.Places...), place)
	}
	return noMain()
}

func credentials(m models.Main) capability.Credentials {
	return capability.Credentials{Key: m.Key, DriverID: m.DriverID, Token: m.Token.OrElse("")}
}

// refresh starts loading t. Without a token the request waits for a silent
// re-authentication.
func refresh(m *models.Main, t models.RefreshTarget, env capability.Env) mainEffect {
	m.Refreshing = m.Refreshing.With(t, true)
	if _, ok := m.Token.Get(); !ok {
		m.RetryAfterReauth = m.RetryAfterReauth.With(t, true)
		return reauthenticate(m, env)
	}
	return restart(models.RefreshID(t), fetch(t, credentials(*m), env))
}

func fetch(t models.RefreshTarget, c capability.Credentials, env capability.Env) mainEffect {
	return effect.Run(func(ctx context.Context) models.MainAction {
		switch t {
		case models.RefreshHistoryTarget:
			h, err := env.Remote.History(ctx, c)
			return models.HistoryUpdated{Result: models.ResultOf(h, err)}
		case models.RefreshPlacesTarget:
			p, err := env.Remote.Places(ctx, c)
			return models.PlacesUpdated{Result: models.ResultOf(p, err)}
		case models.RefreshProfileTarget:
			p, err := env.Remote.Profile(ctx, c)
			return models.ProfileUpdated{Result: models.ResultOf(p, err)}
		default:
			v, err := env.Remote.Visits(ctx, c)
			return models.VisitsUpdated{Result: models.ResultOf(v, err)}
		}
	})
}

func reauthenticate(m *models.Main, env capability.Env) mainEffect {
	if m.Reauthenticating {
		return noMain()
	}
	m.Reauthenticating = true
	key, driverID := m.Key, m.DriverID
	return restart(models.IDReauthenticating, effect.Run(func(ctx context.Context) models.MainAction {
		token, err := env.Auth.RefreshToken(ctx, key, driverID)
		return models.TokenRefreshed{Result: models.ResultOf(token, err)}
	}))
}

// refreshed records the outcome of a refresh of t. apply stores a success.
func refreshed(m *models.Main, t models.RefreshTarget, failure func() (models.APIError, bool), env capability.Env, apply func()) mainEffect {
	m.Refreshing = m.Refreshing.With(t, false)
	err, failed := failure()
	if !failed {
		m.Reissued = m.Reissued.With(t, false)
		apply()
		return noMain()
	}
	if err.TokenExpired() {
		if m.Reissued.Has(t) {
			slog.Warn("Flow.mainFlow: token rejected right after re-authentication", "target", t)
			m.Reissued = m.Reissued.With(t, false)
			m.Alert = optic.Some(models.AlertFor("Session expired", err))
			return noMain()
		}
		slog.Info("Flow.mainFlow: token expired, re-authenticating", "target", t)
		m.Token = optic.None[models.Token]()
		return refresh(m, t, env)
	}
	if !err.Transient() {
		m.Alert = optic.Some(models.AlertFor("Could not load "+string(t), err))
	}
	return noMain()
}

func tokenRefreshed(m *models.Main, a models.TokenRefreshed, env capability.Env) mainEffect {
	m.Reauthenticating = false
	pending := m.RetryAfterReauth
	m.RetryAfterReauth = models.RefreshSet{}

	token, ok := a.Result.Get()
	if !ok {
		err, _ := a.Result.Failure()
		for _, t := range models.RefreshTargets {
			if pending.Has(t) {
				m.Refreshing = m.Refreshing.With(t, false)
			}
		}
		if !err.Transient() {
			m.Alert = optic.Some(models.AlertFor("Session expired", err))
		}
		return noMain()
	}

	m.Token = optic.Some(token)
	var effects []mainEffect
	for _, t := range models.RefreshTargets {
		if pending.Has(t) {
			m.Reissued = m.Reissued.With(t, true)
			effects = append(effects, refresh(m, t, env))
		}
	}
	return effect.Merge(effects...)
}

func startOrder(m *models.Main, visitID, orderID string, busy models.OrderStatus, env capability.Env,
	call func(ctx context.Context, c capability.Credentials) models.MainAction) mainEffect {
	order := models.MainOrder(visitID, orderID)
	current, ok := order.Extract(*m)
	if !ok || current.Status != models.OrderStatusPending {
		slog.Debug("Flow.mainFlow: order not actionable", "visit_id", visitID, "order_id", orderID)
		return noMain()
	}
	current.Status = busy
	if next, ok := order.Inject(current, *m); ok {
		*m = next
	}
	c := credentials(*m)
	id := models.OrderOperationID{VisitID: visitID, OrderID: orderID}
	return effect.Concatenate(
		effect.Cancel[models.MainAction](id),
		effect.Run(func(ctx context.Context) models.MainAction { return call(ctx, c) }).Cancellable(id),
	)
}

func finishOrder(m *models.Main, visitID, orderID string, result models.Result[struct{}],
	busy, done models.OrderStatus, tag models.GeotagKind, env capability.Env) mainEffect {
	order := models.MainOrder(visitID, orderID)
	current, ok := order.Extract(*m)
	if !ok || current.Status != busy {
		return noMain()
	}
	eff := noMain()
	if err, failed := result.Failure(); failed {
		current.Status = models.OrderStatusPending
		m.Alert = optic.Some(models.AlertFor("Could not update the order", err))
	} else {
		current.Status = done
		geotag := models.Geotag{Kind: tag, VisitID: visitID, OrderID: orderID}
		eff = effect.FireAndForget[models.MainAction](func(ctx context.Context) {
			env.SDK.AddGeotag(ctx, geotag)
		})
	}
	if next, ok := order.Inject(current, *m); ok {
		*m = next
	}
	return eff
}
