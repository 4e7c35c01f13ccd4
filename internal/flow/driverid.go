package flow

import (
	"context"
	"strings"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/effect"
	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/optic"
)

// driverID collects the driver id and activates the SDK with the account key.
// The outcome, DriverActivated, is handled by the root transitions.
func driverID(s *models.DriverIDEntry, a models.DriverIDAction, env capability.Env) effect.Effect[models.DriverIDAction] {
	switch a := a.(type) {
	case models.DriverIDChanged:
		if !s.Activating {
			s.DriverID = a.DriverID
		}

	case models.DriverIDSubmitted:
		id := models.DriverID(strings.TrimSpace(string(s.DriverID)))
		if s.Activating || id == "" {
			return effect.None[models.DriverIDAction]()
		}
		s.DriverID = id
		s.Activating = true
		s.Alert = optic.None[models.Alert]()
		key := s.Key
		return restart(models.IDDriverActivation, effect.Run(func(ctx context.Context) models.DriverIDAction {
			return models.DriverActivated{DriverID: id, Status: env.SDK.Activate(ctx, key)}
		}))
	}
	return effect.None[models.DriverIDAction]()
}
