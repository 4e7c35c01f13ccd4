package flow

import (
	"context"
	"strings"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/effect"
	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/optic"
)

func signIn(s *models.SignIn, a models.SignInAction, env capability.Env) effect.Effect[models.SignInAction] {
	switch a := a.(type) {
	case models.SignInEmailChanged:
		if st, ok := s.Status.(models.EditingCredentials); ok {
			st.Email = a.Email
			s.Status = st
		}

	case models.SignInPasswordChanged:
		if st, ok := s.Status.(models.EditingCredentials); ok {
			st.Password = a.Password
			s.Status = st
		}

	case models.SignInTapped:
		st, ok := s.Status.(models.EditingCredentials)
		if !ok {
			return effect.None[models.SignInAction]()
		}
		email := models.Email(strings.TrimSpace(string(st.Email)))
		if email == "" || st.Password == "" {
			return effect.None[models.SignInAction]()
		}
		password := st.Password
		s.Status = models.SigningIn{Email: email, Password: password}
		s.Alert = optic.None[models.Alert]()
		return restart(models.IDSigningIn, effect.Run(func(ctx context.Context) models.SignInAction {
			key, err := env.Auth.SignIn(ctx, email, password)
			return models.SignedIn{Result: models.ResultOf(key, err)}
		}))

	case models.CancelSignIn:
		if st, ok := s.Status.(models.SigningIn); ok {
			s.Status = models.EditingCredentials{Email: st.Email, Password: st.Password}
			return effect.Cancel[models.SignInAction](models.IDSigningIn)
		}

	case models.SignedIn:
		st, ok := s.Status.(models.SigningIn)
		if !ok {
			return effect.None[models.SignInAction]()
		}
		if err, failed := a.Result.Failure(); failed {
			s.Status = models.EditingCredentials{Email: st.Email, Password: st.Password}
			s.Alert = optic.Some(models.AlertFor("Sign in failed", err))
		}
	}
	return effect.None[models.SignInAction]()
}
