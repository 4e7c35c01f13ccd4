package flow

import (
	"context"
	"strings"

	"github.com/BTreeMap/FieldOps/internal/capability"
	"github.com/BTreeMap/FieldOps/internal/effect"
	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/optic"
)

type signUpEffect = effect.Effect[models.SignUpAction]

func signUp(s *models.SignUp, a models.SignUpAction, env capability.Env) signUpEffect {
	switch step := s.Step.(type) {
	case models.SignUpForm:
		return signUpForm(s, step, a, env)
	case models.SignUpVerification:
		return signUpVerification(s, step, a, env)
	}
	return effect.None[models.SignUpAction]()
}

func signUpForm(s *models.SignUp, form models.SignUpForm, a models.SignUpAction, env capability.Env) signUpEffect {
	switch a := a.(type) {
	case models.SignUpNameChanged:
		form.Name = a.Name
	case models.SignUpEmailChanged:
		form.Email = a.Email
	case models.SignUpPasswordChanged:
		form.Password = a.Password

	case models.SignUpTapped:
		name := strings.TrimSpace(form.Name)
		email := models.Email(strings.TrimSpace(string(form.Email)))
		if form.Submitting || name == "" || email == "" || form.Password == "" {
			return effect.None[models.SignUpAction]()
		}
		form.Name, form.Email, form.Submitting = name, email, true
		s.Step = form
		s.Alert = optic.None[models.Alert]()
		password := form.Password
		return restart(models.IDSigningUp, effect.Run(func(ctx context.Context) models.SignUpAction {
			outcome, err := env.Auth.SignUp(ctx, name, email, password)
			return models.SignUpCompleted{Result: models.ResultOf(outcome, err)}
		}))

	case models.SignUpCompleted:
		if !form.Submitting {
			return effect.None[models.SignUpAction]()
		}
		form.Submitting = false
		if err, failed := a.Result.Failure(); failed {
			s.Alert = optic.Some(models.AlertFor("Sign up failed", err))
			break
		}
		// Accounts that skip verification are moved on by the root reducer.
		s.Step = models.SignUpVerification{Email: form.Email, Password: form.Password}
		return effect.None[models.SignUpAction]()

	default:
		return effect.None[models.SignUpAction]()
	}
	s.Step = form
	return effect.None[models.SignUpAction]()
}

func signUpVerification(s *models.SignUp, v models.SignUpVerification, a models.SignUpAction, env capability.Env) signUpEffect {
	eff := effect.None[models.SignUpAction]()
	switch a := a.(type) {
	case models.VerificationCodeChanged:
		v.Code = models.VerificationCode(strings.TrimSpace(string(a.Code)))

	case models.VerifyTapped:
		if v.Verifying || v.Code == "" {
			return eff
		}
		v.Verifying = true
		s.Alert = optic.None[models.Alert]()
		email, password, code := v.Email, v.Password, v.Code
		eff = restart(models.IDVerifying, effect.Run(func(ctx context.Context) models.SignUpAction {
			key, err := env.Auth.VerifyEmail(ctx, email, password, code)
			return models.EmailVerified{Result: models.ResultOf(key, err)}
		}))

	case models.EmailVerified:
		v.Verifying = false
		if err, failed := a.Result.Failure(); failed {
			v.Code = ""
			s.Alert = optic.Some(models.AlertFor("Verification failed", err))
		}

	case models.ResendCodeTapped:
		if v.Resending {
			return eff
		}
		v.Resending = true
		email := v.Email
		eff = restart(models.IDResendingCode, effect.Run(func(ctx context.Context) models.SignUpAction {
			err := env.Auth.ResendVerificationCode(ctx, email)
			return models.CodeResent{Result: models.ResultOf(struct{}{}, err)}
		}))

	case models.CodeResent:
		v.Resending = false
		if err, failed := a.Result.Failure(); failed {
			s.Alert = optic.Some(models.AlertFor("Could not resend the code", err))
		}

	default:
		return eff
	}
	s.Step = v
	return eff
}
