package sandbox

import (
	"context"
	"fmt"
	"sync"

	"github.com/BTreeMap/FieldOps/internal/models"
	"github.com/BTreeMap/FieldOps/internal/util"
)

type account struct {
	name     string
	password models.Password
	key      models.PublishableKey
	verified bool
	code     models.VerificationCode
}

// Auth is an in-memory account directory.
type Auth struct {
	mu       sync.Mutex
	accounts map[models.Email]*account
	tokens   map[models.PublishableKey]int
	signIns  int
}

// NewAuth returns an empty directory.
func NewAuth() *Auth {
	return &Auth{
		accounts: make(map[models.Email]*account),
		tokens:   make(map[models.PublishableKey]int),
	}
}

// AddAccount registers a verified account.
func (a *Auth) AddAccount(email models.Email, password models.Password, key models.PublishableKey) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[email] = &account{password: password, key: key, verified: true}
}

// Code returns the pending verification code for email.
func (a *Auth) Code(email models.Email) models.VerificationCode {
	a.mu.Lock()
	defer a.mu.Unlock()
	if acc, ok := a.accounts[email]; ok {
		return acc.code
	}
	return ""
}

// SignIns counts SignIn calls.
func (a *Auth) SignIns() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.signIns
}

func (a *Auth) SignIn(ctx context.Context, email models.Email, password models.Password) (models.PublishableKey, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signIns++
	acc, ok := a.accounts[email]
	if !ok || acc.password != password {
		return "", models.DomainFailure(models.CodeInvalidCredentials, "Invalid email or password")
	}
	if !acc.verified {
		return "", models.DomainFailure(models.CodeEmailNotVerified, "Email is not verified")
	}
	return acc.key, nil
}

func (a *Auth) SignUp(ctx context.Context, name string, email models.Email, password models.Password) (models.SignUpOutcome, error) {
	if err := ctx.Err(); err != nil {
		return models.SignUpOutcome{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.accounts[email]; exists {
		return models.SignUpOutcome{}, models.DomainFailure(models.CodeUserExists, "An account with this email already exists")
	}
	a.accounts[email] = &account{
		name:     name,
		password: password,
		key:      models.PublishableKey(util.GeneratePublishableKey()),
		code:     models.VerificationCode(util.GenerateVerificationCode(6)),
	}
	return models.SignUpOutcome{NeedsVerification: true}, nil
}

func (a *Auth) VerifyEmail(ctx context.Context, email models.Email, password models.Password, code models.VerificationCode) (models.PublishableKey, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.accounts[email]
	if !ok || acc.code == "" || acc.code != code {
		return "", models.DomainFailure(models.CodeInvalidVerificationCode, "Invalid verification code")
	}
	acc.verified = true
	acc.code = ""
	return acc.key, nil
}

func (a *Auth) ResendVerificationCode(ctx context.Context, email models.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	acc, ok := a.accounts[email]
	if !ok || acc.verified {
		return models.DomainFailure(models.CodeUnknown, "Nothing to verify")
	}
	acc.code = models.VerificationCode(util.GenerateVerificationCode(6))
	return nil
}

// RefreshToken issues a fresh token. Tokens are "<key>/<driver>/<n>".
func (a *Auth) RefreshToken(ctx context.Context, key models.PublishableKey, driverID models.DriverID) (models.Token, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens[key]++
	return tokenFor(key, driverID, a.tokens[key]), nil
}

// ExpireTokens invalidates every issued token.
func (a *Auth) ExpireTokens() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key := range a.tokens {
		a.tokens[key]++
	}
}

// ValidToken reports whether t is the latest token issued for the credentials.
func (a *Auth) ValidToken(key models.PublishableKey, driverID models.DriverID, t models.Token) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, ok := a.tokens[key]
	return ok && t == tokenFor(key, driverID, n)
}

func tokenFor(key models.PublishableKey, driverID models.DriverID, n int) models.Token {
	return models.Token(fmt.Sprintf("%s/%s/%d", key, driverID, n))
}
