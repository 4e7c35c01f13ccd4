package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/BTreeMap/FieldOps/internal/optic"
)

// ErrorKind classifies an APIError.
type ErrorKind string

// Error kinds.
const (
	ErrorNetwork ErrorKind = "network"
	ErrorServer  ErrorKind = "server"
	ErrorParsing ErrorKind = "parsing"
	ErrorDomain  ErrorKind = "domain"
)

// NetworkReason refines a network error.
type NetworkReason string

// Network reasons. Timeout, offline and cancelled are transient.
const (
	NetworkTimeout   NetworkReason = "timeout"
	NetworkOffline   NetworkReason = "offline"
	NetworkCancelled NetworkReason = "cancelled"
	NetworkOther     NetworkReason = "other"
)

// DomainCode names a business-level failure.
type DomainCode string

// Domain codes.
const (
	CodeInvalidCredentials      DomainCode = "invalid_credentials"
	CodeEmailNotVerified        DomainCode = "email_not_verified"
	CodeUserExists              DomainCode = "user_exists"
	CodeInvalidVerificationCode DomainCode = "invalid_verification_code"
	CodeTokenExpired            DomainCode = "token_expired"
	CodeOrderNotFound           DomainCode = "order_not_found"
	CodeUnknown                 DomainCode = "unknown"
)

// APIError is the typed failure every capability call can return.
type APIError struct {
	Kind    ErrorKind     `json:"kind"`
	Network NetworkReason `json:"network,omitempty"`
	Status  int           `json:"status,omitempty"`
	Code    DomainCode    `json:"code,omitempty"`
	Message string        `json:"message,omitempty"`
}

func (e APIError) Error() string {
	switch e.Kind {
	case ErrorNetwork:
		return fmt.Sprintf("network error (%s)", e.Network)
	case ErrorServer:
		if e.Message != "" {
			return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
		}
		return fmt.Sprintf("server error %d", e.Status)
	case ErrorParsing:
		return fmt.Sprintf("unexpected response: %s", e.Message)
	case ErrorDomain:
		if e.Message != "" {
			return e.Message
		}
		return string(e.Code)
	}
	return "unknown error"
}

// Transient reports whether the error is expected connectivity noise.
func (e APIError) Transient() bool {
	if e.Kind != ErrorNetwork {
		return false
	}
	switch e.Network {
	case NetworkTimeout, NetworkOffline, NetworkCancelled:
		return true
	}
	return false
}

// TokenExpired reports whether a silent re-authentication could fix the error.
func (e APIError) TokenExpired() bool {
	return e.Kind == ErrorDomain && e.Code == CodeTokenExpired
}

// NetworkFailure builds a network error.
func NetworkFailure(reason NetworkReason) APIError {
	return APIError{Kind: ErrorNetwork, Network: reason}
}

// ServerFailure builds a server error.
func ServerFailure(status int, message string) APIError {
	return APIError{Kind: ErrorServer, Status: status, Message: message}
}

// ParsingFailure builds a parsing error.
func ParsingFailure(message string) APIError {
	return APIError{Kind: ErrorParsing, Message: message}
}

// DomainFailure builds a domain error.
func DomainFailure(code DomainCode, message string) APIError {
	return APIError{Kind: ErrorDomain, Code: code, Message: message}
}

// AsAPIError classifies any error. Context errors map to transient network
// failures; anything unrecognised is a parsing failure so it gets reported.
func AsAPIError(err error) APIError {
	var apiErr APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, context.Canceled):
		return NetworkFailure(NetworkCancelled)
	case errors.Is(err, context.DeadlineExceeded):
		return NetworkFailure(NetworkTimeout)
	}
	return ParsingFailure(err.Error())
}

// Result is the outcome of a capability call carried inside an action.
type Result[T any] = optic.Either[APIError, T]

// Success wraps a value.
func Success[T any](v T) Result[T] { return optic.Right[APIError](v) }

// Failure wraps an error.
func Failure[T any](err APIError) Result[T] { return optic.Left[APIError, T](err) }

// ResultOf turns a Go (value, error) pair into a Result.
func ResultOf[T any](v T, err error) Result[T] {
	if err != nil {
		return Failure[T](AsAPIError(err))
	}
	return Success(v)
}
