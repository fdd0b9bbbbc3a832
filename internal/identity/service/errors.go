package service

import (
	"errors"
	"fmt"
)

// Fault says which side of the exchange caused a failure.
type Fault int

const (
	FaultClient Fault = iota
	FaultServer
)

func (f Fault) String() string {
	if f == FaultServer {
		return "server"
	}
	return "client"
}

// Error is a credential lifecycle failure. Reason is safe to show to the
// caller; Err keeps the underlying cause for logs.
type Error struct {
	Code   string
	Reason string
	Fault  Fault
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Reason, e.Err)
	}
	return e.Code + ": " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so every reason variant matches its kind's sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

const (
	CodeDuplicateEmail        = "duplicate_email"
	CodeInvalidCredentials    = "invalid_credentials"
	CodeTokenNotFound         = "token_not_found"
	CodeTokenExpired          = "token_expired"
	CodeInvalidPassword       = "invalid_password"
	CodeInfrastructureFailure = "infrastructure_failure"
)

var (
	ErrDuplicateEmail     = &Error{Code: CodeDuplicateEmail, Reason: "Email already exists !", Fault: FaultClient}
	ErrInvalidCredentials = &Error{Code: CodeInvalidCredentials, Reason: "Invalid login credentials", Fault: FaultClient}
	ErrUnknownEmail       = &Error{Code: CodeInvalidCredentials, Reason: "Invalid email", Fault: FaultClient}

	ErrTokenNotFound             = &Error{Code: CodeTokenNotFound, Reason: "User not found", Fault: FaultClient}
	ErrVerificationTokenNotFound = &Error{Code: CodeTokenNotFound, Reason: "User not found.", Fault: FaultClient}
	ErrTokenExpired              = &Error{Code: CodeTokenExpired, Reason: "Token expired", Fault: FaultClient}

	ErrPasswordTooLong = &Error{Code: CodeInvalidPassword, Reason: "Password must be at most 72 bytes", Fault: FaultClient}

	ErrInfrastructure = &Error{Code: CodeInfrastructureFailure, Reason: "internal server error", Fault: FaultServer}
)

// infrastructure wraps err as a server fault. Errors that are already
// lifecycle errors pass through unchanged.
func infrastructure(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{
		Code:   CodeInfrastructureFailure,
		Reason: ErrInfrastructure.Reason,
		Fault:  FaultServer,
		Err:    fmt.Errorf("%s: %w", op, err),
	}
}

// ReasonOf returns the caller-safe reason for err.
func ReasonOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Reason
	}
	return ErrInfrastructure.Reason
}

// FaultOf classifies err. Anything that is not a lifecycle error is a
// server fault.
func FaultOf(err error) Fault {
	var se *Error
	if errors.As(err, &se) {
		return se.Fault
	}
	return FaultServer
}
