// Package services holds the account, session and certificate rules that sit
// between the HTTP handlers and the repositories.
package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation                 = errors.New("validation failed")
	ErrDuplicateEmail             = errors.New("email already exists")
	ErrDuplicateCertificateNumber = errors.New("certificate number already exists")
	ErrInvalidCredentials         = errors.New("invalid credentials")
	ErrInvalidToken               = errors.New("invalid token")
	ErrNotFound                   = errors.New("not found")
	ErrForbidden                  = errors.New("forbidden")
)

// InvalidTokenError keeps the verification library's message as its own
// while matching ErrInvalidToken.
type InvalidTokenError struct {
	Cause error
}

func (e *InvalidTokenError) Error() string {
	return e.Cause.Error()
}

func (e *InvalidTokenError) Is(target error) bool {
	return target == ErrInvalidToken
}

func (e *InvalidTokenError) Unwrap() error {
	return e.Cause
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
