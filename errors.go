package thimble

import (
	"github.com/danpasecinic/thimble/internal/container"
)

type (
	Error     = container.Error
	ErrorCode = container.ErrorCode
)

const (
	ErrCodeUnknown                  = container.ErrCodeUnknown
	ErrCodeResolutionFailed         = container.ErrCodeResolutionFailed
	ErrCodeCircularDependency       = container.ErrCodeCircularDependency
	ErrCodeInvalidRegistration      = container.ErrCodeInvalidRegistration
	ErrCodeTimeoutAcquiringLifetime = container.ErrCodeTimeoutAcquiringLifetime
)

var (
	// ErrResolutionFailed and the other sentinels match any *Error of their
	// code with errors.Is.
	ErrResolutionFailed         = &Error{Code: ErrCodeResolutionFailed}
	ErrCircularDependency       = &Error{Code: ErrCodeCircularDependency}
	ErrInvalidRegistration      = &Error{Code: ErrCodeInvalidRegistration}
	ErrTimeoutAcquiringLifetime = &Error{Code: ErrCodeTimeoutAcquiringLifetime}
)

func IsResolutionFailed(err error) bool {
	return container.IsResolutionFailed(err)
}

func IsCircularDependency(err error) bool {
	return container.IsCircularDependency(err)
}

func IsInvalidRegistration(err error) bool {
	return container.IsInvalidRegistration(err)
}

func IsTimeout(err error) bool {
	return container.IsTimeout(err)
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func errInvalidRegistration(message string, cause error) *Error {
	return newError(ErrCodeInvalidRegistration, message, cause)
}

func errTypeMismatch(want string, got any) *Error {
	e := newError(ErrCodeResolutionFailed, "resolved value is not a "+want, nil)
	if got != nil {
		e.Message += ", got " + typeNameOf(got)
	}
	return e
}
