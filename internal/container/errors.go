package container

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danpasecinic/thimble/internal/contract"
	"github.com/danpasecinic/thimble/introspect"
	"github.com/danpasecinic/thimble/lifetime"
)

type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeResolutionFailed
	ErrCodeCircularDependency
	ErrCodeInvalidRegistration
	ErrCodeTimeoutAcquiringLifetime
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:                  "UNKNOWN",
	ErrCodeResolutionFailed:         "RESOLUTION_FAILED",
	ErrCodeCircularDependency:       "CIRCULAR_DEPENDENCY",
	ErrCodeInvalidRegistration:      "INVALID_REGISTRATION",
	ErrCodeTimeoutAcquiringLifetime: "TIMEOUT_ACQUIRING_LIFETIME",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

type Error struct {
	Code    ErrorCode
	Message string
	// Requested is the contract passed to the top-level resolve.
	Requested contract.Contract
	// Failing is the contract whose build failed.
	Failing contract.Contract
	// Chain lists the contracts being built when the failure happened,
	// outermost first.
	Chain []contract.Contract
	Cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if !e.Requested.IsZero() {
		b.WriteString(fmt.Sprintf(" resolving %s:", e.Requested))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if len(e.Chain) > 1 {
		b.WriteString(" (")
		b.WriteString(e.ChainString())
		b.WriteString(")")
	}

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) ChainString() string {
	parts := make([]string, len(e.Chain))
	for i, c := range e.Chain {
		parts[i] = c.String()
	}
	return strings.Join(parts, " -> ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func newError(code ErrorCode, ctx *Context, message string, cause error) *Error {
	e := &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
	if ctx != nil {
		e.Failing = ctx.Contract
		e.Chain = ctx.chain()
	}
	return e
}

func errResolutionFailed(ctx *Context, message string, cause error) *Error {
	return newError(ErrCodeResolutionFailed, ctx, message, cause)
}

func errCircularDependency(ctx *Context) *Error {
	e := newError(ErrCodeCircularDependency, ctx, "circular dependency detected", nil)
	e.Message = "circular dependency detected: " + e.ChainString()
	return e
}

func errInvalidRegistration(ctx *Context, message string, cause error) *Error {
	return newError(ErrCodeInvalidRegistration, ctx, message, cause)
}

// classify turns err into an *Error attributed to ctx unless it already is
// one, in which case it is returned unchanged.
func classify(ctx *Context, message string, err error) error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}

	switch {
	case errors.Is(err, lifetime.ErrTimeout):
		return newError(ErrCodeTimeoutAcquiringLifetime, ctx, message, err)
	case errors.Is(err, introspect.ErrConstraint), errors.Is(err, introspect.ErrInvalidMember):
		return errInvalidRegistration(ctx, message, err)
	default:
		return errResolutionFailed(ctx, message, err)
	}
}

func codeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeUnknown
}

func IsResolutionFailed(err error) bool {
	return codeOf(err) == ErrCodeResolutionFailed
}

func IsCircularDependency(err error) bool {
	return codeOf(err) == ErrCodeCircularDependency
}

func IsInvalidRegistration(err error) bool {
	return codeOf(err) == ErrCodeInvalidRegistration
}

func IsTimeout(err error) bool {
	return codeOf(err) == ErrCodeTimeoutAcquiringLifetime
}
