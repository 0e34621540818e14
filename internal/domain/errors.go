package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTimeout              = errors.New("timeout: no response from receiver")
	ErrPreconditionViolated = errors.New("precondition violated")
	ErrResponseMismatch     = errors.New("response mismatch")
	ErrConnectionLost       = errors.New("connection lost")
)

type Reason string

const (
	ReasonAlreadyOn  Reason = "already on"
	ReasonAlreadyOff Reason = "already off"
	ReasonPowerOff   Reason = "power off, cannot process"
)

// PreconditionError reports that the receiver's power state rules out the
// requested command. No wire code was written for the command itself.
type PreconditionError struct {
	Reason Reason
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%v: %s", ErrPreconditionViolated, e.Reason)
}

func (e *PreconditionError) Unwrap() error {
	return ErrPreconditionViolated
}

// MismatchError reports a reply that does not confirm the requested change.
type MismatchError struct {
	Expected string
	Got      string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%v: expected %q, got %q", ErrResponseMismatch, e.Expected, e.Got)
}

func (e *MismatchError) Unwrap() error {
	return ErrResponseMismatch
}

// IsReason reports whether err is a precondition failure with the given reason.
func IsReason(err error, reason Reason) bool {
	var pe *PreconditionError
	return errors.As(err, &pe) && pe.Reason == reason
}
