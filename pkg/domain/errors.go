package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in a pool or sink.
var ErrSessionNotFound = errors.New("session not found")

// ErrPrecondition is matched by every PreconditionError.
var ErrPrecondition = errors.New("precondition violated")

// PreconditionError reports a caller-side contract breach, such as a blank variable name
// or a bulk copy into a list that was never declared. It is not a data condition and the
// render call that triggered it is expected to abort.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, ErrPrecondition, e.Reason)
}

// Is lets errors.Is(err, ErrPrecondition) match.
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

// Precondition builds a PreconditionError for op.
func Precondition(op, format string, args ...any) error {
	return &PreconditionError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
