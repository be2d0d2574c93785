package tracker

import (
	"errors"
	"fmt"
)

// ValidationError rejects an action before any state change or network call.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

var (
	ErrEmptyName          = errors.New("please enter a name")
	ErrInvalidColor       = errors.New("color must be a #rrggbb hex value")
	ErrLastProject        = errors.New("you must have at least one project")
	ErrProjectNotFound    = errors.New("project not found")
	ErrProjectPending     = errors.New("project is still being created")
	ErrEntryNotFound      = errors.New("time entry not found")
	ErrTimerRunning       = errors.New("a timer is already running")
	ErrTimerIdle          = errors.New("no timer is running")
	ErrTransitionInFlight = errors.New("timer is still starting or stopping")
	ErrNoProfile          = errors.New("no profile available")
)

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err was a client-side rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
