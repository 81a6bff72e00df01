package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is not permitted from the current state
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned for a state outside the lifecycle
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when every guarded transition refuses
	ErrGuardFailed = errors.New("guard condition failed")
)
