package control

import "errors"

var (
	// ErrUnknownAction is returned for an action outside the command set.
	ErrUnknownAction = errors.New("control: unknown action")

	// ErrStopped is returned for any action after a stop was requested.
	ErrStopped = errors.New("control: stop already requested")
)
