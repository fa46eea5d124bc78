package gameloop

import "errors"

var (
	// ErrRecoveryExhausted is returned when a major reconnect does not reach
	// a hall within recovery.timeout. It aborts the run.
	ErrRecoveryExhausted = errors.New("gameloop: recovery exhausted")

	// errStopped unwinds a cycle after RequestStop. Run maps it to nil.
	errStopped = errors.New("gameloop: stop requested")
)
