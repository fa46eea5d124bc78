package script

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownFunction is returned for a call to a name not in the registry.
	ErrUnknownFunction = errors.New("script: unknown function")

	// ErrMissingParen is returned when a call line has no "(".
	ErrMissingParen = errors.New("script: missing '('")

	// ErrUnclosedParen is returned when a "(" has no following ")".
	ErrUnclosedParen = errors.New("script: unclosed '('")

	// ErrNotValueFunction is returned when a binding calls an action instead
	// of a value-producing function.
	ErrNotValueFunction = errors.New("script: binding requires a value function")

	// ErrUnusedValue is returned for a bare call to a value-producing function.
	ErrUnusedValue = errors.New("script: value function called without a binding")

	// ErrBadDirective is returned for a "指定" line without "->".
	ErrBadDirective = errors.New("script: malformed character directive")

	// ErrConcurrentMutation aborts a pass whose program was replaced mid-run.
	ErrConcurrentMutation = errors.New("script: program changed while running")

	// ErrBadArgument is returned when an argument has the wrong type.
	ErrBadArgument = errors.New("script: bad argument")
)

// ParseError locates a per-line parse failure.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v: %s", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
