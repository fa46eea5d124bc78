package worker

import (
	"context"
	"errors"
	"fmt"
)

// Suspender freezes and thaws whatever executes the workers' input.
type Suspender interface {
	Suspend(ctx context.Context) error
	Resume(ctx context.Context) error
}

// GateSuspender pauses in-process workers by closing their gate.
type GateSuspender struct {
	gate *Gate
}

// NewGateSuspender wraps gate.
func NewGateSuspender(gate *Gate) *GateSuspender {
	return &GateSuspender{gate: gate}
}

// Suspend closes the gate.
func (g *GateSuspender) Suspend(context.Context) error {
	g.gate.Pause()
	return nil
}

// Resume opens the gate.
func (g *GateSuspender) Resume(context.Context) error {
	g.gate.Resume()
	return nil
}

// SignalSuspender freezes another process with SIGSTOP and thaws it with SIGCONT.
type SignalSuspender struct {
	PID int
}

// Suspend stops the target process.
func (s SignalSuspender) Suspend(context.Context) error {
	if err := signalStop(s.PID); err != nil {
		return fmt.Errorf("suspending pid %d: %w", s.PID, err)
	}
	return nil
}

// Resume continues the target process.
func (s SignalSuspender) Resume(context.Context) error {
	if err := signalCont(s.PID); err != nil {
		return fmt.Errorf("resuming pid %d: %w", s.PID, err)
	}
	return nil
}

// MultiSuspender applies several suspenders in order and resumes in reverse.
// If one fails to suspend, those already suspended are resumed.
type MultiSuspender []Suspender

// Suspend suspends each member in order.
func (m MultiSuspender) Suspend(ctx context.Context) error {
	for i, s := range m {
		if err := s.Suspend(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = m[j].Resume(ctx) //nolint:errcheck // Unwinding after the real failure
			}
			return err
		}
	}
	return nil
}

// Resume resumes each member in reverse order, attempting all of them.
func (m MultiSuspender) Resume(ctx context.Context) error {
	var errs []error
	for i := len(m) - 1; i >= 0; i-- {
		if err := m[i].Resume(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
