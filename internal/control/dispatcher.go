package control

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nerrad567/afkloop/internal/audit"
)

// Actions.
const (
	ActionPause         = "pause"
	ActionResume        = "resume"
	ActionStop          = "stop"
	ActionSuspend       = "suspend"
	ActionResumeProcess = "resume-process"
)

// Stopper is the stop flag on the shared state.
type Stopper interface {
	RequestStop()
	StopRequested() bool
}

// Pauser is the pause gate.
type Pauser interface {
	Pause()
	Resume()
	Paused() bool
}

// Suspender freezes and thaws the workers. Implemented by *worker.Supervisor.
type Suspender interface {
	Suspend(ctx context.Context) error
	ResumeProcess(ctx context.Context) error
	Suspended() bool
}

// Logger defines the logging interface for the dispatcher.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// AuditLog stores one entry per action. Implemented by *audit.SQLiteRepository.
type AuditLog interface {
	Create(ctx context.Context, e *audit.Entry) error
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Deps holds the dispatcher's collaborators. Suspender may be nil, in
// which case suspend and resume-process are rejected.
type Deps struct {
	State     Stopper
	Gate      Pauser
	Suspender Suspender
	Logger    Logger

	// Audit, if set, records every action with the origin found on ctx.
	Audit AuditLog
}

// Dispatcher executes control actions.
//
// Thread Safety:
//   - Do may be called concurrently; each collaborator guards itself.
type Dispatcher struct {
	state     Stopper
	gate      Pauser
	suspender Suspender
	logger    Logger
	audit     AuditLog
}

// Snapshot reports the control flags.
type Snapshot struct {
	Paused    bool `json:"paused"`
	Suspended bool `json:"suspended"`
	Stopping  bool `json:"stopping"`
}

// New creates a dispatcher.
func New(deps Deps) *Dispatcher {
	d := &Dispatcher{
		state:     deps.State,
		gate:      deps.Gate,
		suspender: deps.Suspender,
		logger:    deps.Logger,
		audit:     deps.Audit,
	}
	if d.logger == nil {
		d.logger = noopLogger{}
	}
	return d
}

// Actions lists the accepted actions in sorted order.
func Actions() []string {
	out := []string{ActionPause, ActionResume, ActionStop, ActionSuspend, ActionResumeProcess}
	sort.Strings(out)
	return out
}

// Do executes one action and audits the outcome.
//
// Parameters:
//   - ctx: Bounds the suspend protocol's settle wait; carries the Origin
//   - action: One of the Action constants
//
// Returns:
//   - error: ErrUnknownAction, ErrStopped, or the suspender's error
func (d *Dispatcher) Do(ctx context.Context, action string) error {
	err := d.apply(ctx, action)
	d.record(ctx, action, err)
	return err
}

func (d *Dispatcher) apply(ctx context.Context, action string) error {
	if d.state.StopRequested() {
		return ErrStopped
	}

	switch action {
	case ActionPause:
		d.gate.Pause()
	case ActionResume:
		d.gate.Resume()
	case ActionStop:
		d.state.RequestStop()
		// An open gate lets blocked goroutines observe the stop.
		d.gate.Resume()
	case ActionSuspend:
		if d.suspender == nil {
			return fmt.Errorf("%w: %s unavailable", ErrUnknownAction, action)
		}
		if err := d.suspender.Suspend(ctx); err != nil {
			d.logger.Warn("control action failed", "action", action, "error", err)
			return err
		}
	case ActionResumeProcess:
		if d.suspender == nil {
			return fmt.Errorf("%w: %s unavailable", ErrUnknownAction, action)
		}
		if err := d.suspender.ResumeProcess(ctx); err != nil {
			d.logger.Warn("control action failed", "action", action, "error", err)
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	d.logger.Info("control action applied", "action", action)
	return nil
}

// record writes the audit entry. A failed write is logged and otherwise ignored.
func (d *Dispatcher) record(ctx context.Context, action string, actErr error) {
	if d.audit == nil {
		return
	}
	origin := OriginFrom(ctx)
	e := &audit.Entry{
		Action:  action,
		Source:  origin.Source,
		Subject: origin.Subject,
		Result:  audit.ResultApplied,
	}
	switch {
	case actErr == nil:
	case errors.Is(actErr, ErrUnknownAction), errors.Is(actErr, ErrStopped):
		e.Result = audit.ResultRejected
		e.Error = actErr.Error()
	default:
		e.Result = audit.ResultFailed
		e.Error = actErr.Error()
	}
	if err := d.audit.Create(context.WithoutCancel(ctx), e); err != nil {
		d.logger.Warn("audit write failed", "action", action, "error", err)
	}
}

// Snapshot returns the current control flags.
func (d *Dispatcher) Snapshot() Snapshot {
	s := Snapshot{
		Paused:   d.gate.Paused(),
		Stopping: d.state.StopRequested(),
	}
	if d.suspender != nil {
		s.Suspended = d.suspender.Suspended()
	}
	return s
}
