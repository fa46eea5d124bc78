package stage

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/afkloop/internal/input"
)

// Stage names used by the control loop.
const (
	Matching  = "matching"
	Ready     = "ready"
	InGame    = "in_game"
	Reconnect = "reconnect"
)

// Flags is the slice of shared state the watchdog writes.
type Flags interface {
	SetStage(name string)
	SetForcedRecalibration(forced bool)
}

// Observer is told about stage boundaries and stalls.
type Observer interface {
	StageEntered(name string)
	StageStalled(name string, dwell time.Duration)
	StageExited(name string, dwell time.Duration, stalled bool)
}

// Logger defines the logging interface for the watchdog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Option configures a Watchdog.
type Option func(*Watchdog)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Watchdog) { w.now = now }
}

// WithObserver attaches an observer.
func WithObserver(o Observer) Option {
	return func(w *Watchdog) { w.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(w *Watchdog) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithSafePoint sets where the nudge clicks (default 10,10).
func WithSafePoint(x, y int) Option {
	return func(w *Watchdog) { w.safeX, w.safeY = x, y }
}

// Watchdog measures dwell in the active stage.
//
// Thread Safety:
//   - Methods are safe for concurrent use, though the control loop is the
//     only caller of Enter, CheckStay and Exit.
type Watchdog struct {
	pointer  input.Pointer
	flags    Flags
	observer Observer
	logger   Logger
	now      func() time.Time

	safeX, safeY int

	mu             sync.Mutex
	name           string
	enteredAt      time.Time
	active         bool
	stallTriggered bool
	stallLogged    bool
}

// New creates an inactive watchdog. flags may be nil.
func New(pointer input.Pointer, flags Flags, opts ...Option) *Watchdog {
	w := &Watchdog{
		pointer: pointer,
		flags:   flags,
		logger:  noopLogger{},
		now:     time.Now,
		safeX:   10,
		safeY:   10,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Enter starts a bracket for name. Entering while active restarts the bracket.
func (w *Watchdog) Enter(name string) {
	w.mu.Lock()
	w.name = name
	w.enteredAt = w.now()
	w.active = true
	w.stallTriggered = false
	w.stallLogged = false
	w.mu.Unlock()

	if w.flags != nil {
		w.flags.SetStage(name)
		w.flags.SetForcedRecalibration(false)
	}
	w.logger.Debug("stage entered", "stage", name)
	if w.observer != nil {
		w.observer.StageEntered(name)
	}
}

// CheckStay nudges once if the active stage has lasted longer than threshold.
//
// Returns:
//   - bool: true only on the call that fired the nudge
//   - error: click failure; the stall is still recorded
func (w *Watchdog) CheckStay(ctx context.Context, threshold time.Duration) (bool, error) {
	w.mu.Lock()
	if !w.active || w.stallLogged {
		w.mu.Unlock()
		return false, nil
	}
	dwell := w.now().Sub(w.enteredAt)
	if dwell <= threshold {
		w.mu.Unlock()
		return false, nil
	}
	w.stallTriggered = true
	w.stallLogged = true
	name := w.name
	w.mu.Unlock()

	if w.flags != nil {
		w.flags.SetForcedRecalibration(true)
	}
	w.logger.Info("stage stalled, forcing recalibration", "stage", name, "dwell", dwell.Round(time.Second))
	if w.observer != nil {
		w.observer.StageStalled(name, dwell)
	}
	if err := w.pointer.MoveClick(ctx, w.safeX, w.safeY, input.Click); err != nil {
		return true, err
	}
	return true, nil
}

// Exit closes the active bracket. It is a no-op when inactive.
func (w *Watchdog) Exit() {
	w.mu.Lock()
	if !w.active {
		w.mu.Unlock()
		return
	}
	name := w.name
	dwell := w.now().Sub(w.enteredAt)
	stalled := w.stallTriggered
	w.active = false
	w.stallTriggered = false
	w.stallLogged = false
	w.enteredAt = time.Time{}
	w.mu.Unlock()

	if w.flags != nil {
		w.flags.SetForcedRecalibration(false)
	}
	if stalled {
		w.logger.Info("stage recovered, recalibration off", "stage", name, "dwell", dwell.Round(time.Second))
	}
	if w.observer != nil {
		w.observer.StageExited(name, dwell, stalled)
	}
}

// Active returns the active stage name and whether a bracket is open.
func (w *Watchdog) Active() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.name, w.active
}

// Dwell returns time spent in the active stage, or 0 when inactive.
func (w *Watchdog) Dwell() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.active {
		return 0
	}
	return w.now().Sub(w.enteredAt)
}

// Stalled reports whether the active bracket has fired its nudge.
func (w *Watchdog) Stalled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stallTriggered
}
