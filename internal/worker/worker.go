package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/afkloop/internal/input"
)

// Status represents the current state of a worker.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
)

// Step is one iteration of a worker loop. It should hold no input when it returns.
type Step func(ctx context.Context) error

// Config holds configuration for a worker.
type Config struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Step runs once per iteration.
	Step Step

	// Gate, if set, is waited on before every iteration and, through the
	// Tracker, before every new press.
	Gate *Gate

	// Tracker records the inputs Step sends. Stop releases whatever it still holds.
	Tracker *input.Tracker

	// GracefulTimeout is how long Stop waits for the current iteration to
	// finish before cancelling it.
	GracefulTimeout time.Duration

	// ErrorBackoff is the pause after a failed iteration.
	ErrorBackoff time.Duration

	// OnStop is called when the loop exits, with the last iteration error.
	OnStop func(err error)
}

// Logger defines the logging interface for workers.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Worker runs Step in a loop on its own goroutine.
type Worker struct {
	config Config
	logger Logger

	mu            sync.RWMutex
	status        Status
	iterations    int
	failures      int
	lastError     error
	startTime     time.Time
	stopRequested bool

	cancel     context.CancelFunc
	cancelWait context.CancelFunc
	done       chan struct{}
}

// New creates a stopped worker.
func New(cfg Config) *Worker {
	if cfg.GracefulTimeout == 0 {
		cfg.GracefulTimeout = 3 * time.Second
	}
	if cfg.ErrorBackoff == 0 {
		cfg.ErrorBackoff = time.Second
	}
	return &Worker{
		config: cfg,
		logger: noopLogger{},
		status: StatusStopped,
	}
}

// SetLogger sets the logger for the worker.
func (w *Worker) SetLogger(logger Logger) {
	if logger != nil {
		w.logger = logger
	}
}

// Name returns the configured name.
func (w *Worker) Name() string {
	return w.config.Name
}

// Tracker returns the worker's input tracker, which may be nil.
func (w *Worker) Tracker() *input.Tracker {
	return w.config.Tracker
}

// Start clears the stop flag and launches the loop.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.status != StatusStopped {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, w.config.Name)
	}
	runCtx, cancel := context.WithCancel(ctx)
	// waitCtx also ends when a stop is requested so a paused worker exits promptly.
	waitCtx, cancelWait := context.WithCancel(runCtx)
	w.status = StatusRunning
	w.stopRequested = false
	w.startTime = time.Now()
	w.cancel = cancel
	w.cancelWait = cancelWait
	w.done = make(chan struct{})
	done := w.done
	w.mu.Unlock()

	if tr := w.config.Tracker; tr != nil {
		// Presses wait on the gate as well as iterations.
		if w.config.Gate != nil {
			tr.Bind(waitCtx, w.config.Gate)
		} else {
			tr.Bind(waitCtx, nil)
		}
	}

	w.logger.Info("worker started", "name", w.config.Name)
	go w.loop(runCtx, waitCtx, done)
	return nil
}

func (w *Worker) loop(ctx, waitCtx context.Context, done chan struct{}) {
	var lastErr error
	defer func() {
		w.mu.Lock()
		w.status = StatusStopped
		w.mu.Unlock()
		if w.config.OnStop != nil {
			w.config.OnStop(lastErr)
		}
		close(done)
	}()

	for {
		if w.StopRequested() || ctx.Err() != nil {
			return
		}
		if w.config.Gate != nil {
			if err := w.config.Gate.Wait(waitCtx); err != nil {
				return
			}
		}
		if w.StopRequested() {
			return
		}

		err := w.config.Step(ctx)

		w.mu.Lock()
		w.iterations++
		if err != nil && ctx.Err() == nil {
			w.failures++
			w.lastError = err
		}
		w.mu.Unlock()

		if err == nil {
			continue
		}
		if ctx.Err() != nil || w.StopRequested() {
			return
		}
		lastErr = err
		w.logger.Warn("worker iteration failed", "name", w.config.Name, "error", err)
		select {
		case <-waitCtx.Done():
			return
		case <-time.After(w.config.ErrorBackoff):
		}
	}
}

// Stop sets the stop flag and waits for the current iteration to finish.
// After GracefulTimeout the iteration is cancelled. Either way every input
// still held by the tracker is released.
//
// Returns:
//   - error: ErrWorkerTimeout, wrapped with the worker name, if cancellation was needed
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.status == StatusStopped || w.done == nil {
		w.mu.Unlock()
		return nil
	}
	w.stopRequested = true
	w.status = StatusStopping
	done := w.done
	cancel := w.cancel
	cancelWait := w.cancelWait
	w.mu.Unlock()

	cancelWait()

	var stopErr error
	select {
	case <-done:
		w.logger.Info("worker stopped", "name", w.config.Name)
	case <-time.After(w.config.GracefulTimeout):
		w.logger.Warn("graceful stop timed out, cancelling",
			"name", w.config.Name,
			"timeout", w.config.GracefulTimeout,
		)
		cancel()
		<-done
		stopErr = fmt.Errorf("%w: %s", ErrWorkerTimeout, w.config.Name)
	}
	cancel()

	if w.config.Tracker != nil {
		if err := w.config.Tracker.ReleaseAll(); err != nil {
			w.logger.Warn("releasing held inputs", "name", w.config.Name, "error", err)
		}
	}
	return stopErr
}

// StopRequested reports whether Stop has been called since the last Start.
func (w *Worker) StopRequested() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stopRequested
}

// Status returns the current status.
func (w *Worker) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// IsRunning returns true while the loop is active.
func (w *Worker) IsRunning() bool {
	return w.Status() == StatusRunning
}

// Stats returns statistics about a worker.
type Stats struct {
	Name       string         `json:"name"`
	Status     Status         `json:"status"`
	Uptime     time.Duration  `json:"uptime,omitempty"`
	Iterations int            `json:"iterations"`
	Failures   int            `json:"failures"`
	LastError  string         `json:"last_error,omitempty"`
	Held       input.Snapshot `json:"held"`
}

// Stats returns current statistics for the worker.
func (w *Worker) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	stats := Stats{
		Name:       w.config.Name,
		Status:     w.status,
		Iterations: w.iterations,
		Failures:   w.failures,
	}
	if w.status == StatusRunning {
		stats.Uptime = time.Since(w.startTime)
	}
	if w.lastError != nil {
		stats.LastError = w.lastError.Error()
	}
	if w.config.Tracker != nil {
		stats.Held = w.config.Tracker.Pressed()
	}
	return stats
}
