package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/afkloop/internal/input"
)

// SnapshotStore holds the inputs parked by a suspend.
type SnapshotStore interface {
	StoreSnapshots(snaps map[string]input.Snapshot)
	TakeSnapshots() (map[string]input.Snapshot, bool)
}

// Supervisor owns the in-match workers and the suspend protocol.
//
// Suspend is two-phase: PrepareSuspend releases and records every held
// input, then the Suspender freezes execution. ResumeProcess re-presses
// what was recorded, then thaws.
type Supervisor struct {
	workers   []*Worker
	suspender Suspender
	store     SnapshotStore
	settle    time.Duration
	logger    Logger

	mu        sync.Mutex
	suspended bool
}

// NewSupervisor creates a supervisor over workers.
func NewSupervisor(store SnapshotStore, suspender Suspender, workers ...*Worker) *Supervisor {
	return &Supervisor{
		workers:   workers,
		suspender: suspender,
		store:     store,
		settle:    100 * time.Millisecond,
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger.
func (s *Supervisor) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetSettle sets the wait after releasing inputs in PrepareSuspend.
func (s *Supervisor) SetSettle(d time.Duration) {
	s.settle = d
}

// Workers returns the supervised workers.
func (s *Supervisor) Workers() []*Worker {
	return s.workers
}

// Stats returns every worker's statistics in supervision order.
func (s *Supervisor) Stats() []Stats {
	out := make([]Stats, len(s.workers))
	for i, w := range s.workers {
		out[i] = w.Stats()
	}
	return out
}

// StartAll starts every worker that is not already running.
func (s *Supervisor) StartAll(ctx context.Context) error {
	for _, w := range s.workers {
		if err := w.Start(ctx); err != nil && !errors.Is(err, ErrAlreadyRunning) {
			return fmt.Errorf("starting %s: %w", w.Name(), err)
		}
	}
	return nil
}

// StopAll stops every worker concurrently. Timeouts are joined into the result.
func (s *Supervisor) StopAll() error {
	errs := make([]error, len(s.workers))
	var wg sync.WaitGroup
	for i, w := range s.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = w.Stop()
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Running reports whether any worker is running.
func (s *Supervisor) Running() bool {
	for _, w := range s.workers {
		if w.IsRunning() {
			return true
		}
	}
	return false
}

// Suspended reports whether a Suspend is in effect.
func (s *Supervisor) Suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

// PrepareSuspend releases every input the workers hold, records them in
// the store and waits for the release to settle.
func (s *Supervisor) PrepareSuspend(ctx context.Context) error {
	snaps := make(map[string]input.Snapshot, len(s.workers))
	var errs []error
	for _, w := range s.workers {
		tr := w.Tracker()
		if tr == nil {
			continue
		}
		snap, err := tr.Park()
		if err != nil {
			errs = append(errs, fmt.Errorf("parking %s: %w", w.Name(), err))
		}
		snaps[w.Name()] = snap
		s.logger.Debug("inputs parked", "worker", w.Name(), "keys", snap.Keys, "buttons", snap.Buttons)
	}
	s.store.StoreSnapshots(snaps)

	if err := input.Sleep(ctx, s.settle); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Resume re-presses the recorded inputs and clears the record.
// Without a record it does nothing.
func (s *Supervisor) Resume(context.Context) error {
	snaps, ok := s.store.TakeSnapshots()
	if !ok {
		return nil
	}
	var errs []error
	for _, w := range s.workers {
		tr := w.Tracker()
		if tr == nil {
			continue
		}
		if err := tr.Restore(snaps[w.Name()]); err != nil {
			errs = append(errs, fmt.Errorf("restoring %s: %w", w.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Suspend parks the workers' inputs, then freezes them. If freezing fails
// the inputs are restored and the workers keep running.
func (s *Supervisor) Suspend(ctx context.Context) error {
	s.mu.Lock()
	if s.suspended {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.PrepareSuspend(ctx); err != nil {
		s.logger.Warn("prepare suspend incomplete", "error", err)
	}
	if err := s.suspender.Suspend(ctx); err != nil {
		s.logger.Error("suspend failed, workers keep running", "error", err)
		if rerr := s.Resume(ctx); rerr != nil {
			s.logger.Warn("restoring inputs after failed suspend", "error", rerr)
		}
		return fmt.Errorf("suspending workers: %w", err)
	}

	s.mu.Lock()
	s.suspended = true
	s.mu.Unlock()
	s.logger.Info("workers suspended")
	return nil
}

// ResumeProcess re-presses the parked inputs and thaws the workers.
func (s *Supervisor) ResumeProcess(ctx context.Context) error {
	s.mu.Lock()
	if !s.suspended {
		s.mu.Unlock()
		return nil
	}
	s.suspended = false
	s.mu.Unlock()

	restoreErr := s.Resume(ctx)
	if err := s.suspender.Resume(ctx); err != nil {
		return errors.Join(fmt.Errorf("resuming workers: %w", err), restoreErr)
	}
	s.logger.Info("workers resumed")
	return restoreErr
}
