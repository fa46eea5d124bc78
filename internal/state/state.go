package state

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/afkloop/internal/input"
)

// State is the shared blackboard. The zero value is not usable; call New.
type State struct {
	stop    atomic.Bool
	stopped chan struct{}
	once    sync.Once

	mu                  sync.RWMutex
	running             bool
	startedAt           time.Time
	stage               string
	stageSince          time.Time
	forcedRecalibration bool
	characterIndex      int
	character           string
	cycles              int
	snapshots           map[string]input.Snapshot
}

// Status is a point-in-time copy of the blackboard for reporting.
type Status struct {
	Running             bool      `json:"running"`
	Stopping            bool      `json:"stopping"`
	StartedAt           time.Time `json:"started_at,omitzero"`
	Stage               string    `json:"stage"`
	StageSince          time.Time `json:"stage_since,omitzero"`
	ForcedRecalibration bool      `json:"forced_recalibration"`
	CharacterIndex      int       `json:"character_index"`
	Character           string    `json:"character,omitempty"`
	Cycles              int       `json:"cycles"`
	Suspended           bool      `json:"suspended"`
}

// New returns an empty blackboard.
func New() *State {
	return &State{stopped: make(chan struct{})}
}

// ─── Stop ───────────────────────────────────────────────────────────

// RequestStop sets the one-way stop flag. Later calls are no-ops.
func (s *State) RequestStop() {
	s.once.Do(func() {
		s.stop.Store(true)
		close(s.stopped)
	})
}

// StopRequested reports whether RequestStop has been called.
func (s *State) StopRequested() bool {
	return s.stop.Load()
}

// StopChan is closed when a stop is requested.
func (s *State) StopChan() <-chan struct{} {
	return s.stopped
}

// ─── Run / Stage ────────────────────────────────────────────────────

// SetRunning records whether the control loop is active.
func (s *State) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
	if running {
		s.startedAt = time.Now()
	}
}

// SetStage records the current stage name.
func (s *State) SetStage(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = name
	s.stageSince = time.Now()
}

// Stage returns the current stage name, or "" when no stage is active.
func (s *State) Stage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stage
}

// ─── Calibration ────────────────────────────────────────────────────

// SetForcedRecalibration is set by the watchdog while a stall is active.
func (s *State) SetForcedRecalibration(forced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forcedRecalibration = forced
}

// ForcedRecalibration reports whether recognition should keep sweeping
// even for solved predicates.
func (s *State) ForcedRecalibration() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.forcedRecalibration
}

// ─── Rotation ───────────────────────────────────────────────────────

// NextCharacter returns the current rotation index and advances it modulo n.
// It returns 0 without advancing when n <= 0.
func (s *State) NextCharacter(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.characterIndex % n
	s.characterIndex = (i + 1) % n
	return i
}

// CharacterIndex returns the index the next selection will use.
func (s *State) CharacterIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.characterIndex
}

// SetCharacter records the character selected for the current match.
func (s *State) SetCharacter(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.character = name
}

// Character returns the character selected for the current match.
func (s *State) Character() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.character
}

// BeginCycle increments the cycle counter and returns the new value (1-based).
func (s *State) BeginCycle() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles++
	return s.cycles
}

// ─── Suspend snapshots ──────────────────────────────────────────────

// StoreSnapshots saves the pressed inputs of each worker, keyed by worker name.
func (s *State) StoreSnapshots(snaps map[string]input.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = snaps
}

// TakeSnapshots returns and clears the stored snapshots.
// ok is false when nothing was stored.
func (s *State) TakeSnapshots() (snaps map[string]input.Snapshot, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snaps, s.snapshots = s.snapshots, nil
	return snaps, snaps != nil
}

// Status returns a copy of the blackboard.
func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Running:             s.running,
		Stopping:            s.stop.Load(),
		StartedAt:           s.startedAt,
		Stage:               s.stage,
		StageSince:          s.stageSince,
		ForcedRecalibration: s.forcedRecalibration,
		CharacterIndex:      s.characterIndex,
		Character:           s.character,
		Cycles:              s.cycles,
		Suspended:           s.snapshots != nil,
	}
}
