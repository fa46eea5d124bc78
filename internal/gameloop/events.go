package gameloop

import (
	"context"
	"time"
)

// Outcome is how a recorded match ended.
type Outcome string

const (
	// OutcomeCompleted means settlement was reached and cleared.
	OutcomeCompleted Outcome = "completed"

	// OutcomeReconnected means a disconnect cut the cycle short.
	OutcomeReconnected Outcome = "reconnected"

	// OutcomeAborted means the run stopped or failed mid-match.
	OutcomeAborted Outcome = "aborted"
)

// Match is one row of match history.
type Match struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	Character   string    `json:"character,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
	Outcome     Outcome   `json:"outcome"`
	Disconnects int       `json:"disconnects"`
}

// Duration is EndedAt - StartedAt.
func (m Match) Duration() time.Duration {
	return m.EndedAt.Sub(m.StartedAt)
}

// MatchRecorder persists match history.
type MatchRecorder interface {
	Record(ctx context.Context, m Match) error
}

// EventSink receives cycle-level events.
type EventSink interface {
	CycleStarted(cycle int)
	Disconnected(stage string, major bool)
	MatchRecorded(m Match)
	RunFailed(err error)
}

// Notifier delivers operator-facing messages. level is "info", "warn" or "error".
type Notifier interface {
	Notify(ctx context.Context, msg, level string)
}

// Logger defines the logging interface for the controller.
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

type noopEvents struct{}

func (noopEvents) CycleStarted(int)          {}
func (noopEvents) Disconnected(string, bool) {}
func (noopEvents) MatchRecorded(Match)       {}
func (noopEvents) RunFailed(error)           {}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, string) {}
