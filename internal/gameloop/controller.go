package gameloop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/afkloop/internal/infrastructure/config"
	"github.com/nerrad567/afkloop/internal/input"
	"github.com/nerrad567/afkloop/internal/state"
)

// Perception answers predicate queries.
type Perception interface {
	Check(ctx context.Context, id string) (bool, error)
	ConfirmDialog(ctx context.Context, id string, threshold int) (bool, error)
}

// Watchdog tracks dwell in the active stage.
type Watchdog interface {
	Enter(name string)
	CheckStay(ctx context.Context, threshold time.Duration) (bool, error)
	Exit()
}

// Workers starts and stops the in-match workers.
type Workers interface {
	StartAll(ctx context.Context) error
	StopAll() error
}

// Gate blocks while the run is paused.
type Gate interface {
	Wait(ctx context.Context) error
}

// Options are the controller's tunables.
type Options struct {
	Role             string
	Debug            bool
	Characters       []string
	Loadout          int
	PostMatchMessage string
	Coords           config.CoordinatesConfig

	// Watchdog thresholds per stage.
	Matching  time.Duration
	Ready     time.Duration
	InGame    time.Duration
	Reconnect time.Duration

	// RecoveryTimeout bounds a major reconnect. Zero disables the bound.
	RecoveryTimeout time.Duration
	SweepStart      int
	SweepStop       int
	SweepStep       int
	PollInterval    time.Duration
}

// OptionsFromConfig maps the runtime, coordinates, stages and recovery
// sections onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Role:             cfg.Runtime.Role,
		Debug:            cfg.Runtime.Debug,
		Characters:       cfg.Runtime.Characters,
		Loadout:          cfg.Runtime.Loadout,
		PostMatchMessage: cfg.Runtime.PostMatchMessage,
		Coords:           cfg.Coordinates,
		Matching:         config.StageThreshold(cfg.Stages.Matching),
		Ready:            config.StageThreshold(cfg.Stages.Ready),
		InGame:           config.StageThreshold(cfg.Stages.InGame),
		Reconnect:        config.StageThreshold(cfg.Stages.Reconnect),
		RecoveryTimeout:  config.StageThreshold(cfg.Recovery.Timeout),
		SweepStart:       cfg.Recovery.SweepStart,
		SweepStop:        cfg.Recovery.SweepStop,
		SweepStep:        cfg.Recovery.SweepStep,
		PollInterval:     config.Millis(cfg.Recovery.PollInterval),
	}
}

// Deps are the controller's collaborators. Recorder, Events, Notifier, Now
// and Sleep are optional.
type Deps struct {
	Perception Perception
	Watchdog   Watchdog
	Input      input.Device
	Workers    Workers
	Gate       Gate
	State      *state.State

	Recorder MatchRecorder
	Events   EventSink
	Notifier Notifier

	// Now defaults to time.Now.
	Now func() time.Time

	// Sleep defaults to input.Sleep. Tests replace it to skip real waits.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Controller runs match cycles.
//
// Thread Safety:
//   - Run must not be called concurrently with itself. Stop it through
//     state.RequestStop or by cancelling its context.
type Controller struct {
	opts       Options
	perception Perception
	watchdog   Watchdog
	input      input.Device
	workers    Workers
	gate       Gate
	state      *state.State
	recorder   MatchRecorder
	events     EventSink
	notifier   Notifier
	logger     Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error

	// Owned by the Run goroutine.
	selectedOnce bool
	match        *Match
}

// New creates a controller.
func New(opts Options, deps Deps) *Controller {
	c := &Controller{
		opts:       opts,
		perception: deps.Perception,
		watchdog:   deps.Watchdog,
		input:      deps.Input,
		workers:    deps.Workers,
		gate:       deps.Gate,
		state:      deps.State,
		recorder:   deps.Recorder,
		events:     deps.Events,
		notifier:   deps.Notifier,
		logger:     noopLogger{},
		now:        deps.Now,
		sleep:      deps.Sleep,
	}
	if c.events == nil {
		c.events = noopEvents{}
	}
	if c.notifier == nil {
		c.notifier = noopNotifier{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.sleep == nil {
		c.sleep = input.Sleep
	}
	return c
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Run loops match cycles until ctx is cancelled or a stop is requested.
//
// Both of those end the run cleanly and return nil. A capture failure or
// ErrRecoveryExhausted aborts the run: workers are stopped, one failure
// notification is sent and the error is returned.
func (c *Controller) Run(ctx context.Context) error {
	c.state.SetRunning(true)
	defer c.state.SetRunning(false)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.state.StopChan():
			cancel()
		case <-runCtx.Done():
		}
	}()

	c.logger.Info("control loop started",
		"role", c.opts.Role,
		"debug", c.opts.Debug,
		"characters", len(c.opts.Characters),
	)

	for {
		if c.state.StopRequested() || runCtx.Err() != nil {
			c.logger.Info("control loop stopped")
			return nil
		}

		n := c.state.BeginCycle()
		c.events.CycleStarted(n)
		c.logger.Info("cycle started", "cycle", n)

		outcome, err := c.cycle(runCtx, n)
		if err == nil {
			c.finishMatch(runCtx, outcome)
			continue
		}

		c.stopWorkers()
		c.finishMatch(context.WithoutCancel(ctx), OutcomeAborted)
		if errors.Is(err, errStopped) || runCtx.Err() != nil {
			c.logger.Info("control loop stopped", "cycle", n)
			return nil
		}
		c.fail(ctx, err)
		return err
	}
}

// cycle runs one Matching → Ready → InGame pass.
func (c *Controller) cycle(ctx context.Context, n int) (Outcome, error) {
	c.match = nil

	reconnected, err := c.matching(ctx, n)
	if err != nil || reconnected {
		return OutcomeReconnected, err
	}
	reconnected, err = c.ready(ctx)
	if err != nil || reconnected {
		return OutcomeReconnected, err
	}
	return c.inGame(ctx)
}

// beginMatch opens the history record for the match about to be played.
func (c *Controller) beginMatch() {
	c.match = &Match{
		ID:        uuid.NewString(),
		Role:      c.opts.Role,
		Character: c.state.Character(),
		StartedAt: c.now(),
	}
}

// finishMatch closes and records the open match, if any.
func (c *Controller) finishMatch(ctx context.Context, outcome Outcome) {
	if c.match == nil {
		return
	}
	m := *c.match
	c.match = nil
	m.EndedAt = c.now()
	m.Outcome = outcome

	if c.recorder != nil {
		if err := c.recorder.Record(ctx, m); err != nil {
			c.logger.Warn("failed to record match", "id", m.ID, "error", err)
		}
	}
	c.events.MatchRecorded(m)
	c.logger.Info("match finished",
		"id", m.ID,
		"outcome", m.Outcome,
		"duration", m.Duration(),
		"disconnects", m.Disconnects,
	)
}

func (c *Controller) fail(ctx context.Context, err error) {
	c.logger.Error("control loop aborted", "error", err)
	c.events.RunFailed(err)
	c.notifier.Notify(context.WithoutCancel(ctx), "control loop aborted: "+err.Error(), "error")
}

func (c *Controller) stopWorkers() {
	if err := c.workers.StopAll(); err != nil {
		c.logger.Warn("workers did not stop cleanly", "error", err)
	}
}

// checkpoint honours stop and pause between steps.
func (c *Controller) checkpoint(ctx context.Context) error {
	if c.state.StopRequested() {
		return errStopped
	}
	if err := c.gate.Wait(ctx); err != nil {
		return err
	}
	if c.state.StopRequested() {
		return errStopped
	}
	return nil
}

func (c *Controller) check(ctx context.Context, id string) (bool, error) {
	ok, err := c.perception.Check(ctx, id)
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", id, err)
	}
	return ok, nil
}

// checkAny reports whether any of ids matches, checking in order.
func (c *Controller) checkAny(ctx context.Context, ids ...string) (bool, error) {
	for _, id := range ids {
		ok, err := c.check(ctx, id)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (c *Controller) click(ctx context.Context, p config.Point, opts input.ClickOptions) error {
	if err := c.input.MoveClick(ctx, p.X, p.Y, opts); err != nil {
		return fmt.Errorf("clicking (%d,%d): %w", p.X, p.Y, err)
	}
	return nil
}

// delayed is a single left click with the given waits.
func delayed(pre, post time.Duration) input.ClickOptions {
	return input.ClickOptions{Times: 1, PreDelay: pre, PostDelay: post}
}

// tap presses and releases key.
func (c *Controller) tap(ctx context.Context, key string) error {
	return input.Press(ctx, c.input, key, tapHold)
}

// camp is the main-page button for the configured role.
func (c *Controller) camp() config.Point {
	if c.opts.Role == config.RoleKiller {
		return c.opts.Coords.MainKiller
	}
	return c.opts.Coords.MainSurvivor
}
