package gameloop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/afkloop/internal/infrastructure/config"
	"github.com/nerrad567/afkloop/internal/perception"
	"github.com/nerrad567/afkloop/internal/stage"
)

// disconnectSettle is the pause before recovery inspects the screen.
const disconnectSettle = time.Second

// recover brings the client back to a hall after a disconnect seen in stage from.
//
// A disconnect is minor when a hall or the settlement screen is still
// visible once the dialog is dismissed. Anything else is major and walks
// back from the main menu under the reconnect watchdog.
func (c *Controller) recover(ctx context.Context, from string) error {
	if c.match != nil {
		c.match.Disconnects++
	}
	c.logger.Warn("disconnect detected", "stage", from)

	if err := c.sleep(ctx, disconnectSettle); err != nil {
		return err
	}
	c.stopWorkers()

	if err := c.sweep(ctx); err != nil {
		return err
	}

	minor, err := c.minorDisconnect(ctx)
	if err != nil {
		return err
	}
	if minor {
		c.events.Disconnected(from, false)
		c.logger.Info("minor disconnect recovered", "stage", from)
		return nil
	}

	c.events.Disconnected(from, true)
	c.notifier.Notify(ctx, fmt.Sprintf("major disconnect during %s, reconnecting", from), "warn")
	if err := c.reconnect(ctx); err != nil {
		return err
	}
	c.logger.Info("major disconnect recovered", "stage", from)
	return nil
}

// minorDisconnect reports whether the client is still in a hall or on the
// settlement screen. Settlement is left by clicking continue.
func (c *Controller) minorDisconnect(ctx context.Context) (bool, error) {
	hall, err := c.checkAny(ctx, config.PredicateMatchingHall, config.PredicateReadyHall)
	if err != nil || hall {
		return hall, err
	}

	over, err := c.check(ctx, config.PredicateSettlement)
	if err != nil || !over {
		return false, err
	}
	if err := c.click(ctx, c.opts.Coords.ContinueButton, delayed(500*time.Millisecond, time.Second)); err != nil {
		return false, err
	}
	return true, nil
}

// sweep confirms the disconnect dialog at descending thresholds until it
// disappears. A missing box recognizer ends the sweep without error.
func (c *Controller) sweep(ctx context.Context) error {
	visible, err := c.check(ctx, config.PredicateDisconnect)
	if err != nil || !visible {
		return err
	}

	step := c.opts.SweepStep
	if step <= 0 {
		step = 10
	}
	for th := c.opts.SweepStart; th >= c.opts.SweepStop; th -= step {
		if _, err := c.perception.ConfirmDialog(ctx, config.PredicateDisconnect, th); err != nil {
			if errors.Is(err, perception.ErrNoBoxRecognizer) {
				c.logger.Warn("cannot confirm disconnect dialog", "error", err)
				return nil
			}
			return fmt.Errorf("confirming disconnect dialog: %w", err)
		}

		visible, err := c.check(ctx, config.PredicateDisconnect)
		if err != nil {
			return err
		}
		if !visible {
			c.logger.Info("disconnect dialog dismissed", "threshold", th)
			return nil
		}
	}
	c.logger.Warn("disconnect dialog still visible after sweep",
		"from", c.opts.SweepStart, "to", c.opts.SweepStop)
	return nil
}

// reconnect walks from wherever the client landed back to a hall.
func (c *Controller) reconnect(ctx context.Context) error {
	c.watchdog.Enter(stage.Reconnect)
	defer c.watchdog.Exit()

	var deadline time.Time
	if c.opts.RecoveryTimeout > 0 {
		deadline = c.now().Add(c.opts.RecoveryTimeout)
	}

	co := c.opts.Coords
	for {
		if err := c.checkpoint(ctx); err != nil {
			return err
		}
		if !deadline.IsZero() && c.now().After(deadline) {
			return fmt.Errorf("%w: no hall after %s", ErrRecoveryExhausted, c.opts.RecoveryTimeout)
		}

		if err := c.sweep(ctx); err != nil {
			return err
		}
		if err := c.sleep(ctx, c.opts.PollInterval); err != nil {
			return err
		}
		if err := c.click(ctx, co.SafePoint, delayed(0, time.Second)); err != nil {
			return err
		}

		for _, closer := range []struct {
			id string
			at config.Point
		}{
			{config.PredicateNews, co.NewsClose},
			{config.PredicateDailyRitual, co.RitualClose},
			{config.PredicateSeasonReset, co.SeasonResetButton},
		} {
			shown, err := c.check(ctx, closer.id)
			if err != nil {
				return err
			}
			if shown {
				c.logger.Debug("closing overlay", "predicate", closer.id)
				if err := c.click(ctx, closer.at, delayed(0, time.Second)); err != nil {
					return err
				}
			}
		}

		main, err := c.check(ctx, config.PredicateMainPage)
		if err != nil {
			return err
		}
		if main {
			c.logger.Info("main page reached, entering camp", "role", c.opts.Role)
			if err := c.click(ctx, co.MainStart, delayed(time.Second, 0)); err != nil {
				return err
			}
			return c.click(ctx, c.camp(), delayed(time.Second, 0))
		}

		if _, err := c.watchdog.CheckStay(ctx, c.opts.Reconnect); err != nil {
			return err
		}

		over, err := c.check(ctx, config.PredicateSettlement)
		if err != nil {
			return err
		}
		if over {
			if err := c.click(ctx, co.ContinueButton, delayed(500*time.Millisecond, time.Second)); err != nil {
				return err
			}
			return c.click(ctx, co.SafePoint, delayed(time.Second, 3*time.Second))
		}

		hall, err := c.checkAny(ctx, config.PredicateMatchingHall, config.PredicateReadyHall)
		if err != nil {
			return err
		}
		if hall {
			return nil
		}
	}
}
