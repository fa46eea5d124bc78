package gameloop

import (
	"context"
	"time"

	"github.com/nerrad567/afkloop/internal/infrastructure/config"
	"github.com/nerrad567/afkloop/internal/input"
	"github.com/nerrad567/afkloop/internal/stage"
)

const (
	// tapHold is how long a single key tap stays down.
	tapHold = 50 * time.Millisecond

	// survivorLead is the pause before a survivor starts matchmaking.
	survivorLead = time.Second

	// messageSettle is the pause after sending the post-match message.
	messageSettle = 500 * time.Millisecond
)

// matching waits in the matching hall and starts matchmaking.
// reconnected is true when a disconnect cut the stage short.
func (c *Controller) matching(ctx context.Context, n int) (reconnected bool, err error) {
	c.watchdog.Enter(stage.Matching)
	defer c.watchdog.Exit()

	for {
		if err := c.checkpoint(ctx); err != nil {
			return false, err
		}

		hall, err := c.check(ctx, config.PredicateMatchingHall)
		if err != nil {
			return false, err
		}
		if hall {
			c.watchdog.Exit()
			c.logger.Info("matching hall reached", "cycle", n)
			if err := c.prepareMatch(ctx, n); err != nil {
				return false, err
			}
			return false, c.startMatchmaking(ctx)
		}

		disconnected, err := c.check(ctx, config.PredicateDisconnect)
		if err != nil {
			return false, err
		}
		if disconnected {
			c.watchdog.Exit()
			return true, c.recover(ctx, stage.Matching)
		}

		if _, err := c.watchdog.CheckStay(ctx, c.opts.Matching); err != nil {
			return false, err
		}
	}
}

// prepareMatch runs the killer's character and loadout selection, or the
// survivor's short lead-in.
func (c *Controller) prepareMatch(ctx context.Context, n int) error {
	if c.opts.Role != config.RoleKiller {
		return c.sleep(ctx, survivorLead)
	}
	if c.shouldSelectCharacter() {
		if err := c.selectCharacter(ctx); err != nil {
			return err
		}
	}
	if c.shouldSelectLoadout(n) {
		return c.selectLoadout(ctx)
	}
	return nil
}

// startMatchmaking clicks start until the matching hall disappears.
// Exactly one start click is issued per positive check.
func (c *Controller) startMatchmaking(ctx context.Context) error {
	co := c.opts.Coords
	for {
		if err := c.checkpoint(ctx); err != nil {
			return err
		}
		if err := c.click(ctx, co.StartButton, delayed(time.Second, 0)); err != nil {
			return err
		}
		if err := c.click(ctx, co.BlankArea, delayed(time.Second, 5*time.Second)); err != nil {
			return err
		}

		still, err := c.check(ctx, config.PredicateMatchingHall)
		if err != nil {
			return err
		}
		if !still {
			c.logger.Info("matchmaking started")
			return nil
		}
	}
}

// ready confirms the lobby. Debug runs skip it.
func (c *Controller) ready(ctx context.Context) (reconnected bool, err error) {
	if c.opts.Debug {
		c.logger.Debug("ready stage skipped in debug mode")
		return false, nil
	}

	c.watchdog.Enter(stage.Ready)
	defer c.watchdog.Exit()

	co := c.opts.Coords
	for {
		if err := c.checkpoint(ctx); err != nil {
			return false, err
		}

		hall, err := c.check(ctx, config.PredicateReadyHall)
		if err != nil {
			return false, err
		}
		if hall {
			c.watchdog.Exit()
			for _, step := range []struct {
				at   config.Point
				opts input.ClickOptions
			}{
				{co.SafePoint, delayed(time.Second, 0)},
				{co.ReadyButton, delayed(time.Second, 0)},
				{co.BlankArea, delayed(time.Second, 3*time.Second)},
			} {
				if err := c.click(ctx, step.at, step.opts); err != nil {
					return false, err
				}
			}

			still, err := c.check(ctx, config.PredicateReadyHall)
			if err != nil {
				return false, err
			}
			if !still {
				c.logger.Info("ready confirmed")
				return false, nil
			}
		} else {
			disconnected, err := c.check(ctx, config.PredicateDisconnect)
			if err != nil {
				return false, err
			}
			if disconnected {
				c.watchdog.Exit()
				return true, c.recover(ctx, stage.Ready)
			}
		}

		if _, err := c.watchdog.CheckStay(ctx, c.opts.Ready); err != nil {
			return false, err
		}
	}
}

// inGame runs the workers until settlement.
func (c *Controller) inGame(ctx context.Context) (Outcome, error) {
	if err := c.workers.StartAll(ctx); err != nil {
		c.logger.Warn("failed to start workers", "error", err)
	}
	c.beginMatch()
	c.watchdog.Enter(stage.InGame)
	defer c.watchdog.Exit()

	co := c.opts.Coords
	for {
		if err := c.checkpoint(ctx); err != nil {
			return "", err
		}

		reset, err := c.check(ctx, config.PredicateSeasonReset)
		if err != nil {
			return "", err
		}
		if reset {
			c.logger.Info("closing season reset notice")
			if err := c.click(ctx, co.SeasonResetButton, delayed(0, time.Second)); err != nil {
				return "", err
			}
		}

		rites, err := c.check(ctx, config.PredicateRites)
		if err != nil {
			return "", err
		}
		if rites {
			c.logger.Info("collecting rites")
			for _, p := range co.RitesComplete {
				if err := c.click(ctx, p, delayed(500*time.Millisecond, time.Second)); err != nil {
					return "", err
				}
			}
		}

		over, err := c.check(ctx, config.PredicateSettlement)
		if err != nil {
			return "", err
		}
		if over {
			c.watchdog.Exit()
			c.stopWorkers()
			if err := c.settle(ctx); err != nil {
				return "", err
			}

			still, err := c.check(ctx, config.PredicateSettlement)
			if err != nil {
				return "", err
			}
			if !still {
				c.logger.Info("settlement cleared")
				return OutcomeCompleted, nil
			}
			disconnected, err := c.check(ctx, config.PredicateDisconnect)
			if err != nil {
				return "", err
			}
			if disconnected {
				return OutcomeReconnected, c.recover(ctx, stage.InGame)
			}
		} else {
			disconnected, err := c.check(ctx, config.PredicateDisconnect)
			if err != nil {
				return "", err
			}
			if disconnected {
				c.watchdog.Exit()
				return OutcomeReconnected, c.recover(ctx, stage.InGame)
			}
		}

		if _, err := c.watchdog.CheckStay(ctx, c.opts.InGame); err != nil {
			return "", err
		}
	}
}

// settle clears the chat line, sends the optional message and leaves the
// settlement screen.
func (c *Controller) settle(ctx context.Context) error {
	co := c.opts.Coords
	if err := c.click(ctx, co.SafePoint, delayed(time.Second, time.Second)); err != nil {
		return err
	}

	if err := c.tap(ctx, "enter"); err != nil {
		return err
	}
	if err := input.Chord(c.input, "ctrl", "a"); err != nil {
		return err
	}
	if err := c.tap(ctx, "delete"); err != nil {
		return err
	}

	if c.opts.Role == config.RoleKiller && c.opts.PostMatchMessage != "" {
		if err := c.sendMessage(ctx, c.opts.PostMatchMessage); err != nil {
			return err
		}
	}

	if err := c.click(ctx, co.ContinueButton, delayed(500*time.Millisecond, time.Second)); err != nil {
		return err
	}
	return c.click(ctx, co.SafePoint, delayed(time.Second, 3*time.Second))
}

func (c *Controller) sendMessage(ctx context.Context, msg string) error {
	if err := c.tap(ctx, "enter"); err != nil {
		return err
	}
	if err := c.input.TypeText(msg); err != nil {
		return err
	}
	if err := c.tap(ctx, "enter"); err != nil {
		return err
	}
	c.logger.Debug("post-match message sent")
	return c.sleep(ctx, messageSettle)
}
