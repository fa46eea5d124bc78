package gameloop

import (
	"context"
	"time"

	"github.com/nerrad567/afkloop/internal/input"
)

// shouldSelectCharacter: never without a roster, once for a single
// character, every cycle for a rotation.
func (c *Controller) shouldSelectCharacter() bool {
	switch len(c.opts.Characters) {
	case 0:
		return false
	case 1:
		return !c.selectedOnce
	default:
		return true
	}
}

// shouldSelectLoadout limits loadout selection to the first pass through
// the roster.
func (c *Controller) shouldSelectLoadout(cycle int) bool {
	return c.opts.Loadout >= 1 && c.opts.Loadout <= len(c.opts.Coords.LoadoutSlots) &&
		cycle <= len(c.opts.Characters)
}

// selectCharacter searches for the next character in the rotation and
// equips it, advancing the rotation index.
func (c *Controller) selectCharacter(ctx context.Context) error {
	i := c.state.NextCharacter(len(c.opts.Characters))
	name := c.opts.Characters[i]
	c.logger.Info("selecting character", "character", name, "index", i)

	co := c.opts.Coords
	twice := input.ClickOptions{PreDelay: time.Second, Times: 2, Interval: time.Second}

	if err := c.click(ctx, co.SafePoint, delayed(500*time.Millisecond, 0)); err != nil {
		return err
	}
	if err := c.click(ctx, co.CharacterButton, delayed(time.Second, 0)); err != nil {
		return err
	}
	if err := c.click(ctx, co.SearchBox, delayed(time.Second, 0)); err != nil {
		return err
	}
	if err := c.input.TypeText(name); err != nil {
		return err
	}
	if err := c.click(ctx, co.FirstCharacter, twice); err != nil {
		return err
	}
	if err := c.click(ctx, co.CharacterButton, twice); err != nil {
		return err
	}

	c.state.SetCharacter(name)
	c.selectedOnce = true
	return nil
}

func (c *Controller) selectLoadout(ctx context.Context) error {
	co := c.opts.Coords
	c.logger.Info("selecting loadout", "slot", c.opts.Loadout)
	if err := c.click(ctx, co.LoadoutButton, delayed(time.Second, 0)); err != nil {
		return err
	}
	return c.click(ctx, co.LoadoutSlots[c.opts.Loadout-1], delayed(time.Second, 0))
}
