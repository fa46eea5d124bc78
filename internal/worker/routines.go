package worker

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/nerrad567/afkloop/internal/infrastructure/config"
	"github.com/nerrad567/afkloop/internal/input"
	"github.com/nerrad567/afkloop/internal/script"
)

// SurvivorBlock is the character name scripts see for the survivor role.
const SurvivorBlock = "逃生者"

// scriptIdle is the pause after a script pass that ran nothing.
const scriptIdle = time.Second

// Killers whose built-in routine differs from the default.
var (
	blightNames = []string{"枯萎者", "BLIGHT"}
	spiritNames = []string{"怨灵", "SPIRIT"}

	// ctrlKillers follow their skill with a held ctrl power.
	ctrlKillers = []string{
		"医生", "梦魇", "小丑", "魔王", "连体婴", "影魔", "白骨商人", "好孩子", "未知恶物", "巫妖",
		"DOCTOR", "NIGHTMARE", "CLOWN", "DEMOGORGON", "TWINS", "DREDGE", "SKULL MERCHANT", "GOOD GUY",
		"UNKNOWN", "LICH",
	}

	// clickKillers need a left click while aiming to fire their power.
	clickKillers = []string{
		"门徒", "魔王", "死亡枪手", "骗术师", "NEMESIS", "地狱修士", "艺术家", "影魔", "奇点", "操纵者",
		"好孩子", "未知恶物", "巫妖", "黑暗之主",
		"PIG", "DEMOGORGON", "DEATHSLINGER", "TRICKSTER", "CENOBITE", "ARTIST", "DREDGE",
		"SINGULARITY", "MASTERMIND", "GOOD GUY", "UNKNOWN", "LICH", "DARK LORD",
	}
)

// Keepalive returns a Step that holds key for hold, then releases it.
func Keepalive(kb input.Keyboard, key string, hold time.Duration) Step {
	return func(ctx context.Context) error {
		return input.Press(ctx, kb, key, hold)
	}
}

// ScriptRunner is the interpreter surface the action worker uses.
type ScriptRunner interface {
	Execute(ctx context.Context, character string) (script.Result, error)
}

// ActionConfig configures the action routine.
type ActionConfig struct {
	// Role is config.RoleSurvivor or config.RoleKiller.
	Role string

	// Mode is config.ModeRandom or config.ModeFixed.
	Mode string

	// Script, if set, runs before the built-in routine and replaces it when
	// it handled the pass.
	Script ScriptRunner

	// Operator sends input. Its Keys and Mouse should be the worker's tracker.
	Operator *script.Operator

	// Character returns the killer currently in play.
	Character func() string
}

// Action returns the action worker's Step.
func Action(cfg ActionConfig) Step {
	return func(ctx context.Context) error {
		character := SurvivorBlock
		if cfg.Role == config.RoleKiller && cfg.Character != nil {
			character = cfg.Character()
		}

		if cfg.Script != nil {
			res, err := cfg.Script.Execute(ctx, character)
			switch {
			case errors.Is(err, script.ErrConcurrentMutation):
				return nil
			case err != nil:
				return err
			}
			if res.Handled() {
				if res.Ran == 0 {
					return input.Sleep(ctx, scriptIdle)
				}
				return nil
			}
		}

		if cfg.Role == config.RoleSurvivor {
			return Survivor(ctx, cfg.Operator)
		}
		if cfg.Mode == config.ModeFixed {
			return KillerFixed(ctx, cfg.Operator)
		}
		return KillerRandom(ctx, cfg.Operator, character)
	}
}

// held presses keys, runs fn, then releases keys in reverse order even
// when fn fails.
func held(ctx context.Context, kb input.Keyboard, keys []string, fn func(context.Context) error) error {
	for i, k := range keys {
		if err := kb.KeyDown(k); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = kb.KeyUp(keys[j]) //nolint:errcheck // Best effort unwind
			}
			return err
		}
	}
	err := fn(ctx)
	for i := len(keys) - 1; i >= 0; i-- {
		if upErr := kb.KeyUp(keys[i]); upErr != nil && err == nil {
			err = upErr
		}
	}
	return err
}

// taps presses key briefly n times with a gap after each.
func taps(ctx context.Context, kb input.Keyboard, key string, n int) error {
	for range n {
		if err := input.Press(ctx, kb, key, 50*time.Millisecond); err != nil {
			return err
		}
		if err := input.Sleep(ctx, 700*time.Millisecond); err != nil {
			return err
		}
	}
	return nil
}

// Survivor sprints forward while strafing, then swings.
func Survivor(ctx context.Context, op *script.Operator) error {
	return held(ctx, op.Keys, []string{"w", "lshift"}, func(ctx context.Context) error {
		if err := taps(ctx, op.Keys, op.Direction(nil), 10); err != nil {
			return err
		}
		return input.Hold(ctx, op.Mouse, input.ButtonLeft, 2*time.Second)
	})
}

// KillerRandom runs the built-in routine for character.
func KillerRandom(ctx context.Context, op *script.Operator, character string) error {
	switch {
	case slices.Contains(blightNames, character):
		return blight(ctx, op)
	case slices.Contains(spiritNames, character):
		return spirit(ctx, op)
	}

	return held(ctx, op.Keys, []string{"w"}, func(ctx context.Context) error {
		if err := taps(ctx, op.Keys, op.Direction(nil), 5); err != nil {
			return err
		}
		var err error
		if slices.Contains(clickKillers, character) {
			err = op.KillerSkillClick(ctx, script.DefaultSkillKey)
		} else {
			err = op.KillerSkill(ctx, script.DefaultSkillKey)
		}
		if err != nil {
			return err
		}
		if slices.Contains(ctrlKillers, character) {
			return op.KillerCtrl(ctx, script.DefaultSkillKey, script.Duration(script.DefaultCtrlHold))
		}
		return nil
	})
}

// blight dashes once in a random direction.
func blight(ctx context.Context, op *script.Operator) error {
	move := op.Movement(nil)
	turn := op.Direction(nil)
	return held(ctx, op.Keys, []string{move}, func(ctx context.Context) error {
		if err := input.Hold(ctx, op.Mouse, input.ButtonRight, 0); err != nil {
			return err
		}
		if err := input.Sleep(ctx, 700*time.Millisecond); err != nil {
			return err
		}
		return input.Press(ctx, op.Keys, turn, 300*time.Millisecond)
	})
}

// spirit phase-walks for a while with a turn in the middle.
func spirit(ctx context.Context, op *script.Operator) error {
	move := op.Movement(nil)
	turn := op.Direction(nil)
	return held(ctx, op.Keys, []string{move}, func(ctx context.Context) error {
		if err := op.Mouse.MouseDown(input.ButtonRight); err != nil {
			return err
		}
		err := input.Sleep(ctx, 3*time.Second)
		if err == nil {
			err = input.Press(ctx, op.Keys, turn, 300*time.Millisecond)
		}
		if err == nil {
			err = input.Sleep(ctx, 5*time.Second)
		}
		if upErr := op.Mouse.MouseUp(input.ButtonRight); upErr != nil && err == nil {
			err = upErr
		}
		return err
	})
}

// KillerFixed uses the ctrl power, then patrols with four random
// walk-turn-aim rounds and ends with an attack.
func KillerFixed(ctx context.Context, op *script.Operator) error {
	return held(ctx, op.Keys, []string{"w"}, func(ctx context.Context) error {
		if err := op.KillerCtrl(ctx, script.DefaultSkillKey, script.Duration(script.DefaultCtrlHold)); err != nil {
			return err
		}
		for range 4 {
			if err := input.Press(ctx, op.Keys, op.Movement(nil), script.Duration(op.Uniform(1.5, 5.0))); err != nil {
				return err
			}
			if err := input.Press(ctx, op.Keys, op.Direction(nil), script.Duration(op.Uniform(0.285, 0.6))); err != nil {
				return err
			}
			if err := input.Hold(ctx, op.Mouse, input.ButtonRight, 4*time.Second); err != nil {
				return err
			}
			if err := input.Sleep(ctx, 300*time.Millisecond); err != nil {
				return err
			}
		}
		return input.Hold(ctx, op.Mouse, input.ButtonLeft, 2*time.Second)
	})
}
