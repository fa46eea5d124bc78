package script

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nerrad567/afkloop/internal/input"
)

// Default randomisation ranges and keys.
const (
	DefaultMoveMin  = 1.1
	DefaultMoveMax  = 2.0
	DefaultVeerMin  = 0.275
	DefaultVeerMax  = 0.4
	DefaultSkillKey = "lcontrol"
	DefaultCtrlHold = 4.3
)

// Chinese mouse button names accepted by 按下鼠标 and 释放鼠标.
const (
	buttonLeftCN  = "左键"
	buttonRightCN = "右键"
)

// DefaultMovement favours walking forward.
var DefaultMovement = Weights{{"w", 2}, {"a", 1}, {"s", 1}, {"d", 1}}

// DefaultDirection turns left or right evenly.
var DefaultDirection = Weights{{"left", 1}, {"right", 1}}

// Operator performs the randomised in-match primitives shared by scripts
// and the built-in routines.
//
// Keys is the window-targeted keyboard; Mouse acts at the cursor.
type Operator struct {
	Keys  input.Keyboard
	Mouse input.Mouse

	mu  sync.Mutex
	rng *rand.Rand
}

// NewOperator creates an operator with a time-seeded random source.
func NewOperator(keys input.Keyboard, mouse input.Mouse) *Operator {
	seed := uint64(time.Now().UnixNano()) //nolint:gosec // Not security sensitive
	return NewOperatorWithSeed(keys, mouse, seed)
}

// NewOperatorWithSeed creates an operator with a deterministic random source.
func NewOperatorWithSeed(keys input.Keyboard, mouse input.Mouse, seed uint64) *Operator {
	return &Operator{
		Keys:  keys,
		Mouse: mouse,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), //nolint:gosec // Input jitter only
	}
}

// Float64 returns a value in [0, 1).
func (o *Operator) Float64() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rng.Float64()
}

// Uniform returns a value in [lo, hi) rounded to milliseconds.
func (o *Operator) Uniform(lo, hi float64) float64 {
	v := lo + (hi-lo)*o.Float64()
	return math.Round(v*1000) / 1000
}

// MoveTime returns a random walk duration in seconds.
func (o *Operator) MoveTime() float64 {
	return o.Uniform(DefaultMoveMin, DefaultMoveMax)
}

// VeerTime returns a random turn duration in seconds.
func (o *Operator) VeerTime() float64 {
	return o.Uniform(DefaultVeerMin, DefaultVeerMax)
}

// Movement picks a movement key. Nil weights use DefaultMovement.
func (o *Operator) Movement(w Weights) string {
	if len(w) == 0 {
		w = DefaultMovement
	}
	return w.Pick(o.Float64())
}

// Direction picks a turn key. Nil weights use DefaultDirection.
func (o *Operator) Direction(w Weights) string {
	if len(w) == 0 {
		w = DefaultDirection
	}
	return w.Pick(o.Float64())
}

// RandomMove holds a random movement key for d.
func (o *Operator) RandomMove(ctx context.Context, d time.Duration) error {
	return input.Press(ctx, o.Keys, o.Movement(nil), d)
}

// RandomVeer holds a random turn key for d.
func (o *Operator) RandomVeer(ctx context.Context, d time.Duration) error {
	return input.Press(ctx, o.Keys, o.Direction(nil), d)
}

// KillerCtrl holds the skill key for d.
func (o *Operator) KillerCtrl(ctx context.Context, key string, d time.Duration) error {
	return input.Press(ctx, o.Keys, key, d)
}

// KillerSkill aims with the right button for 3s, taps key, then releases aim.
func (o *Operator) KillerSkill(ctx context.Context, key string) error {
	if err := o.Mouse.MouseDown(input.ButtonRight); err != nil {
		return err
	}
	waitErr := input.Sleep(ctx, 3*time.Second)
	if waitErr == nil {
		waitErr = input.Press(ctx, o.Keys, key, 0)
	}
	if err := o.Mouse.MouseUp(input.ButtonRight); err != nil {
		return err
	}
	return waitErr
}

// KillerSkillClick aims for 3s, left-clicks, releases aim, waits 2s and taps key.
func (o *Operator) KillerSkillClick(ctx context.Context, key string) error {
	if err := o.Mouse.MouseDown(input.ButtonRight); err != nil {
		return err
	}
	waitErr := input.Sleep(ctx, 3*time.Second)
	if waitErr == nil {
		waitErr = input.Hold(ctx, o.Mouse, input.ButtonLeft, 0)
	}
	if err := o.Mouse.MouseUp(input.ButtonRight); err != nil {
		return err
	}
	if waitErr != nil {
		return waitErr
	}
	if err := input.Sleep(ctx, 2*time.Second); err != nil {
		return err
	}
	return input.Press(ctx, o.Keys, key, 0)
}

// mouseButton maps 左键/右键 (or left/right) to an input button.
func mouseButton(name string) (string, bool) {
	switch name {
	case buttonLeftCN, input.ButtonLeft:
		return input.ButtonLeft, true
	case buttonRightCN, input.ButtonRight:
		return input.ButtonRight, true
	default:
		return "", false
	}
}

// Duration converts seconds to a time.Duration.
func Duration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}
