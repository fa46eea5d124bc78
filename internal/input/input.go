package input

import (
	"context"
	"time"
)

// Mouse button names accepted by Mouse.
const (
	ButtonLeft  = "left"
	ButtonRight = "right"
)

// Keyboard presses and releases named keys ("w", "lshift", "space", "enter").
type Keyboard interface {
	KeyDown(key string) error
	KeyUp(key string) error
}

// Mouse presses and releases mouse buttons at the current position.
type Mouse interface {
	MouseDown(button string) error
	MouseUp(button string) error
}

// Pointer moves to a client coordinate and clicks.
type Pointer interface {
	MoveClick(ctx context.Context, x, y int, opts ClickOptions) error
}

// Typer types literal text.
type Typer interface {
	TypeText(text string) error
}

// Device is the full set of input capabilities.
type Device interface {
	Keyboard
	Mouse
	Pointer
	Typer
}

// ClickOptions shapes a MoveClick.
type ClickOptions struct {
	// PreDelay is waited after moving and before the first click.
	PreDelay time.Duration

	// PostDelay is waited after the last click.
	PostDelay time.Duration

	// Times is the number of clicks. Values < 1 mean one click.
	Times int

	// Interval separates successive clicks.
	Interval time.Duration

	// Button defaults to ButtonLeft.
	Button string
}

// Click is a single left click with no delays.
var Click = ClickOptions{Times: 1}

// DoubleClick is two left clicks 100ms apart.
var DoubleClick = ClickOptions{Times: 2, Interval: 100 * time.Millisecond}

// Snapshot lists the keys and buttons held at one instant.
type Snapshot struct {
	Keys    []string `json:"keys"`
	Buttons []string `json:"buttons"`
}

// Empty reports whether nothing is held.
func (s Snapshot) Empty() bool {
	return len(s.Keys) == 0 && len(s.Buttons) == 0
}

// Sleep waits for d or until ctx is done, returning ctx.Err() in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Press holds key for hold, then releases it. The release is sent even
// when ctx is cancelled during the hold.
func Press(ctx context.Context, kb Keyboard, key string, hold time.Duration) error {
	if err := kb.KeyDown(key); err != nil {
		return err
	}
	waitErr := Sleep(ctx, hold)
	if err := kb.KeyUp(key); err != nil {
		return err
	}
	return waitErr
}

// Hold holds a mouse button for hold, then releases it.
func Hold(ctx context.Context, m Mouse, button string, hold time.Duration) error {
	if err := m.MouseDown(button); err != nil {
		return err
	}
	waitErr := Sleep(ctx, hold)
	if err := m.MouseUp(button); err != nil {
		return err
	}
	return waitErr
}

// Chord presses keys in order, then releases them in reverse (ctrl+a style).
func Chord(kb Keyboard, keys ...string) error {
	for i, k := range keys {
		if err := kb.KeyDown(k); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = kb.KeyUp(keys[j]) //nolint:errcheck // Best effort unwind
			}
			return err
		}
	}
	for i := len(keys) - 1; i >= 0; i-- {
		if err := kb.KeyUp(keys[i]); err != nil {
			return err
		}
	}
	return nil
}
