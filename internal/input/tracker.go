package input

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Gate holds back new presses while paused. *worker.Gate implements it.
type Gate interface {
	Wait(ctx context.Context) error
	Paused() bool
}

// Tracker wraps a Device and records every key and button held down.
//
// New presses (KeyDown, MouseDown, MoveClick, TypeText) wait while the
// bound Gate is paused or a Park is in effect; releases never wait. Between
// Park and Restore, releases of parked inputs are remembered so Restore
// does not re-press something its owner already let go.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Tracker struct {
	dev Device

	mu       sync.Mutex
	keys     map[string]struct{}
	buttons  map[string]struct{}
	released map[string]struct{}

	// unparked is non-nil while parked and closed by Restore.
	unparked chan struct{}

	gate    Gate
	bindCtx context.Context
}

// NewTracker wraps dev.
func NewTracker(dev Device) *Tracker {
	return &Tracker{
		dev:      dev,
		keys:     make(map[string]struct{}),
		buttons:  make(map[string]struct{}),
		released: make(map[string]struct{}),
	}
}

// Bind makes new presses wait on gate. A wait gives up with an error once
// ctx is done, so a press blocked by a pause cannot outlive its owner.
// A nil gate only binds ctx.
func (t *Tracker) Bind(ctx context.Context, gate Gate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bindCtx = ctx
	t.gate = gate
}

// Wait blocks until a new press would be sent: the gate is open and no
// Park is in effect.
func (t *Tracker) Wait(ctx context.Context) error {
	if err := t.admit(ctx); err != nil {
		return err
	}
	t.mu.Unlock()
	return nil
}

// admit waits like Wait and returns with t.mu held on success.
func (t *Tracker) admit(ctx context.Context) error {
	t.mu.Lock()
	bound := t.bindCtx
	t.mu.Unlock()
	if bound != nil {
		if err := bound.Err(); err != nil {
			return err
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(bound, cancel)
		defer stop()
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.mu.Lock()
		switch {
		case t.unparked != nil:
			ch := t.unparked
			t.mu.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ch:
			}
		case t.gate != nil && t.gate.Paused():
			gate := t.gate
			t.mu.Unlock()
			if err := gate.Wait(ctx); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// KeyDown presses key and records it.
func (t *Tracker) KeyDown(key string) error {
	if err := t.admit(context.Background()); err != nil {
		return err
	}
	defer t.mu.Unlock()
	return t.keyDownLocked(key)
}

func (t *Tracker) keyDownLocked(key string) error {
	if err := t.dev.KeyDown(key); err != nil {
		return err
	}
	t.keys[key] = struct{}{}
	return nil
}

// KeyUp releases key and forgets it. While parked, a key the park already
// released is only noted, not released twice.
func (t *Tracker) KeyUp(key string) error {
	t.mu.Lock()
	_, held := t.keys[key]
	delete(t.keys, key)
	if t.unparked != nil {
		t.released["k:"+key] = struct{}{}
		if !held {
			t.mu.Unlock()
			return nil
		}
	}
	t.mu.Unlock()
	return t.dev.KeyUp(key)
}

// MouseDown presses button and records it.
func (t *Tracker) MouseDown(button string) error {
	if err := t.admit(context.Background()); err != nil {
		return err
	}
	defer t.mu.Unlock()
	return t.mouseDownLocked(button)
}

func (t *Tracker) mouseDownLocked(button string) error {
	if err := t.dev.MouseDown(button); err != nil {
		return err
	}
	t.buttons[button] = struct{}{}
	return nil
}

// MouseUp releases button and forgets it, like KeyUp.
func (t *Tracker) MouseUp(button string) error {
	t.mu.Lock()
	_, held := t.buttons[button]
	delete(t.buttons, button)
	if t.unparked != nil {
		t.released["b:"+button] = struct{}{}
		if !held {
			t.mu.Unlock()
			return nil
		}
	}
	t.mu.Unlock()
	return t.dev.MouseUp(button)
}

// MoveClick waits for the gate, then passes through to the device. The
// click itself runs unlocked since it may carry long delays.
func (t *Tracker) MoveClick(ctx context.Context, x, y int, opts ClickOptions) error {
	if err := t.admit(ctx); err != nil {
		return err
	}
	t.mu.Unlock()
	return t.dev.MoveClick(ctx, x, y, opts)
}

// TypeText waits for the gate, then passes through to the device.
func (t *Tracker) TypeText(text string) error {
	if err := t.admit(context.Background()); err != nil {
		return err
	}
	t.mu.Unlock()
	return t.dev.TypeText(text)
}

// Pressed returns the currently held inputs, sorted.
func (t *Tracker) Pressed() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	s := Snapshot{}
	for k := range t.keys {
		s.Keys = append(s.Keys, k)
	}
	for b := range t.buttons {
		s.Buttons = append(s.Buttons, b)
	}
	sort.Strings(s.Keys)
	sort.Strings(s.Buttons)
	return s
}

// ReleaseAll releases every held input and clears the record.
// All releases are attempted; errors are joined.
func (t *Tracker) ReleaseAll() error {
	t.mu.Lock()
	snap := t.snapshotLocked()
	clear(t.keys)
	clear(t.buttons)
	t.mu.Unlock()
	return t.release(snap)
}

// Park snapshots and releases every held input. Until Restore, new
// presses wait and releases are remembered.
func (t *Tracker) Park() (Snapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := t.snapshotLocked()
	clear(t.keys)
	clear(t.buttons)
	clear(t.released)
	if t.unparked == nil {
		t.unparked = make(chan struct{})
	}
	return snap, t.release(snap)
}

// Restore re-presses the inputs in snap, skipping any that were released
// by their owner since Park, then lets waiting presses through. An empty
// snapshot presses nothing.
func (t *Tracker) Restore(snap Snapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	for _, k := range snap.Keys {
		if _, gone := t.released["k:"+k]; gone {
			continue
		}
		if err := t.keyDownLocked(k); err != nil {
			errs = append(errs, fmt.Errorf("restoring key %s: %w", k, err))
		}
	}
	for _, b := range snap.Buttons {
		if _, gone := t.released["b:"+b]; gone {
			continue
		}
		if err := t.mouseDownLocked(b); err != nil {
			errs = append(errs, fmt.Errorf("restoring button %s: %w", b, err))
		}
	}

	clear(t.released)
	if t.unparked != nil {
		close(t.unparked)
		t.unparked = nil
	}
	return errors.Join(errs...)
}

func (t *Tracker) release(snap Snapshot) error {
	var errs []error
	for _, k := range snap.Keys {
		if err := t.dev.KeyUp(k); err != nil {
			errs = append(errs, fmt.Errorf("releasing key %s: %w", k, err))
		}
	}
	for _, b := range snap.Buttons {
		if err := t.dev.MouseUp(b); err != nil {
			errs = append(errs, fmt.Errorf("releasing button %s: %w", b, err))
		}
	}
	return errors.Join(errs...)
}
