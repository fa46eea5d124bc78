// Package inputtest provides a recording input.Device for tests.
package inputtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/afkloop/internal/input"
)

// Event is one recorded input operation.
type Event struct {
	Op     string // "down", "up", "mdown", "mup", "click", "type"
	Key    string
	X, Y   int
	Times  int
	Button string
}

func (e Event) String() string {
	switch e.Op {
	case "click":
		return fmt.Sprintf("click(%d,%d)x%d", e.X, e.Y, e.Times)
	case "type":
		return "type(" + e.Key + ")"
	default:
		return e.Op + "(" + e.Key + ")"
	}
}

// Recorder implements input.Device and records every call.
// Delays in ClickOptions are not slept.
type Recorder struct {
	mu     sync.Mutex
	events []Event

	// FailKey, if set, makes KeyDown of that key fail.
	FailKey string
}

var _ input.Device = (*Recorder)(nil)

func (r *Recorder) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// KeyDown records a key press.
func (r *Recorder) KeyDown(key string) error {
	if r.FailKey != "" && key == r.FailKey {
		return fmt.Errorf("key %s unavailable", key)
	}
	r.add(Event{Op: "down", Key: key})
	return nil
}

// KeyUp records a key release.
func (r *Recorder) KeyUp(key string) error {
	r.add(Event{Op: "up", Key: key})
	return nil
}

// MouseDown records a button press.
func (r *Recorder) MouseDown(button string) error {
	r.add(Event{Op: "mdown", Key: button})
	return nil
}

// MouseUp records a button release.
func (r *Recorder) MouseUp(button string) error {
	r.add(Event{Op: "mup", Key: button})
	return nil
}

// MoveClick records a click without sleeping.
func (r *Recorder) MoveClick(ctx context.Context, x, y int, opts input.ClickOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	times := opts.Times
	if times < 1 {
		times = 1
	}
	button := opts.Button
	if button == "" {
		button = input.ButtonLeft
	}
	r.add(Event{Op: "click", X: x, Y: y, Times: times, Button: button})
	return nil
}

// TypeText records typed text.
func (r *Recorder) TypeText(text string) error {
	r.add(Event{Op: "type", Key: text})
	return nil
}

// Events returns a copy of everything recorded.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Strings renders Events with Event.String.
func (r *Recorder) Strings() []string {
	evs := r.Events()
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.String()
	}
	return out
}

// Clicks returns only the click events.
func (r *Recorder) Clicks() []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Op == "click" {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events match op and key. An empty key matches any.
func (r *Recorder) Count(op, key string) int {
	n := 0
	for _, e := range r.Events() {
		if e.Op == op && (key == "" || e.Key == key) {
			n++
		}
	}
	return n
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
