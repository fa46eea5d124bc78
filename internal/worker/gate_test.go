package worker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGate_OpenByDefault(t *testing.T) {
	g := NewGate()
	if g.Paused() {
		t.Error("Paused() = true for new gate")
	}
	if err := g.Wait(context.Background()); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestGate_PauseBlocksUntilResume(t *testing.T) {
	g := NewGate()
	g.Pause()
	g.Pause() // idempotent

	released := make(chan error, 1)
	go func() { released <- g.Wait(context.Background()) }()

	select {
	case <-released:
		t.Fatal("Wait() returned while paused")
	case <-time.After(30 * time.Millisecond):
	}

	g.Resume()
	select {
	case err := <-released:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait() did not return after Resume")
	}
	g.Resume() // idempotent
}

func TestGate_WaitHonoursContext(t *testing.T) {
	g := NewGate()
	g.Pause()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := g.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}
}

func TestGate_RepauseAfterResume(t *testing.T) {
	g := NewGate()
	g.Pause()
	g.Resume()
	g.Pause()
	if !g.Paused() {
		t.Error("Paused() = false after second Pause")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := g.Wait(ctx); err == nil {
		t.Error("Wait() returned nil on a re-paused gate")
	}
}
