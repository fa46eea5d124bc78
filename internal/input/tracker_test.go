package input_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/nerrad567/afkloop/internal/input"
	"github.com/nerrad567/afkloop/internal/input/inputtest"
	"github.com/nerrad567/afkloop/internal/worker"
)

// pressAsync runs KeyDown on its own goroutine and reports its result.
func pressAsync(tr *input.Tracker, key string) <-chan error {
	done := make(chan error, 1)
	go func() { done <- tr.KeyDown(key) }()
	return done
}

func assertBlocked(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		t.Fatalf("KeyDown() returned %v, want it to wait", err)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestTracker_RecordsHeldInputs(t *testing.T) {
	rec := &inputtest.Recorder{}
	tr := input.NewTracker(rec)

	_ = tr.KeyDown("w")
	_ = tr.KeyDown("lshift")
	_ = tr.MouseDown(input.ButtonRight)
	_ = tr.KeyUp("lshift")

	want := input.Snapshot{Keys: []string{"w"}, Buttons: []string{"right"}}
	if got := tr.Pressed(); !reflect.DeepEqual(got, want) {
		t.Errorf("Pressed() = %+v, want %+v", got, want)
	}
}

func TestTracker_FailedPressNotRecorded(t *testing.T) {
	rec := &inputtest.Recorder{FailKey: "q"}
	tr := input.NewTracker(rec)

	if err := tr.KeyDown("q"); err == nil {
		t.Fatal("KeyDown() error = nil, want failure")
	}
	if !tr.Pressed().Empty() {
		t.Errorf("Pressed() = %+v, want empty", tr.Pressed())
	}
}

func TestTracker_ReleaseAll(t *testing.T) {
	rec := &inputtest.Recorder{}
	tr := input.NewTracker(rec)
	_ = tr.KeyDown("w")
	_ = tr.MouseDown(input.ButtonLeft)
	rec.Reset()

	if err := tr.ReleaseAll(); err != nil {
		t.Fatalf("ReleaseAll() error = %v", err)
	}

	if got := rec.Strings(); !reflect.DeepEqual(got, []string{"up(w)", "mup(left)"}) {
		t.Errorf("events = %v, want [up(w) mup(left)]", got)
	}
	if !tr.Pressed().Empty() {
		t.Error("Pressed() not empty after ReleaseAll")
	}
}

func TestTracker_ParkRestore(t *testing.T) {
	tests := []struct {
		name        string
		duringPark  func(tr *input.Tracker)
		wantRestore []string
	}{
		{
			name:        "frozen owner restores everything",
			duringPark:  func(*input.Tracker) {},
			wantRestore: []string{"down(lshift)", "down(w)", "mdown(right)"},
		},
		{
			name: "owner released a key while parked",
			duringPark: func(tr *input.Tracker) {
				_ = tr.KeyUp("w")
			},
			wantRestore: []string{"down(lshift)", "mdown(right)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &inputtest.Recorder{}
			tr := input.NewTracker(rec)
			_ = tr.KeyDown("w")
			_ = tr.KeyDown("lshift")
			_ = tr.MouseDown(input.ButtonRight)

			snap, err := tr.Park()
			if err != nil {
				t.Fatalf("Park() error = %v", err)
			}
			if !tr.Pressed().Empty() {
				t.Fatal("Pressed() not empty after Park")
			}
			tt.duringPark(tr)
			rec.Reset()

			if err := tr.Restore(snap); err != nil {
				t.Fatalf("Restore() error = %v", err)
			}
			if got := rec.Strings(); !reflect.DeepEqual(got, tt.wantRestore) {
				t.Errorf("restore events = %v, want %v", got, tt.wantRestore)
			}
		})
	}
}

func TestTracker_RestoreEmptyIsNoop(t *testing.T) {
	rec := &inputtest.Recorder{}
	tr := input.NewTracker(rec)

	if err := tr.Restore(input.Snapshot{}); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if n := len(rec.Events()); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}
}

func TestPress_ReleasesOnCancel(t *testing.T) {
	rec := &inputtest.Recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := input.Press(ctx, rec, "space", time.Hour)
	if err == nil {
		t.Fatal("Press() error = nil, want context error")
	}
	if got := rec.Strings(); !reflect.DeepEqual(got, []string{"down(space)", "up(space)"}) {
		t.Errorf("events = %v, want press then release", got)
	}
}

func TestChord(t *testing.T) {
	rec := &inputtest.Recorder{}
	if err := input.Chord(rec, "lctrl", "a"); err != nil {
		t.Fatalf("Chord() error = %v", err)
	}
	want := []string{"down(lctrl)", "down(a)", "up(a)", "up(lctrl)"}
	if got := rec.Strings(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestSleep(t *testing.T) {
	if err := input.Sleep(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Sleep() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := input.Sleep(ctx, time.Hour); err == nil {
		t.Error("Sleep() on cancelled ctx = nil, want error")
	}
}

func TestTracker_PausedGateHoldsPressesNotReleases(t *testing.T) {
	rec := &inputtest.Recorder{}
	tr := input.NewTracker(rec)
	gate := worker.NewGate()
	tr.Bind(context.Background(), gate)
	_ = tr.KeyDown("w")

	gate.Pause()
	if err := tr.KeyUp("w"); err != nil {
		t.Fatalf("KeyUp() while paused error = %v", err)
	}
	done := pressAsync(tr, "a")
	assertBlocked(t, done)
	if rec.Count("down", "a") != 0 {
		t.Fatalf("events = %v, want a held back", rec.Strings())
	}

	gate.Resume()
	if err := <-done; err != nil {
		t.Fatalf("KeyDown() after resume error = %v", err)
	}
	want := []string{"down(w)", "up(w)", "down(a)"}
	if got := rec.Strings(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestTracker_ParkHoldsPressesUntilRestore(t *testing.T) {
	rec := &inputtest.Recorder{}
	tr := input.NewTracker(rec)
	_ = tr.KeyDown("w")

	snap, err := tr.Park()
	if err != nil {
		t.Fatalf("Park() error = %v", err)
	}
	rec.Reset()

	// The owner finishing its press/release pair sends nothing twice.
	if err := tr.KeyUp("w"); err != nil {
		t.Fatalf("KeyUp() error = %v", err)
	}
	done := pressAsync(tr, "a")
	assertBlocked(t, done)
	if n := len(rec.Events()); n != 0 {
		t.Fatalf("events while parked = %v, want none", rec.Strings())
	}

	if err := tr.Restore(snap); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("KeyDown() after Restore error = %v", err)
	}
	if got := rec.Strings(); !reflect.DeepEqual(got, []string{"down(a)"}) {
		t.Errorf("events = %v, want only down(a)", got)
	}
}

func TestTracker_BoundContextEndsWait(t *testing.T) {
	rec := &inputtest.Recorder{}
	tr := input.NewTracker(rec)
	gate := worker.NewGate()
	gate.Pause()
	ctx, cancel := context.WithCancel(context.Background())
	tr.Bind(ctx, gate)

	done := pressAsync(tr, "a")
	assertBlocked(t, done)
	cancel()

	if err := <-done; err == nil {
		t.Fatal("KeyDown() error = nil after the bound context ended")
	}
	if n := len(rec.Events()); n != 0 {
		t.Errorf("events = %v, want none", rec.Strings())
	}
	if err := tr.Wait(context.Background()); err == nil {
		t.Error("Wait() error = nil with an ended bound context")
	}
}

