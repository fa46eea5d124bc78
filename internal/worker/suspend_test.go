package worker

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/nerrad567/afkloop/internal/input"
	"github.com/nerrad567/afkloop/internal/input/inputtest"
	"github.com/nerrad567/afkloop/internal/state"
)

// ─── Mock Dependencies ─────────────────────────────────────────────

type failingSuspender struct {
	resumed int
}

func (f *failingSuspender) Suspend(context.Context) error { return errors.New("no such process") }
func (f *failingSuspender) Resume(context.Context) error {
	f.resumed++
	return nil
}

type countingSuspender struct {
	suspends, resumes int
}

func (c *countingSuspender) Suspend(context.Context) error {
	c.suspends++
	return nil
}

func (c *countingSuspender) Resume(context.Context) error {
	c.resumes++
	return nil
}

func newSuspendFixture(s Suspender) (*Supervisor, *input.Tracker, *inputtest.Recorder, *state.State) {
	rec := &inputtest.Recorder{}
	tr := input.NewTracker(rec)
	w := New(Config{Name: "action", Tracker: tr, Step: func(context.Context) error { return nil }})
	st := state.New()
	sup := NewSupervisor(st, s, w)
	sup.SetSettle(0)
	return sup, tr, rec, st
}

// pressSequence returns a Step that taps k0..k9 through tr, 10ms down and
// 10ms up each.
func pressSequence(tr *input.Tracker) Step {
	return func(ctx context.Context) error {
		for i := range 10 {
			k := fmt.Sprintf("k%d", i)
			if err := tr.KeyDown(k); err != nil {
				return err
			}
			err := input.Sleep(ctx, 10*time.Millisecond)
			if upErr := tr.KeyUp(k); upErr != nil && err == nil {
				err = upErr
			}
			if err != nil {
				return err
			}
			if err := input.Sleep(ctx, 10*time.Millisecond); err != nil {
				return err
			}
		}
		return nil
	}
}

func newSequenceFixture(t *testing.T) (*Supervisor, *Gate, *inputtest.Recorder) {
	t.Helper()
	gate := NewGate()
	rec := &inputtest.Recorder{}
	tr := input.NewTracker(rec)
	w := New(Config{Name: "action", Gate: gate, Tracker: tr, GracefulTimeout: time.Second, Step: pressSequence(tr)})
	sup := NewSupervisor(state.New(), NewGateSuspender(gate), w)
	sup.SetSettle(0)
	if err := sup.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	t.Cleanup(func() { _ = sup.StopAll() }) //nolint:errcheck // Test cleanup
	return sup, gate, rec
}

// ─── Tests ─────────────────────────────────────────────────────────

func TestSupervisor_NoInputWhileSuspended(t *testing.T) {
	sup, _, rec := newSequenceFixture(t)
	ctx := context.Background()
	waitFor(t, func() bool { return rec.Count("down", "k2") == 1 })

	if err := sup.Suspend(ctx); err != nil {
		t.Fatalf("Suspend() error = %v", err)
	}
	before := len(rec.Events())
	time.Sleep(150 * time.Millisecond)
	if got := rec.Events()[before:]; len(got) != 0 {
		t.Fatalf("inputs sent while suspended: %v", got)
	}

	if err := sup.ResumeProcess(ctx); err != nil {
		t.Fatalf("ResumeProcess() error = %v", err)
	}
	waitFor(t, func() bool { return rec.Count("down", "k5") >= 1 })
}

func TestSupervisor_PauseHoldsBackNextPress(t *testing.T) {
	_, gate, rec := newSequenceFixture(t)
	waitFor(t, func() bool { return rec.Count("down", "k1") == 1 })

	gate.Pause()
	downs := rec.Count("down", "")
	time.Sleep(150 * time.Millisecond)
	// A press already past the gate may still land.
	if got := rec.Count("down", ""); got > downs+1 {
		t.Errorf("presses while paused = %d, want at most 1", got-downs)
	}

	gate.Resume()
	waitFor(t, func() bool { return rec.Count("down", "") > downs+2 })
}

func TestSupervisor_StopWhileSuspendedIsPrompt(t *testing.T) {
	sup, _, rec := newSequenceFixture(t)
	waitFor(t, func() bool { return rec.Count("down", "k1") == 1 })

	if err := sup.Suspend(context.Background()); err != nil {
		t.Fatalf("Suspend() error = %v", err)
	}
	if err := sup.StopAll(); err != nil {
		t.Errorf("StopAll() error = %v, want a graceful stop", err)
	}
	if sup.Running() {
		t.Error("Running() = true after StopAll")
	}
}

func TestSupervisor_SuspendResumeRestoresInputs(t *testing.T) {
	gate := NewGate()
	sup, tr, rec, st := newSuspendFixture(NewGateSuspender(gate))
	ctx := context.Background()

	_ = tr.KeyDown("w")
	_ = tr.KeyDown("lshift")
	_ = tr.MouseDown(input.ButtonRight)
	rec.Reset()

	if err := sup.Suspend(ctx); err != nil {
		t.Fatalf("Suspend() error = %v", err)
	}
	if !gate.Paused() || !sup.Suspended() {
		t.Error("gate not paused after Suspend")
	}
	if !st.Status().Suspended {
		t.Error("state does not report a stored snapshot")
	}
	want := []string{"up(lshift)", "up(w)", "mup(right)"}
	if got := rec.Strings(); !reflect.DeepEqual(got, want) {
		t.Errorf("suspend events = %v, want %v", got, want)
	}
	if !tr.Pressed().Empty() {
		t.Errorf("tracker holds %+v after suspend", tr.Pressed())
	}

	rec.Reset()
	if err := sup.ResumeProcess(ctx); err != nil {
		t.Fatalf("ResumeProcess() error = %v", err)
	}
	want = []string{"down(lshift)", "down(w)", "mdown(right)"}
	if got := rec.Strings(); !reflect.DeepEqual(got, want) {
		t.Errorf("resume events = %v, want %v", got, want)
	}
	if gate.Paused() || sup.Suspended() {
		t.Error("gate still paused after ResumeProcess")
	}
	if _, ok := st.TakeSnapshots(); ok {
		t.Error("snapshot not cleared after resume")
	}
}

func TestSupervisor_ResumeWithoutSnapshotIsNoop(t *testing.T) {
	sup, _, rec, _ := newSuspendFixture(&countingSuspender{})

	if err := sup.Resume(context.Background()); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if len(rec.Events()) != 0 {
		t.Errorf("events = %v, want none", rec.Strings())
	}
}

func TestSupervisor_EmptySnapshotRestoresNothing(t *testing.T) {
	cs := &countingSuspender{}
	sup, _, rec, _ := newSuspendFixture(cs)
	ctx := context.Background()

	if err := sup.Suspend(ctx); err != nil {
		t.Fatalf("Suspend() error = %v", err)
	}
	if err := sup.ResumeProcess(ctx); err != nil {
		t.Fatalf("ResumeProcess() error = %v", err)
	}
	if len(rec.Events()) != 0 {
		t.Errorf("events = %v, want none", rec.Strings())
	}
	if cs.suspends != 1 || cs.resumes != 1 {
		t.Errorf("suspends/resumes = %d/%d, want 1/1", cs.suspends, cs.resumes)
	}
}

func TestSupervisor_ReleasedWhileParkedNotRestored(t *testing.T) {
	sup, tr, rec, _ := newSuspendFixture(&countingSuspender{})
	ctx := context.Background()

	_ = tr.KeyDown("w")
	_ = tr.KeyDown("space")
	if err := sup.Suspend(ctx); err != nil {
		t.Fatalf("Suspend() error = %v", err)
	}
	// The keepalive finishes its press/release pair after the park.
	_ = tr.KeyUp("space")
	rec.Reset()

	if err := sup.ResumeProcess(ctx); err != nil {
		t.Fatalf("ResumeProcess() error = %v", err)
	}
	if got := rec.Strings(); !reflect.DeepEqual(got, []string{"down(w)"}) {
		t.Errorf("resume events = %v, want only down(w)", got)
	}
}

func TestSupervisor_FailedSuspendKeepsRunning(t *testing.T) {
	fs := &failingSuspender{}
	sup, tr, rec, _ := newSuspendFixture(fs)

	_ = tr.KeyDown("w")
	rec.Reset()

	if err := sup.Suspend(context.Background()); err == nil {
		t.Fatal("Suspend() error = nil, want failure")
	}
	if sup.Suspended() {
		t.Error("Suspended() = true after failed suspend")
	}
	if got := rec.Strings(); !reflect.DeepEqual(got, []string{"up(w)", "down(w)"}) {
		t.Errorf("events = %v, want w released then re-pressed", got)
	}
	if p := tr.Pressed(); len(p.Keys) != 1 || p.Keys[0] != "w" {
		t.Errorf("tracker holds %+v, want w", p)
	}
}

func TestSupervisor_ResumeProcessWhenNotSuspended(t *testing.T) {
	cs := &countingSuspender{}
	sup, _, _, _ := newSuspendFixture(cs)

	if err := sup.ResumeProcess(context.Background()); err != nil {
		t.Errorf("ResumeProcess() error = %v", err)
	}
	if cs.resumes != 0 {
		t.Errorf("resumes = %d, want 0", cs.resumes)
	}
}

func TestMultiSuspender_UnwindsOnFailure(t *testing.T) {
	first := &countingSuspender{}
	failing := &failingSuspender{}
	m := MultiSuspender{first, failing}

	if err := m.Suspend(context.Background()); err == nil {
		t.Fatal("Suspend() error = nil, want failure")
	}
	if first.suspends != 1 || first.resumes != 1 {
		t.Errorf("first suspends/resumes = %d/%d, want 1/1", first.suspends, first.resumes)
	}
}

func TestSupervisor_StartAllStopAll(t *testing.T) {
	gate := NewGate()
	rec := &inputtest.Recorder{}
	keep := New(Config{Name: "keepalive", Gate: gate, Tracker: input.NewTracker(rec),
		Step: Keepalive(rec, "space", 0)})
	sup := NewSupervisor(state.New(), NewGateSuspender(gate), keep)
	ctx := context.Background()

	if err := sup.StartAll(ctx); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	if err := sup.StartAll(ctx); err != nil {
		t.Errorf("second StartAll() error = %v", err)
	}
	if !sup.Running() {
		t.Error("Running() = false after StartAll")
	}
	if err := sup.StopAll(); err != nil {
		t.Errorf("StopAll() error = %v", err)
	}
	if sup.Running() {
		t.Error("Running() = true after StopAll")
	}
}

func TestSupervisor_Stats(t *testing.T) {
	sup, _, _, _ := newSuspendFixture(&countingSuspender{})

	stats := sup.Stats()
	if len(stats) != 1 {
		t.Fatalf("len(Stats()) = %d, want 1", len(stats))
	}
	if stats[0].Name != "action" {
		t.Errorf("Stats()[0].Name = %q, want action", stats[0].Name)
	}
	if stats[0].Status != StatusStopped {
		t.Errorf("Stats()[0].Status = %q, want %q", stats[0].Status, StatusStopped)
	}
}
