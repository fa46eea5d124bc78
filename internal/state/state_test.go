package state

import (
	"sync"
	"testing"

	"github.com/nerrad567/afkloop/internal/input"
)

func TestRequestStop_OneWay(t *testing.T) {
	s := New()
	if s.StopRequested() {
		t.Fatal("StopRequested() = true before RequestStop")
	}

	s.RequestStop()
	s.RequestStop()

	if !s.StopRequested() {
		t.Error("StopRequested() = false, want true")
	}
	select {
	case <-s.StopChan():
	default:
		t.Error("StopChan() not closed after RequestStop")
	}
}

func TestNextCharacter(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want []int
	}{
		{"rotation of three", 3, []int{0, 1, 2, 0, 1}},
		{"single character", 1, []int{0, 0, 0}},
		{"empty rotation", 0, []int{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			for i, want := range tt.want {
				if got := s.NextCharacter(tt.n); got != want {
					t.Errorf("call %d: NextCharacter(%d) = %d, want %d", i, tt.n, got, want)
				}
			}
		})
	}
}

func TestSnapshots_TakeClears(t *testing.T) {
	s := New()
	if _, ok := s.TakeSnapshots(); ok {
		t.Fatal("TakeSnapshots() ok = true on empty state")
	}

	s.StoreSnapshots(map[string]input.Snapshot{
		"action": {Keys: []string{"w"}, Buttons: []string{"right"}},
	})
	if !s.Status().Suspended {
		t.Error("Status().Suspended = false after StoreSnapshots")
	}

	snaps, ok := s.TakeSnapshots()
	if !ok || len(snaps["action"].Keys) != 1 {
		t.Fatalf("TakeSnapshots() = %v, %v", snaps, ok)
	}
	if _, ok := s.TakeSnapshots(); ok {
		t.Error("second TakeSnapshots() ok = true, want false")
	}
}

func TestStatus(t *testing.T) {
	s := New()
	s.SetRunning(true)
	s.SetStage("matching")
	s.SetForcedRecalibration(true)
	s.BeginCycle()
	s.BeginCycle()

	st := s.Status()
	if !st.Running || st.Stage != "matching" || !st.ForcedRecalibration || st.Cycles != 2 {
		t.Errorf("Status() = %+v", st)
	}
	if st.StartedAt.IsZero() || st.StageSince.IsZero() {
		t.Error("Status() timestamps not set")
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.SetStage("in_game")
				_ = s.Stage()
				s.NextCharacter(4)
				_ = s.ForcedRecalibration()
				_ = s.Status()
			}
		}()
	}
	wg.Wait()

	if got := s.CharacterIndex(); got < 0 || got > 3 {
		t.Errorf("CharacterIndex() = %d, want within [0,3]", got)
	}
}

func TestCharacter(t *testing.T) {
	s := New()
	if s.Character() != "" {
		t.Errorf("Character() = %q, want empty", s.Character())
	}
	s.SetCharacter("枯萎者")
	if got := s.Status().Character; got != "枯萎者" {
		t.Errorf("Status().Character = %q, want 枯萎者", got)
	}
}
