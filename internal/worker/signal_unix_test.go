//go:build unix

package worker

import (
	"context"
	"os/exec"
	"testing"
)

func TestSignalSuspender_StopsAndContinuesChild(t *testing.T) {
	cmd := exec.Command("sleep", "5")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start child: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	s := SignalSuspender{PID: cmd.Process.Pid}
	ctx := context.Background()
	if err := s.Suspend(ctx); err != nil {
		t.Fatalf("Suspend() error = %v", err)
	}
	if err := s.Resume(ctx); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
}

func TestSignalSuspender_MissingProcess(t *testing.T) {
	s := SignalSuspender{PID: 1 << 30}
	if err := s.Suspend(context.Background()); err == nil {
		t.Error("Suspend() error = nil for a missing pid")
	}
}
