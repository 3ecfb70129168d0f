package jobs

import (
	"testing"

	"live-transcriber/internal/domain"
)

// TestManagerLifecycle verifies normal progression back to idle.
func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	if m.IsRunning() {
		t.Fatal("new manager should be idle")
	}

	if err := m.Start("job-1", domain.JobRequest{FilePath: "a.mp3"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !m.IsRunning() {
		t.Fatal("expected running after start")
	}

	for _, phase := range []domain.JobPhase{
		domain.JobPhaseStreaming,
		domain.JobPhaseFinalizing,
		domain.JobPhaseCompleted,
	} {
		if err := m.Transition(phase); err != nil {
			t.Fatalf("transition to %s: %v", phase, err)
		}
	}
	if !m.IsRunning() {
		t.Fatal("completed job holds the slot until cleanup")
	}
	if err := m.Transition(domain.JobPhaseIdle); err != nil {
		t.Fatalf("transition to idle: %v", err)
	}
	if m.IsRunning() {
		t.Fatal("expected idle after cleanup")
	}
}

// TestManagerRejectsSecondStart keeps the single-job guarantee.
func TestManagerRejectsSecondStart(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1", domain.JobRequest{FilePath: "a.mp3"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Start("job-2", domain.JobRequest{FilePath: "b.mp3"}); err != ErrJobAlreadyRunning {
		t.Fatalf("second start = %v, want %v", err, ErrJobAlreadyRunning)
	}
	if got := m.Current(); got.ID != "job-1" || got.Request.FilePath != "a.mp3" {
		t.Fatalf("current = %+v, want job-1 unchanged", got)
	}
}

// TestManagerRejectsInvalidTransition checks state machine constraints.
func TestManagerRejectsInvalidTransition(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1", domain.JobRequest{FilePath: "a.mp3"}); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := m.Transition(domain.JobPhaseCompleted); err == nil {
		t.Fatal("expected invalid transition error")
	}
	if err := m.Transition(domain.JobPhaseFailed); err != nil {
		t.Fatalf("loading -> failed: %v", err)
	}
	if err := m.Transition(domain.JobPhaseStreaming); err == nil {
		t.Fatal("failed job must not resume streaming")
	}
}

// TestManagerTransitionWithoutJob refuses non-idle phases when idle.
func TestManagerTransitionWithoutJob(t *testing.T) {
	m := NewManager()
	if err := m.Transition(domain.JobPhaseStreaming); err == nil {
		t.Fatal("expected error without active job")
	}
	m.Reset()
	if m.Current().Phase != domain.JobPhaseIdle {
		t.Fatalf("phase = %s, want idle", m.Current().Phase)
	}
}
