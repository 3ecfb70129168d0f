package jobs

import (
	"errors"
	"fmt"
	"sync"

	"live-transcriber/internal/domain"
)

// ErrJobAlreadyRunning is returned when starting a second active job.
var ErrJobAlreadyRunning = errors.New("job already running")

// ErrEmptyFilePath is returned when a job is requested without a file.
var ErrEmptyFilePath = errors.New("no media file selected")

// Manager tracks the single allowed active job and its transitions.
type Manager struct {
	mu      sync.RWMutex
	current domain.Job
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{
		current: domain.Job{
			Phase: domain.JobPhaseIdle,
		},
	}
}

// Start creates a new job and moves it to the loading phase.
func (m *Manager) Start(jobID string, req domain.JobRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isActive(m.current.Phase) {
		return ErrJobAlreadyRunning
	}

	m.current = domain.Job{
		ID:      jobID,
		Phase:   domain.JobPhaseLoading,
		Request: req,
	}
	return nil
}

// Transition validates and applies a phase change for the current job.
func (m *Manager) Transition(phase domain.JobPhase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" && phase != domain.JobPhaseIdle {
		return fmt.Errorf("cannot transition without an active job")
	}
	if phase == m.current.Phase {
		return nil
	}
	if !isValidTransition(m.current.Phase, phase) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Phase, phase)
	}

	m.current.Phase = phase
	return nil
}

// Current returns a snapshot of the current job.
func (m *Manager) Current() domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reset clears job metadata and returns manager to idle.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = domain.Job{Phase: domain.JobPhaseIdle}
}

// IsRunning reports whether a job occupies the single worker slot.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isActive(m.current.Phase)
}

// isActive reports whether a phase blocks a new job from starting. Terminal
// phases count until cleanup resets the manager to idle.
func isActive(phase domain.JobPhase) bool {
	return phase != domain.JobPhaseIdle && phase != ""
}

// isValidTransition enforces the allowed job state machine edges.
func isValidTransition(from, to domain.JobPhase) bool {
	switch from {
	case domain.JobPhaseIdle:
		return to == domain.JobPhaseLoading
	case domain.JobPhaseLoading:
		return to == domain.JobPhaseStreaming || to == domain.JobPhaseFailed
	case domain.JobPhaseStreaming:
		return to == domain.JobPhaseFinalizing || to == domain.JobPhaseFailed
	case domain.JobPhaseFinalizing:
		return to == domain.JobPhaseCompleted || to == domain.JobPhaseFailed
	case domain.JobPhaseCompleted, domain.JobPhaseFailed:
		return to == domain.JobPhaseIdle
	default:
		return false
	}
}
