package jobs

import (
	"sync"
	"time"

	"live-transcriber/internal/domain"
)

// EventType classifies messages relayed from a job to the presentation side.
type EventType string

const (
	EventTypeLog       EventType = "log"
	EventTypeStatus    EventType = "status"
	EventTypePhase     EventType = "phase"
	EventTypeControls  EventType = "controls"
	EventTypeCompleted EventType = "completed"
	EventTypeSaved     EventType = "saved"
)

// Event is a sequenced payload applied by the presentation controller.
type Event struct {
	Seq        int64           `json:"seq"`
	Timestamp  time.Time       `json:"timestamp"`
	JobID      string          `json:"jobId,omitempty"`
	Type       EventType       `json:"type"`
	Phase      domain.JobPhase `json:"phase,omitempty"`
	Severity   domain.Severity `json:"severity,omitempty"`
	Message    string          `json:"message,omitempty"`
	Enabled    bool            `json:"enabled,omitempty"`
	Transcript string          `json:"transcript,omitempty"`
	BackupPath string          `json:"backupPath,omitempty"`
	SourcePath string          `json:"sourcePath,omitempty"`
	Path       string          `json:"path,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// EventBus stores recent events and provides incremental reads.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event and assigns sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
