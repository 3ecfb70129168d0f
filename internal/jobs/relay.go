package jobs

import "sync"

// Poster accepts events from any goroutine without blocking.
type Poster interface {
	Post(Event)
}

// Relay is the only channel from job workers to presentation state. Posts
// are queued without bound and applied in post order by whoever owns the
// presentation goroutine, via Drain.
type Relay struct {
	bus   *EventBus
	mu    sync.Mutex
	queue []Event
	ready chan struct{}
}

// NewRelay creates a relay recording history in bus.
func NewRelay(bus *EventBus) *Relay {
	if bus == nil {
		bus = NewEventBus(0)
	}
	return &Relay{
		bus:   bus,
		ready: make(chan struct{}, 1),
	}
}

// Post sequences and queues one event. It never blocks the caller.
func (r *Relay) Post(event Event) {
	r.mu.Lock()
	r.queue = append(r.queue, r.bus.Publish(event))
	r.mu.Unlock()

	select {
	case r.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled whenever events may be waiting to be drained.
func (r *Relay) Ready() <-chan struct{} {
	return r.ready
}

// Drain applies every queued event in order on the calling goroutine and
// returns how many were applied. Events posted by apply wait for the next
// drain.
func (r *Relay) Drain(apply func(Event)) int {
	r.mu.Lock()
	batch := r.queue
	r.queue = nil
	r.mu.Unlock()

	for _, event := range batch {
		apply(event)
	}
	return len(batch)
}

// Pending reports how many events wait for the next drain.
func (r *Relay) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// History returns relayed events with sequence strictly greater than seq.
func (r *Relay) History(seq int64) []Event {
	return r.bus.Since(seq)
}
