package events

import (
	"context"
	"sync"
)

// Publisher is the write side of the event bus used by services.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

var _ Publisher = (*Bus)(nil)

// Recorder keeps published events in memory. It backs the server when
// KurrentDB is disabled and is used by tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	limit  int
}

// NewRecorder keeps at most limit events, dropping the oldest. A limit of 0
// keeps everything.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Publish records the event.
func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
	return nil
}

// Events returns a copy of the recorded events, oldest first.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
