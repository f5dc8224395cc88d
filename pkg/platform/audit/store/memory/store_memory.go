package memory

import (
	"context"
	"sync"

	"smileid/pkg/domain"
	audit "smileid/pkg/platform/audit"
)

// InMemoryStore records events in memory. It satisfies audit.Publisher and is
// used by tests and the fake service to inspect emitted events.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[domain.JobID][]audit.Event
	order  []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[domain.JobID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[domain.JobID][]audit.Event)
	s.order = nil
}

// Emit appends the event.
func (s *InMemoryStore) Emit(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.JobID] = append(s.events[event.JobID], event)
	s.order = append(s.order, event)
	return nil
}

// ListByJob returns the events of one job in emission order.
func (s *InMemoryStore) ListByJob(_ context.Context, jobID domain.JobID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[jobID]...), nil
}

// ListAll returns every event in emission order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.order...), nil
}

// Actions returns the actions of one job in emission order.
func (s *InMemoryStore) Actions(jobID domain.JobID) []audit.Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Action, 0, len(s.events[jobID]))
	for _, e := range s.events[jobID] {
		out = append(out, e.Action)
	}
	return out
}
