package audit

import (
	"context"
	"errors"
	"sync"

	id "pollbook/pkg/domain"
)

// Store persists or forwards audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// DefaultMemoryCapacity bounds a MemoryStore built without WithCapacity.
const DefaultMemoryCapacity = 10_000

// MemoryStore keeps the most recent events in arrival order. Once full, each
// append overwrites the oldest event.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
	next   int
	full   bool
}

type MemoryOption func(*MemoryStore)

// WithCapacity sets how many events are retained. Non-positive values keep
// the default.
func WithCapacity(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.events = make([]Event, 0, n)
		}
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = make([]Event, 0, DefaultMemoryCapacity)
	}
	return s
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.full {
		s.events = append(s.events, event)
		s.full = len(s.events) == cap(s.events)
		return nil
	}
	s.events[s.next] = event
	s.next = (s.next + 1) % len(s.events)
	return nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]Event, error) {
	return s.filter(func(Event) bool { return true }), nil
}

func (s *MemoryStore) ListBySurvey(_ context.Context, surveyID id.SurveyID) ([]Event, error) {
	return s.filter(func(e Event) bool { return e.SurveyID == surveyID }), nil
}

func (s *MemoryStore) ListByActor(_ context.Context, actor id.Address) ([]Event, error) {
	return s.filter(func(e Event) bool { return e.Actor == actor }), nil
}

// filter walks the ring oldest first.
func (s *MemoryStore) filter(keep func(Event) bool) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Event{}
	for i := range s.events {
		e := s.events[(s.next+i)%len(s.events)]
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Multi appends to every store and joins their errors.
func Multi(stores ...Store) Store {
	return multiStore(stores)
}

type multiStore []Store

func (m multiStore) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
