package session

import (
	"context"
	"encoding/json"
	"sync"
)

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*State),
	}
}

func (s *MemoryStore) session(id string) *State {
	st, ok := s.sessions[id]
	if !ok {
		st = &State{ID: id, Values: make(map[string]json.RawMessage)}
		s.sessions[id] = st
	}
	return st
}

func (s *MemoryStore) Set(_ context.Context, id, key string, value any) error {
	if err := checkID(id); err != nil {
		return err
	}
	raw, err := encode(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session(id).Values[key] = raw
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id, key string, out any) (bool, error) {
	s.mu.RLock()
	st, ok := s.sessions[id]
	var raw json.RawMessage
	if ok {
		raw, ok = st.Values[key]
	}
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	return true, decode(raw, out)
}

func (s *MemoryStore) Append(_ context.Context, id, key string, item any) error {
	if err := checkID(id); err != nil {
		return err
	}
	raw, err := encode(item)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.session(id)
	list, err := appendItem(st.Values[key], raw)
	if err != nil {
		return err
	}
	st.Values[key] = list
	return nil
}

// AddEvent appends an event to the session timeline.
func (s *MemoryStore) AddEvent(_ context.Context, id string, ev Event) error {
	if err := checkID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.session(id)
	st.Events = append(st.Events, stamp(ev))
	return nil
}

// Snapshot returns a deep copy; callers may mutate it freely.
func (s *MemoryStore) Snapshot(_ context.Context, id string) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.sessions[id]
	if !ok {
		return State{}, ErrNotFound
	}

	out := State{
		ID:     st.ID,
		Values: make(map[string]json.RawMessage, len(st.Values)),
		Events: make([]Event, len(st.Events)),
	}
	for k, v := range st.Values {
		out.Values[k] = append(json.RawMessage(nil), v...)
	}
	copy(out.Events, st.Events)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
