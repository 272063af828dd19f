package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/joelkehle/macro-onboarding/internal/onboarding"
)

// MemoryStore keeps sessions and profiles in process memory. Records are
// stored as JSON so callers never share mutable state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	profiles map[string]onboarding.Export
	nowFn    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: map[string][]byte{},
		profiles: map[string]onboarding.Export{},
		nowFn:    time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	raw, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return Record{}, ErrNotFound
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return rec, nil
}

func (s *MemoryStore) Put(_ context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.sessions[rec.ID]; ok && rec.CreatedAt.IsZero() {
		var old Record
		if json.Unmarshal(prev, &old) == nil {
			rec.CreatedAt = old.CreatedAt
		}
	}
	stamp(&rec, s.nowFn().UTC())
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", rec.ID, err)
	}
	s.sessions[rec.ID] = raw
	return nil
}

func (s *MemoryStore) Evict(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) SaveProfile(_ context.Context, sessionID string, export onboarding.Export) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[sessionID] = export
	return nil
}

func (s *MemoryStore) GetProfile(_ context.Context, sessionID string) (onboarding.Export, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	export, ok := s.profiles[sessionID]
	if !ok {
		return onboarding.Export{}, ErrNotFound
	}
	return export, nil
}

func (s *MemoryStore) Close() error { return nil }
