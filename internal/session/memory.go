package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store for development and tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

type memoryEntry struct {
	uid       uint64
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]memoryEntry{}, now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, sid string, uid uint64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.pruneLocked(now)
	s.sessions[sid] = memoryEntry{uid: uid, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, sid string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sid]
	if !ok {
		return 0, ErrNoSession
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.sessions, sid)
		return 0, ErrNoSession
	}
	return e.uid, nil
}

func (s *MemoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sid)
	return nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, uid uint64, keep string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.now())
	for sid, e := range s.sessions {
		if e.uid == uid && sid != keep {
			delete(s.sessions, sid)
		}
	}
	return nil
}

// pruneLocked drops every expired entry. s.mu must be held.
func (s *MemoryStore) pruneLocked(now time.Time) {
	for sid, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, sid)
		}
	}
}
