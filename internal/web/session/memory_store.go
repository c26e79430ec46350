package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Suitable for development
// and single-instance deployments.
type MemoryStore struct {
	sessions sync.Map
	stopChan chan struct{}
	wg       sync.WaitGroup
}

type sessionEntry struct {
	session   *Session
	expiresAt time.Time
}

// NewMemoryStore creates a memory store and starts its expiry sweeper.
func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{stopChan: make(chan struct{})}
	store.wg.Add(1)
	go store.cleanup()
	return store
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	value, ok := s.sessions.Load(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	entry := value.(*sessionEntry)
	if entry.expiresAt.Before(time.Now()) {
		s.sessions.Delete(sessionID)
		return nil, ErrSessionExpired
	}

	return entry.session, nil
}

func (s *MemoryStore) Set(ctx context.Context, sessionID string, session *Session, ttl time.Duration) error {
	s.sessions.Store(sessionID, &sessionEntry{
		session:   session,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.sessions.Delete(sessionID)
	return nil
}

// Close stops the sweeper and drops all sessions.
func (s *MemoryStore) Close() error {
	close(s.stopChan)
	s.wg.Wait()
	s.sessions.Range(func(key, value any) bool {
		s.sessions.Delete(key)
		return true
	})
	return nil
}

func (s *MemoryStore) cleanup() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			now := time.Now()
			s.sessions.Range(func(key, value any) bool {
				if value.(*sessionEntry).expiresAt.Before(now) {
					s.sessions.Delete(key)
				}
				return true
			})
		}
	}
}
