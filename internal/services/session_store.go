package services

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"order-matching-service/internal/reconcile"
)

type sessionEntry struct {
	session reconcile.Session
	touched time.Time
}

// SessionStore keeps matching sessions in memory. Sessions idle for longer
// than the TTL are dropped.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates an empty store
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a new empty session and returns its id
func (s *SessionStore) Create() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()
	id := uuid.New().String()
	s.sessions[id] = &sessionEntry{session: reconcile.NewSession(), touched: s.now()}
	return id
}

// Get returns a snapshot of the session
func (s *SessionStore) Get(id string) (reconcile.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.liveLocked(id)
	if !ok {
		return reconcile.Session{}, ErrSessionNotFound
	}
	entry.touched = s.now()
	return entry.session, nil
}

// Update replaces the session with fn's result. fn runs under the store lock
// and must not block.
func (s *SessionStore) Update(id string, fn func(reconcile.Session) (reconcile.Session, error)) (reconcile.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.liveLocked(id)
	if !ok {
		return reconcile.Session{}, ErrSessionNotFound
	}
	next, err := fn(entry.session)
	if err != nil {
		return entry.session, err
	}
	entry.session = next
	entry.touched = s.now()
	return next, nil
}

// Delete drops a session
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	return len(s.sessions)
}

func (s *SessionStore) liveLocked(id string) (*sessionEntry, bool) {
	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.expired(entry) {
		delete(s.sessions, id)
		return nil, false
	}
	return entry, true
}

func (s *SessionStore) evictLocked() {
	for id, entry := range s.sessions {
		if s.expired(entry) {
			delete(s.sessions, id)
		}
	}
}

func (s *SessionStore) expired(entry *sessionEntry) bool {
	return s.ttl > 0 && s.now().Sub(entry.touched) > s.ttl
}
