package tokenstore

import (
	"sync"
	"time"
)

// Store remembers revoked token ids until the token would have expired on
// its own. In-memory only: a restart forgets revocations.
type Store struct {
	mu      sync.RWMutex
	revoked map[string]time.Time // jti -> token expiry
	Now     func() time.Time
}

func New() *Store {
	return &Store{revoked: map[string]time.Time{}, Now: time.Now}
}

// Revoke marks jti as unusable. exp is the token's own expiry.
func (s *Store) Revoke(jti string, exp time.Time) {
	if jti == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = exp
	s.pruneNoLock()
}

func (s *Store) IsRevoked(jti string) bool {
	if jti == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.revoked[jti]
	return ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.revoked)
}

// pruneNoLock drops entries whose token already expired; caller must hold s.mu.
func (s *Store) pruneNoLock() {
	now := s.Now()
	for jti, exp := range s.revoked {
		if !exp.IsZero() && exp.Before(now) {
			delete(s.revoked, jti)
		}
	}
}
