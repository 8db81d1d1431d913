package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ContactRelay/models"
	"ContactRelay/pkg/apperr"
)

// MemoryStore keeps messages in process memory. Used by tests and by
// DB_DRIVER=memory for local runs.
type MemoryStore struct {
	mu     sync.RWMutex
	msgs   []models.Message
	nextID uint
	Now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{msgs: make([]models.Message, 0, 64)}
}

func (s *MemoryStore) Append(_ context.Context, m models.Message) (models.Message, error) {
	if err := validate(m); err != nil {
		return models.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	m.ID = s.nextID
	m.CreatedAt = stamp(s.Now)
	s.msgs = append(s.msgs, m)
	return m, nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]models.Message, error) {
	s.mu.RLock()
	out := make([]models.Message, len(s.msgs))
	copy(out, s.msgs)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return newer(out[i], out[j]) })
	return out, nil
}

func (s *MemoryStore) ListBySession(_ context.Context, sessionID string) ([]models.Message, error) {
	s.mu.RLock()
	out := make([]models.Message, 0)
	for _, m := range s.msgs {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return newer(out[j], out[i]) })
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id uint) (models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.msgs {
		if m.ID == id {
			return m, nil
		}
	}
	return models.Message{}, fmt.Errorf("message %d: %w", id, apperr.ErrNotFound)
}

// newer orders by CreatedAt, falling back to insertion order on ties.
func newer(a, b models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
