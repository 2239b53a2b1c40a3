package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marcelojr/track-battle/internal/domain"
)

// MemoryStore guarda sessões no processo (SESSION_STORE=memory). Some no restart.
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]entry
	ttl   time.Duration
	clock domain.Clock
}

type entry struct {
	sess      domain.Session
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration, clock domain.Clock) *MemoryStore {
	return &MemoryStore{data: make(map[string]entry), ttl: ttl, clock: clock}
}

func (s *MemoryStore) Load(_ context.Context, id string) (domain.Session, error) {
	s.mu.RLock()
	e, ok := s.data[id]
	s.mu.RUnlock()

	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	if s.ttl > 0 && !s.clock.Agora().Before(e.expiresAt) {
		s.mu.Lock()
		delete(s.data, id)
		s.mu.Unlock()
		return domain.Session{}, domain.ErrNotFound
	}
	return e.sess, nil
}

func (s *MemoryStore) Save(_ context.Context, sess domain.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("memory sessao: id vazio")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sess.ID] = entry{sess: sess, expiresAt: s.clock.Agora().Add(s.ttl)}
	return nil
}

var _ domain.SessionStore = (*MemoryStore)(nil)
