package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/track-battle/internal/domain"
)

// SessionStore serializa a sessão do navegador em JSON com expiração.
type SessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, prefix string, ttl time.Duration) *SessionStore {
	if prefix == "" {
		prefix = "sessao"
	}
	return &SessionStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *SessionStore) Load(ctx context.Context, id string) (domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("redis sessao: ler %s: %w", id, err)
	}

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("redis sessao: payload invalido: %w", err)
	}
	return sess, nil
}

// Save renova o TTL a cada gravação; sessões ativas não expiram no meio da semana.
func (s *SessionStore) Save(ctx context.Context, sess domain.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("redis sessao: id vazio")
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redis sessao: serializar: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sess.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis sessao: gravar %s: %w", sess.ID, err)
	}
	return nil
}

func (s *SessionStore) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}

var _ domain.SessionStore = (*SessionStore)(nil)
