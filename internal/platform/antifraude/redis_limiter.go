// Pacote antifraude limita rajadas de envios e votos (Redis, memória local ou desligado).
package antifraude

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/track-battle/internal/domain"
)

var ErrRateLimitExceeded = errors.New("limite de tentativas atingido")

// RedisRateLimiter conta tentativas por ação/semana/origem em janelas fixas.
type RedisRateLimiter struct {
	client    *redis.Client
	limit     int
	window    time.Duration
	keyPrefix string
}

func NewRedisRateLimiter(client *redis.Client, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		keyPrefix: prefix,
	}
}

func (r *RedisRateLimiter) Validar(ctx context.Context, a domain.Attempt) error {
	if r.client == nil || r.limit <= 0 || r.window <= 0 {
		// Configurações inválidas caem automaticamente no modo permissivo.
		return nil
	}

	key := r.buildKey(a)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("antifraude: falha ao incrementar chave: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return fmt.Errorf("antifraude: falha ao definir expiracao: %w", err)
		}
	}

	if int(count) > r.limit {
		return ErrRateLimitExceeded
	}

	return nil
}

func (r *RedisRateLimiter) buildKey(a domain.Attempt) string {
	return fmt.Sprintf("%s:%s:%s", r.keyPrefix, a.Action, attemptHash(a))
}

// attemptHash evita gravar IP/UA em claro nas chaves.
func attemptHash(a domain.Attempt) string {
	base := fmt.Sprintf("%s|%s|%s|%s", a.Week, a.UserName, a.Origin.IP, a.Origin.UserAgent)
	hash := sha1.Sum([]byte(base))
	return hex.EncodeToString(hash[:])
}

var _ domain.Antifraude = (*RedisRateLimiter)(nil)
