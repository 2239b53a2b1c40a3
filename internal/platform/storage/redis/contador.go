package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marcelojr/track-battle/internal/domain"
)

// Contador guarda totais da semana (envios, votos) em chaves com prefixo.
// Com ttl > 0 as chaves expiram sozinhas depois que a semana deixa de interessar.
type Contador struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewContador(client *redis.Client, prefix string, ttl time.Duration) *Contador {
	return &Contador{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *Contador) Incrementar(ctx context.Context, chave string, delta int64) (int64, error) {
	key := c.key(chave)
	if c.ttl <= 0 {
		return c.client.IncrBy(ctx, key, delta).Result()
	}

	total, err := c.client.IncrBy(ctx, key, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("redis contador: incrementar %s: %w", chave, err)
	}
	// O TTL só é definido quando a chave nasce; incrementos seguintes não o renovam.
	if total == delta {
		if err := c.client.Expire(ctx, key, c.ttl).Err(); err != nil {
			return 0, fmt.Errorf("redis contador: definir expiracao %s: %w", chave, err)
		}
	}
	return total, nil
}

func (c *Contador) Obter(ctx context.Context, chave string) (int64, error) {
	val, err := c.client.Get(ctx, c.key(chave)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

func (c *Contador) ObterTodos(ctx context.Context, chaves []string) (map[string]int64, error) {
	if len(chaves) == 0 {
		return map[string]int64{}, nil
	}

	keys := make([]string, len(chaves))
	for i, ch := range chaves {
		keys[i] = c.key(ch)
	}

	// MGET reduz round-trips ao montar as estatísticas da semana.
	valores, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	resultado := make(map[string]int64, len(chaves))
	for i, raw := range valores {
		if raw == nil {
			resultado[chaves[i]] = 0
			continue
		}

		switch v := raw.(type) {
		case string:
			num, convErr := strconv.ParseInt(v, 10, 64)
			if convErr != nil {
				return nil, fmt.Errorf("redis contador: valor invalido para %s: %w", chaves[i], convErr)
			}
			resultado[chaves[i]] = num
		case int64:
			resultado[chaves[i]] = v
		default:
			return nil, fmt.Errorf("redis contador: tipo inesperado %T", raw)
		}
	}

	return resultado, nil
}

func (c *Contador) key(chave string) string {
	if c.prefix == "" {
		return chave
	}
	return fmt.Sprintf("%s:%s", c.prefix, chave)
}

var _ domain.Contador = (*Contador)(nil)
